// Package consensusengine implements the live group consensus engine inside
// the meetup-live context.
//
// The module owns swipe ingestion (idempotent per-candidate tallies), banner
// evaluation (confidence-ranked recommendation tiers with debounced
// publication), the session queue/cursor lifecycle, and consensus event
// production through outbox-backed workers. It keeps business rules in
// application/domain layers and isolates infrastructure concerns behind
// ports and adapters.
package consensusengine
