package commands_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"overlap/contexts/meetup-live/consensus-engine/adapters/memory"
	"overlap/contexts/meetup-live/consensus-engine/application/commands"
	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	domainerrors "overlap/contexts/meetup-live/consensus-engine/domain/errors"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func candidates(n int) []entities.CandidateRef {
	refs := make([]entities.CandidateRef, 0, n)
	for i := 0; i < n; i++ {
		refs = append(refs, entities.CandidateRef{
			CandidateID: fmt.Sprintf("c%d", i+1),
			Name:        fmt.Sprintf("Activity %d", i+1),
			Category:    "outdoors",
		})
	}
	return refs
}

func newSessionUseCase(store *memory.Store, clock *fixedClock) commands.SessionUseCase {
	return commands.SessionUseCase{
		Sessions: store,
		Votes:    store,
		Outbox:   store,
		Clock:    clock,
		IDGen:    store,
	}
}

func seedVote(t *testing.T, store *memory.Store, sessionID, voterID, candidateID string, decision entities.Decision, at time.Time) {
	t.Helper()
	_, err := store.ReconcileVote(context.Background(), entities.Vote{
		SessionID:   sessionID,
		VoterID:     voterID,
		CandidateID: candidateID,
		Decision:    decision,
		SubmittedAt: at,
	})
	if err != nil {
		t.Fatalf("seed vote failed: %v", err)
	}
}

func TestInitSessionValidation(t *testing.T) {
	store := memory.NewStore()
	uc := newSessionUseCase(store, &fixedClock{now: time.Now().UTC()})

	_, err := uc.InitSession(context.Background(), commands.InitSessionCommand{
		ParticipantCount: 0,
		Candidates:       candidates(3),
	})
	if !errors.Is(err, domainerrors.ErrInvalidSessionInput) {
		t.Fatalf("expected invalid input for zero participants, got %v", err)
	}

	_, err = uc.InitSession(context.Background(), commands.InitSessionCommand{ParticipantCount: 4})
	if !errors.Is(err, domainerrors.ErrInvalidSessionInput) {
		t.Fatalf("expected invalid input for empty queue, got %v", err)
	}

	_, err = uc.InitSession(context.Background(), commands.InitSessionCommand{
		ParticipantCount: 4,
		Candidates:       []entities.CandidateRef{{CandidateID: "  "}},
	})
	if !errors.Is(err, domainerrors.ErrInvalidSessionInput) {
		t.Fatalf("expected invalid input for blank candidate id, got %v", err)
	}
}

func TestInitSessionCapsQueueAndGeneratesID(t *testing.T) {
	store := memory.NewStore()
	uc := newSessionUseCase(store, &fixedClock{now: time.Now().UTC()})

	// Cap for one participant is 10; twelve candidates must be truncated.
	session, err := uc.InitSession(context.Background(), commands.InitSessionCommand{
		ParticipantCount: 1,
		Candidates:       candidates(12),
	})
	if err != nil {
		t.Fatalf("init session failed: %v", err)
	}
	if session.SessionID == "" {
		t.Fatalf("expected generated session id")
	}
	if len(session.Queue) != 10 {
		t.Fatalf("expected queue capped at 10, got %d", len(session.Queue))
	}
	if session.Cursor != 0 || session.Finished {
		t.Fatalf("unexpected initial state: %+v", session)
	}
}

func TestInitSessionOverwritePurgesPriorRun(t *testing.T) {
	store := memory.NewStore()
	clock := &fixedClock{now: time.Now().UTC()}
	uc := newSessionUseCase(store, clock)

	session, err := uc.InitSession(context.Background(), commands.InitSessionCommand{
		SessionID:        "reuse-1",
		ParticipantCount: 4,
		Candidates:       candidates(3),
	})
	if err != nil {
		t.Fatalf("init session failed: %v", err)
	}
	seedVote(t, store, session.SessionID, "v1", "c1", entities.DecisionLike, clock.Now())

	// Re-initializing the same ID must not let the prior run's tallies
	// poison the fresh queue.
	fresh, err := uc.InitSession(context.Background(), commands.InitSessionCommand{
		SessionID:        "reuse-1",
		ParticipantCount: 6,
		Candidates:       candidates(4),
	})
	if err != nil {
		t.Fatalf("re-init failed: %v", err)
	}
	if fresh.ParticipantCount != 6 || len(fresh.Queue) != 4 || fresh.Cursor != 0 {
		t.Fatalf("unexpected re-initialized session: %+v", fresh)
	}
	tallies, err := store.ListTallies(context.Background(), "reuse-1")
	if err != nil || len(tallies) != 0 {
		t.Fatalf("expected purged tallies on re-init, got %v err=%v", tallies, err)
	}
	if tally, found, err := store.GetTally(context.Background(), "reuse-1", "c1"); err != nil || found {
		t.Fatalf("expected no carried-over tally, got %+v found=%v err=%v", tally, found, err)
	}
}

func TestBannerDebounceSuppressesMinorImprovements(t *testing.T) {
	store := memory.NewStore()
	clock := &fixedClock{now: time.Date(2026, 8, 1, 18, 0, 0, 0, time.UTC)}
	uc := newSessionUseCase(store, clock)

	session, err := uc.InitSession(context.Background(), commands.InitSessionCommand{
		SessionID:        "debounce-1",
		ParticipantCount: 20,
		Candidates:       candidates(10),
	})
	if err != nil {
		t.Fatalf("init session failed: %v", err)
	}

	// 12 likes and 2 passes over 14 viewers lands in the soft band.
	for i := 0; i < 12; i++ {
		seedVote(t, store, session.SessionID, fmt.Sprintf("v%d", i+1), "c1", entities.DecisionLike, clock.Now())
	}
	seedVote(t, store, session.SessionID, "v13", "c1", entities.DecisionPass, clock.Now())
	seedVote(t, store, session.SessionID, "v14", "c1", entities.DecisionPass, clock.Now())

	first, err := uc.OnVoteRecorded(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("first evaluation failed: %v", err)
	}
	if first == nil || first.Type != entities.BannerTypeSoft {
		t.Fatalf("expected initial soft banner, got %+v", first)
	}

	// A single extra like inside the 15s window must not republish.
	seedVote(t, store, session.SessionID, "v15", "c1", entities.DecisionLike, clock.Now())
	second, err := uc.OnVoteRecorded(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("second evaluation failed: %v", err)
	}
	if second != nil {
		t.Fatalf("expected debounce suppression, got %+v", second)
	}
	current, err := store.GetSession(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if current.CurrentBanner == nil || current.CurrentBanner.Score != first.Score {
		t.Fatalf("suppressed evaluation must leave the banner untouched: %+v", current.CurrentBanner)
	}

	// Past the window, a >=0.03 score improvement republishes.
	clock.Advance(16 * time.Second)
	seedVote(t, store, session.SessionID, "v16", "c1", entities.DecisionLike, clock.Now())
	third, err := uc.OnVoteRecorded(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("third evaluation failed: %v", err)
	}
	if third == nil || third.Type != entities.BannerTypeSoft {
		t.Fatalf("expected republished soft banner, got %+v", third)
	}
	if third.Score-first.Score < 0.03 {
		t.Fatalf("expected score improvement >= 0.03, got %f -> %f", first.Score, third.Score)
	}
}

func TestGreatMatchOverridesDebounce(t *testing.T) {
	store := memory.NewStore()
	clock := &fixedClock{now: time.Now().UTC()}
	uc := newSessionUseCase(store, clock)

	session, err := uc.InitSession(context.Background(), commands.InitSessionCommand{
		SessionID:        "override-1",
		ParticipantCount: 4,
		Candidates:       candidates(5),
	})
	if err != nil {
		t.Fatalf("init session failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		seedVote(t, store, session.SessionID, fmt.Sprintf("v%d", i+1), "c1", entities.DecisionLike, clock.Now())
	}
	seedVote(t, store, session.SessionID, "v4", "c1", entities.DecisionPass, clock.Now())

	first, err := uc.OnVoteRecorded(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("first evaluation failed: %v", err)
	}
	if first == nil || first.Type != entities.BannerTypeGreatMatch || first.Score != 0.75 {
		t.Fatalf("expected great-match banner at 0.75, got %+v", first)
	}

	// Re-evaluating immediately still publishes: the tier bypasses the gate.
	second, err := uc.OnVoteRecorded(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("second evaluation failed: %v", err)
	}
	if second == nil || second.Type != entities.BannerTypeGreatMatch {
		t.Fatalf("expected override republication, got %+v", second)
	}
}

func TestCheckAutoAdvance(t *testing.T) {
	store := memory.NewStore()
	clock := &fixedClock{now: time.Now().UTC()}
	uc := newSessionUseCase(store, clock)

	session, err := uc.InitSession(context.Background(), commands.InitSessionCommand{
		SessionID:        "advance-1",
		ParticipantCount: 10,
		Candidates:       candidates(2),
	})
	if err != nil {
		t.Fatalf("init session failed: %v", err)
	}

	// MinExposures(10) is 8: seven viewers must not advance the cursor.
	for i := 0; i < 7; i++ {
		seedVote(t, store, session.SessionID, fmt.Sprintf("v%d", i+1), "c1", entities.DecisionLike, clock.Now())
	}
	advanced, err := uc.CheckAutoAdvance(context.Background(), session.SessionID)
	if err != nil || advanced {
		t.Fatalf("expected no advance below exposure floor, got advanced=%v err=%v", advanced, err)
	}

	seedVote(t, store, session.SessionID, "v8", "c1", entities.DecisionPass, clock.Now())
	advanced, err = uc.CheckAutoAdvance(context.Background(), session.SessionID)
	if err != nil || !advanced {
		t.Fatalf("expected advance at exposure floor, got advanced=%v err=%v", advanced, err)
	}
	current, err := store.GetSession(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if current.Cursor != 1 || current.Finished {
		t.Fatalf("unexpected state after advance: %+v", current)
	}

	// Repeat calls for the same milestone are no-ops.
	advanced, err = uc.CheckAutoAdvance(context.Background(), session.SessionID)
	if err != nil || advanced {
		t.Fatalf("expected idempotent advance, got advanced=%v err=%v", advanced, err)
	}

	// Exhausting the queue finishes the session.
	for i := 0; i < 8; i++ {
		seedVote(t, store, session.SessionID, fmt.Sprintf("v%d", i+1), "c2", entities.DecisionLike, clock.Now())
	}
	advanced, err = uc.CheckAutoAdvance(context.Background(), session.SessionID)
	if err != nil || !advanced {
		t.Fatalf("expected final advance, got advanced=%v err=%v", advanced, err)
	}
	current, err = store.GetSession(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if !current.Finished {
		t.Fatalf("expected finished session, got %+v", current)
	}
}

func TestFinalize(t *testing.T) {
	store := memory.NewStore()
	clock := &fixedClock{now: time.Now().UTC()}
	uc := newSessionUseCase(store, clock)

	session, err := uc.InitSession(context.Background(), commands.InitSessionCommand{
		SessionID:        "finalize-1",
		ParticipantCount: 4,
		Candidates:       candidates(3),
	})
	if err != nil {
		t.Fatalf("init session failed: %v", err)
	}

	if _, err := uc.Finalize(context.Background(), session.SessionID, "missing"); !errors.Is(err, domainerrors.ErrCandidateNotInQueue) {
		t.Fatalf("expected candidate-not-in-queue, got %v", err)
	}

	finalized, err := uc.Finalize(context.Background(), session.SessionID, "c2")
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if finalized.FinalizedCandidate == nil || finalized.FinalizedCandidate.CandidateID != "c2" {
		t.Fatalf("expected finalized candidate c2, got %+v", finalized.FinalizedCandidate)
	}
	if !finalized.Finished || finalized.FinalizedAt == nil {
		t.Fatalf("expected terminal state, got %+v", finalized)
	}

	if _, err := uc.Finalize(context.Background(), session.SessionID, "c1"); !errors.Is(err, domainerrors.ErrSessionFinished) {
		t.Fatalf("expected session-finished on double finalize, got %v", err)
	}
}

func TestResetAndRestartSession(t *testing.T) {
	store := memory.NewStore()
	clock := &fixedClock{now: time.Now().UTC()}
	uc := newSessionUseCase(store, clock)

	session, err := uc.InitSession(context.Background(), commands.InitSessionCommand{
		SessionID:        "restart-1",
		ParticipantCount: 4,
		Candidates:       candidates(3),
	})
	if err != nil {
		t.Fatalf("init session failed: %v", err)
	}
	seedVote(t, store, session.SessionID, "v1", "c1", entities.DecisionLike, clock.Now())

	if err := uc.ResetSession(context.Background(), session.SessionID); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if _, err := store.GetSession(context.Background(), session.SessionID); !errors.Is(err, domainerrors.ErrSessionNotFound) {
		t.Fatalf("expected session gone after reset, got %v", err)
	}
	tallies, err := store.ListTallies(context.Background(), session.SessionID)
	if err != nil || len(tallies) != 0 {
		t.Fatalf("expected purged tallies, got %v err=%v", tallies, err)
	}

	// Restart keeps the ID and the previous participant count when omitted.
	session, err = uc.InitSession(context.Background(), commands.InitSessionCommand{
		SessionID:        "restart-1",
		ParticipantCount: 4,
		Candidates:       candidates(3),
	})
	if err != nil {
		t.Fatalf("re-init failed: %v", err)
	}
	seedVote(t, store, session.SessionID, "v1", "c1", entities.DecisionLike, clock.Now())

	fresh, err := uc.RestartSession(context.Background(), commands.RestartSessionCommand{
		SessionID:  "restart-1",
		Candidates: candidates(5),
	})
	if err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if fresh.SessionID != "restart-1" || fresh.ParticipantCount != 4 {
		t.Fatalf("expected carried-over identity, got %+v", fresh)
	}
	if len(fresh.Queue) != 5 || fresh.Cursor != 0 || fresh.CurrentBanner != nil {
		t.Fatalf("expected pristine restarted session, got %+v", fresh)
	}
	tallies, err = store.ListTallies(context.Background(), fresh.SessionID)
	if err != nil || len(tallies) != 0 {
		t.Fatalf("expected empty tallies after restart, got %v err=%v", tallies, err)
	}
}
