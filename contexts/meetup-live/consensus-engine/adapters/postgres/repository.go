package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	domainerrors "overlap/contexts/meetup-live/consensus-engine/domain/errors"
	"overlap/contexts/meetup-live/consensus-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates the engine tables. Exposed for bootstrap wiring.
func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&sessionModel{}, &voteModel{}, &tallyModel{}, &outboxModel{})
}

func (r *Repository) SaveSession(ctx context.Context, session entities.Session) error {
	row, err := sessionModelFromEntity(session)
	if err != nil {
		return err
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"participant_count":     row.ParticipantCount,
			"queue":                 row.Queue,
			"cursor":                row.Cursor,
			"current_banner":        row.CurrentBanner,
			"last_banner_update_at": row.LastBannerUpdateAt,
			"finalized_candidate":   row.FinalizedCandidate,
			"finalized_at":          row.FinalizedAt,
			"started_at":            row.StartedAt,
			"finished":              row.Finished,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("consensus_repo_save_session_failed", create.Error,
			"session_id", strings.TrimSpace(session.SessionID))
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, sessionID string) (entities.Session, error) {
	var row sessionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(sessionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Session{}, domainerrors.ErrSessionNotFound
		}
		return entities.Session{}, r.logError("consensus_repo_get_session_failed", err,
			"session_id", strings.TrimSpace(sessionID))
	}
	return row.toEntity()
}

// UpdateSession runs mutate against a row-locked session inside one
// transaction, which linearizes concurrent banner/cursor writers.
func (r *Repository) UpdateSession(
	ctx context.Context,
	sessionID string,
	mutate func(*entities.Session) error,
) (entities.Session, error) {
	var updated entities.Session
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(sessionID)).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrSessionNotFound
			}
			return err
		}
		session, err := row.toEntity()
		if err != nil {
			return err
		}
		if err := mutate(&session); err != nil {
			return err
		}
		next, err := sessionModelFromEntity(session)
		if err != nil {
			return err
		}
		if err := tx.Model(&sessionModel{}).
			Where("id = ?", strings.TrimSpace(sessionID)).
			Updates(map[string]any{
				"cursor":                next.Cursor,
				"current_banner":        next.CurrentBanner,
				"last_banner_update_at": next.LastBannerUpdateAt,
				"finalized_candidate":   next.FinalizedCandidate,
				"finalized_at":          next.FinalizedAt,
				"finished":              next.Finished,
			}).Error; err != nil {
			return err
		}
		updated = session
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrSessionNotFound) ||
			errors.Is(err, domainerrors.ErrSessionFinished) ||
			errors.Is(err, domainerrors.ErrCandidateNotInQueue) {
			return entities.Session{}, err
		}
		return entities.Session{}, r.logError("consensus_repo_update_session_failed", err,
			"session_id", strings.TrimSpace(sessionID))
	}
	return updated, nil
}

func (r *Repository) DeleteSession(ctx context.Context, sessionID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(sessionID)).
		Delete(&sessionModel{})
	if result.Error != nil {
		return r.logError("consensus_repo_delete_session_failed", result.Error,
			"session_id", strings.TrimSpace(sessionID))
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSessionNotFound
	}
	return nil
}

// ReconcileVote upserts the voter's decision and rewrites the candidate
// tally in the same transaction. The tally row is materialized with a
// conflict-free zero insert and then row-locked, so concurrent first votes
// on a new candidate serialize instead of losing counts.
func (r *Repository) ReconcileVote(ctx context.Context, vote entities.Vote) (entities.Tally, error) {
	var reconciled entities.Tally
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := tallyModel{
			SessionID:   vote.SessionID,
			CandidateID: vote.CandidateID,
			Viewers:     []byte("[]"),
			UpdatedAt:   vote.SubmittedAt,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var tallyRow tallyModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ? AND candidate_id = ?", vote.SessionID, vote.CandidateID).
			First(&tallyRow).
			Error; err != nil {
			return err
		}
		tally, err := tallyRow.toEntity()
		if err != nil {
			return err
		}
		if !tally.Consistent() {
			r.logger.Error("tally invariant violated, rebuilding from vote ledger",
				"event", "consensus_repo_tally_invariant_violated",
				"module", "meetup-live/consensus-engine",
				"layer", "adapter",
				"session_id", vote.SessionID,
				"candidate_id", vote.CandidateID,
			)
			var ledger []voteModel
			if err := tx.Where("session_id = ? AND candidate_id = ?", vote.SessionID, vote.CandidateID).
				Find(&ledger).Error; err != nil {
				return err
			}
			votes := make([]entities.Vote, 0, len(ledger))
			for _, row := range ledger {
				votes = append(votes, row.toEntity())
			}
			tally = entities.RebuildTally(vote.SessionID, vote.CandidateID, votes, vote.SubmittedAt)
		}

		var prior *entities.Decision
		var priorRow voteModel
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ? AND voter_id = ? AND candidate_id = ?",
				vote.SessionID, vote.VoterID, vote.CandidateID).
			First(&priorRow).
			Error
		switch {
		case err == nil:
			decision := entities.Decision(priorRow.Decision)
			prior = &decision
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		tally = entities.ReconcileTally(tally, vote, prior)

		voteRow := voteModelFromEntity(vote)
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "voter_id"}, {Name: "candidate_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"decision":     voteRow.Decision,
				"submitted_at": voteRow.SubmittedAt,
			}),
		}).Create(&voteRow).Error; err != nil {
			return err
		}

		next, err := tallyModelFromEntity(tally)
		if err != nil {
			return err
		}
		if err := tx.Model(&tallyModel{}).
			Where("session_id = ? AND candidate_id = ?", vote.SessionID, vote.CandidateID).
			Updates(map[string]any{
				"likes":      next.Likes,
				"passes":     next.Passes,
				"viewers":    next.Viewers,
				"updated_at": next.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		reconciled = tally
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) || isSerializationFailure(err) {
			return entities.Tally{}, domainerrors.ErrConflict
		}
		return entities.Tally{}, r.logError("consensus_repo_reconcile_vote_failed", err,
			"session_id", vote.SessionID,
			"voter_id", vote.VoterID,
			"candidate_id", vote.CandidateID,
		)
	}
	return reconciled, nil
}

func (r *Repository) GetTally(ctx context.Context, sessionID string, candidateID string) (entities.Tally, bool, error) {
	var row tallyModel
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND candidate_id = ?", strings.TrimSpace(sessionID), strings.TrimSpace(candidateID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Tally{}, false, nil
		}
		return entities.Tally{}, false, r.logError("consensus_repo_get_tally_failed", err,
			"session_id", strings.TrimSpace(sessionID),
			"candidate_id", strings.TrimSpace(candidateID),
		)
	}
	tally, err := row.toEntity()
	if err != nil {
		return entities.Tally{}, false, err
	}
	return tally, true, nil
}

func (r *Repository) ListTallies(ctx context.Context, sessionID string) (map[string]entities.Tally, error) {
	var rows []tallyModel
	err := r.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("consensus_repo_list_tallies_failed", err,
			"session_id", strings.TrimSpace(sessionID))
	}
	tallies := make(map[string]entities.Tally, len(rows))
	for _, row := range rows {
		tally, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		tallies[row.CandidateID] = tally
	}
	return tallies, nil
}

func (r *Repository) PurgeSessionData(ctx context.Context, sessionID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", strings.TrimSpace(sessionID)).Delete(&voteModel{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", strings.TrimSpace(sessionID)).Delete(&tallyModel{}).Error
	})
	if err != nil {
		return r.logError("consensus_repo_purge_session_failed", err,
			"session_id", strings.TrimSpace(sessionID))
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:  event.EventID,
		EventType: event.EventType,
		Payload:   payload,
		Status:    outboxStatusPending,
		CreatedAt: event.OccurredAt,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return r.logError("consensus_repo_append_outbox_failed", err, "event_id", event.EventID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("consensus_repo_list_outbox_failed", err)
	}
	pending := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		pending = append(pending, ports.OutboxMessage{
			OutboxID:  row.OutboxID,
			EventType: row.EventType,
			Payload:   row.Payload,
			CreatedAt: row.CreatedAt,
		})
	}
	return pending, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", outboxID).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt,
		}).Error
	if err != nil {
		return r.logError("consensus_repo_mark_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "meetup-live/consensus-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("consensus repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// SystemClock satisfies the clock port with wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator satisfies the ID port with random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
