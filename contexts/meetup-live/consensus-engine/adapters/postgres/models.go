package postgresadapter

import (
	"encoding/json"
	"time"

	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
)

type sessionModel struct {
	SessionID          string          `gorm:"column:id;primaryKey"`
	ParticipantCount   int             `gorm:"column:participant_count;not null"`
	Queue              json.RawMessage `gorm:"column:queue;type:jsonb;not null"`
	Cursor             int             `gorm:"column:cursor;not null"`
	CurrentBanner      json.RawMessage `gorm:"column:current_banner;type:jsonb"`
	LastBannerUpdateAt *time.Time      `gorm:"column:last_banner_update_at"`
	FinalizedCandidate json.RawMessage `gorm:"column:finalized_candidate;type:jsonb"`
	FinalizedAt        *time.Time      `gorm:"column:finalized_at"`
	StartedAt          time.Time       `gorm:"column:started_at;not null"`
	Finished           bool            `gorm:"column:finished;not null"`
}

func (sessionModel) TableName() string { return "consensus_sessions" }

type voteModel struct {
	SessionID   string    `gorm:"column:session_id;primaryKey"`
	VoterID     string    `gorm:"column:voter_id;primaryKey"`
	CandidateID string    `gorm:"column:candidate_id;primaryKey"`
	Decision    string    `gorm:"column:decision;not null"`
	SubmittedAt time.Time `gorm:"column:submitted_at;not null"`
}

func (voteModel) TableName() string { return "consensus_votes" }

type tallyModel struct {
	SessionID   string          `gorm:"column:session_id;primaryKey"`
	CandidateID string          `gorm:"column:candidate_id;primaryKey"`
	Likes       int             `gorm:"column:likes;not null"`
	Passes      int             `gorm:"column:passes;not null"`
	Viewers     json.RawMessage `gorm:"column:viewers;type:jsonb;not null"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;not null"`
}

func (tallyModel) TableName() string { return "consensus_tallies" }

type outboxModel struct {
	OutboxID    string          `gorm:"column:id;primaryKey"`
	EventType   string          `gorm:"column:event_type;not null"`
	Payload     json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	Status      string          `gorm:"column:status;not null;index"`
	CreatedAt   time.Time       `gorm:"column:created_at;not null"`
	PublishedAt *time.Time      `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "consensus_outbox" }

func sessionModelFromEntity(session entities.Session) (sessionModel, error) {
	queue, err := json.Marshal(session.Queue)
	if err != nil {
		return sessionModel{}, err
	}
	row := sessionModel{
		SessionID:          session.SessionID,
		ParticipantCount:   session.ParticipantCount,
		Queue:              queue,
		Cursor:             session.Cursor,
		LastBannerUpdateAt: session.LastBannerUpdateAt,
		FinalizedAt:        session.FinalizedAt,
		StartedAt:          session.StartedAt,
		Finished:           session.Finished,
	}
	if session.CurrentBanner != nil {
		banner, err := json.Marshal(session.CurrentBanner)
		if err != nil {
			return sessionModel{}, err
		}
		row.CurrentBanner = banner
	}
	if session.FinalizedCandidate != nil {
		candidate, err := json.Marshal(session.FinalizedCandidate)
		if err != nil {
			return sessionModel{}, err
		}
		row.FinalizedCandidate = candidate
	}
	return row, nil
}

func (m sessionModel) toEntity() (entities.Session, error) {
	session := entities.Session{
		SessionID:          m.SessionID,
		ParticipantCount:   m.ParticipantCount,
		Cursor:             m.Cursor,
		LastBannerUpdateAt: m.LastBannerUpdateAt,
		FinalizedAt:        m.FinalizedAt,
		StartedAt:          m.StartedAt,
		Finished:           m.Finished,
	}
	if len(m.Queue) > 0 {
		if err := json.Unmarshal(m.Queue, &session.Queue); err != nil {
			return entities.Session{}, err
		}
	}
	if len(m.CurrentBanner) > 0 {
		var banner entities.Banner
		if err := json.Unmarshal(m.CurrentBanner, &banner); err != nil {
			return entities.Session{}, err
		}
		session.CurrentBanner = &banner
	}
	if len(m.FinalizedCandidate) > 0 {
		var candidate entities.CandidateRef
		if err := json.Unmarshal(m.FinalizedCandidate, &candidate); err != nil {
			return entities.Session{}, err
		}
		session.FinalizedCandidate = &candidate
	}
	return session, nil
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	return voteModel{
		SessionID:   vote.SessionID,
		VoterID:     vote.VoterID,
		CandidateID: vote.CandidateID,
		Decision:    string(vote.Decision),
		SubmittedAt: vote.SubmittedAt,
	}
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		SessionID:   m.SessionID,
		VoterID:     m.VoterID,
		CandidateID: m.CandidateID,
		Decision:    entities.Decision(m.Decision),
		SubmittedAt: m.SubmittedAt,
	}
}

func tallyModelFromEntity(tally entities.Tally) (tallyModel, error) {
	viewers := tally.Viewers
	if viewers == nil {
		viewers = []string{}
	}
	raw, err := json.Marshal(viewers)
	if err != nil {
		return tallyModel{}, err
	}
	return tallyModel{
		SessionID:   tally.SessionID,
		CandidateID: tally.CandidateID,
		Likes:       tally.Likes,
		Passes:      tally.Passes,
		Viewers:     raw,
		UpdatedAt:   tally.UpdatedAt,
	}, nil
}

func (m tallyModel) toEntity() (entities.Tally, error) {
	tally := entities.Tally{
		SessionID:   m.SessionID,
		CandidateID: m.CandidateID,
		Likes:       m.Likes,
		Passes:      m.Passes,
		UpdatedAt:   m.UpdatedAt,
	}
	if len(m.Viewers) > 0 {
		if err := json.Unmarshal(m.Viewers, &tally.Viewers); err != nil {
			return entities.Tally{}, err
		}
	}
	return tally, nil
}
