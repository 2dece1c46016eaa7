package firestoreadapter

import (
	"encoding/json"
	"time"

	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	"overlap/contexts/meetup-live/consensus-engine/ports"
)

type candidateDoc struct {
	CandidateID string `firestore:"id"`
	Name        string `firestore:"name"`
	Category    string `firestore:"category"`
}

type bannerDoc struct {
	CandidateID      string    `firestore:"candidateId"`
	Type             string    `firestore:"type"`
	Score            float64   `firestore:"score"`
	Likes            int       `firestore:"likes"`
	Viewers          int       `firestore:"viewers"`
	ParticipantCount int       `firestore:"participantCount"`
	ComputedAt       time.Time `firestore:"computedAt"`
}

type sessionDoc struct {
	ParticipantCount   int            `firestore:"participantCount"`
	Queue              []candidateDoc `firestore:"activityQueue"`
	Cursor             int            `firestore:"currentIndex"`
	CurrentBanner      *bannerDoc     `firestore:"currentBanner"`
	LastBannerUpdateAt *time.Time     `firestore:"lastBannerUpdate"`
	FinalizedCandidate *candidateDoc  `firestore:"finalizedActivity"`
	FinalizedAt        *time.Time     `firestore:"finalizedAt"`
	StartedAt          time.Time      `firestore:"sessionStarted"`
	Finished           bool           `firestore:"finished"`
}

type voteDoc struct {
	VoterID     string    `firestore:"userId"`
	CandidateID string    `firestore:"candidateId"`
	Decision    string    `firestore:"decision"`
	SubmittedAt time.Time `firestore:"timestamp"`
}

type tallyDoc struct {
	Likes     int       `firestore:"likes"`
	Passes    int       `firestore:"passes"`
	Viewers   []string  `firestore:"viewers"`
	UpdatedAt time.Time `firestore:"lastUpdated"`
}

type outboxDoc struct {
	EventType   string     `firestore:"eventType"`
	Payload     string     `firestore:"payload"`
	Published   bool       `firestore:"published"`
	CreatedAt   time.Time  `firestore:"createdAt"`
	PublishedAt *time.Time `firestore:"publishedAt"`
}

func sessionDocFromEntity(session entities.Session) sessionDoc {
	doc := sessionDoc{
		ParticipantCount:   session.ParticipantCount,
		Cursor:             session.Cursor,
		LastBannerUpdateAt: session.LastBannerUpdateAt,
		FinalizedAt:        session.FinalizedAt,
		StartedAt:          session.StartedAt,
		Finished:           session.Finished,
	}
	for _, candidate := range session.Queue {
		doc.Queue = append(doc.Queue, candidateDoc(candidate))
	}
	if session.CurrentBanner != nil {
		banner := *session.CurrentBanner
		doc.CurrentBanner = &bannerDoc{
			CandidateID:      banner.CandidateID,
			Type:             string(banner.Type),
			Score:            banner.Score,
			Likes:            banner.Likes,
			Viewers:          banner.Viewers,
			ParticipantCount: banner.ParticipantCount,
			ComputedAt:       banner.ComputedAt,
		}
	}
	if session.FinalizedCandidate != nil {
		candidate := candidateDoc(*session.FinalizedCandidate)
		doc.FinalizedCandidate = &candidate
	}
	return doc
}

func (d sessionDoc) toEntity(sessionID string) entities.Session {
	session := entities.Session{
		SessionID:          sessionID,
		ParticipantCount:   d.ParticipantCount,
		Cursor:             d.Cursor,
		LastBannerUpdateAt: d.LastBannerUpdateAt,
		FinalizedAt:        d.FinalizedAt,
		StartedAt:          d.StartedAt,
		Finished:           d.Finished,
	}
	for _, candidate := range d.Queue {
		session.Queue = append(session.Queue, entities.CandidateRef(candidate))
	}
	if d.CurrentBanner != nil {
		session.CurrentBanner = &entities.Banner{
			CandidateID:      d.CurrentBanner.CandidateID,
			Type:             entities.BannerType(d.CurrentBanner.Type),
			Score:            d.CurrentBanner.Score,
			Likes:            d.CurrentBanner.Likes,
			Viewers:          d.CurrentBanner.Viewers,
			ParticipantCount: d.CurrentBanner.ParticipantCount,
			ComputedAt:       d.CurrentBanner.ComputedAt,
		}
	}
	if d.FinalizedCandidate != nil {
		candidate := entities.CandidateRef(*d.FinalizedCandidate)
		session.FinalizedCandidate = &candidate
	}
	return session
}

func voteDocFromEntity(vote entities.Vote) voteDoc {
	return voteDoc{
		VoterID:     vote.VoterID,
		CandidateID: vote.CandidateID,
		Decision:    string(vote.Decision),
		SubmittedAt: vote.SubmittedAt,
	}
}

func (d voteDoc) toEntity(sessionID string) entities.Vote {
	return entities.Vote{
		SessionID:   sessionID,
		VoterID:     d.VoterID,
		CandidateID: d.CandidateID,
		Decision:    entities.Decision(d.Decision),
		SubmittedAt: d.SubmittedAt,
	}
}

func tallyDocFromEntity(tally entities.Tally) tallyDoc {
	viewers := tally.Viewers
	if viewers == nil {
		viewers = []string{}
	}
	return tallyDoc{
		Likes:     tally.Likes,
		Passes:    tally.Passes,
		Viewers:   viewers,
		UpdatedAt: tally.UpdatedAt,
	}
}

func (d tallyDoc) toEntity(sessionID string, candidateID string) entities.Tally {
	return entities.Tally{
		SessionID:   sessionID,
		CandidateID: candidateID,
		Likes:       d.Likes,
		Passes:      d.Passes,
		Viewers:     d.Viewers,
		UpdatedAt:   d.UpdatedAt,
	}
}

func outboxDocFromEnvelope(event ports.EventEnvelope) (outboxDoc, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return outboxDoc{}, err
	}
	return outboxDoc{
		EventType: event.EventType,
		Payload:   string(payload),
		Published: false,
		CreatedAt: event.OccurredAt,
	}, nil
}
