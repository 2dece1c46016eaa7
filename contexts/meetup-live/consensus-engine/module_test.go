package consensusengine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	consensusengine "overlap/contexts/meetup-live/consensus-engine"
	domainerrors "overlap/contexts/meetup-live/consensus-engine/domain/errors"
	httptransport "overlap/contexts/meetup-live/consensus-engine/transport/http"
	"overlap/internal/platform/messaging"
)

// End-to-end walk through one meetup decision over the handler facade:
// init, swipe to a banner, finalize, read standings, then restart.
func TestModuleDecisionFlow(t *testing.T) {
	bus := messaging.NewBus(nil)
	module := consensusengine.NewInMemoryModule(bus, bus, nil)
	handler := module.Handler
	ctx := context.Background()

	session, err := handler.InitSessionHandler(ctx, "meetup-42", httptransport.InitSessionRequest{
		ParticipantCount: 4,
		Candidates: []httptransport.CandidateDTO{
			{ID: "c1", Name: "Bouldering", Category: "sports"},
			{ID: "c2", Name: "Ramen", Category: "food"},
			{ID: "c3", Name: "Arcade", Category: "games"},
		},
	})
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if session.SessionID != "meetup-42" || len(session.Queue) != 3 || session.Finished {
		t.Fatalf("unexpected session: %+v", session)
	}

	for i := 0; i < 3; i++ {
		_, err = handler.SubmitVoteHandler(ctx, "meetup-42", httptransport.SubmitVoteRequest{
			VoterID:     fmt.Sprintf("v%d", i+1),
			CandidateID: "c1",
			Decision:    "like",
		})
		if err != nil {
			t.Fatalf("vote %d failed: %v", i+1, err)
		}
	}
	last, err := handler.SubmitVoteHandler(ctx, "meetup-42", httptransport.SubmitVoteRequest{
		VoterID:     "v4",
		CandidateID: "c1",
		Decision:    "pass",
	})
	if err != nil {
		t.Fatalf("final vote failed: %v", err)
	}
	if last.Tally.Likes != 3 || last.Tally.Passes != 1 || last.Tally.Viewers != 4 {
		t.Fatalf("unexpected tally: %+v", last.Tally)
	}
	if last.Banner == nil || last.Banner.Type != "great-match" || last.Banner.Score != 0.75 {
		t.Fatalf("expected a great-match banner at 0.75, got %+v", last.Banner)
	}

	finalized, err := handler.FinalizeHandler(ctx, "meetup-42", httptransport.FinalizeRequest{CandidateID: "c1"})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if finalized.FinalizedCandidate == nil || finalized.FinalizedCandidate.ID != "c1" || !finalized.Finished {
		t.Fatalf("unexpected finalized session: %+v", finalized)
	}
	if finalized.FinalizedAt == 0 {
		t.Fatalf("expected a finalize timestamp")
	}

	_, err = handler.SubmitVoteHandler(ctx, "meetup-42", httptransport.SubmitVoteRequest{
		VoterID: "v1", CandidateID: "c2", Decision: "like",
	})
	if !errors.Is(err, domainerrors.ErrSessionFinished) {
		t.Fatalf("expected vote rejection after finalize, got %v", err)
	}

	standings, err := handler.StandingsHandler(ctx, "meetup-42")
	if err != nil {
		t.Fatalf("standings failed: %v", err)
	}
	if len(standings.Items) != 1 || standings.Items[0].Candidate.ID != "c1" || standings.Items[0].Percentage != 75 {
		t.Fatalf("unexpected standings: %+v", standings.Items)
	}

	restarted, err := handler.RestartSessionHandler(ctx, "meetup-42", httptransport.RestartSessionRequest{
		Candidates: []httptransport.CandidateDTO{
			{ID: "c9", Name: "Karaoke", Category: "music"},
		},
	})
	if err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if restarted.SessionID != "meetup-42" || restarted.ParticipantCount != 4 {
		t.Fatalf("restart must keep the session identity: %+v", restarted)
	}
	if len(restarted.Queue) != 1 || restarted.Cursor != 0 || restarted.Finished || restarted.CurrentBanner != nil {
		t.Fatalf("expected a pristine restarted session: %+v", restarted)
	}
	tallies, err := handler.TalliesHandler(ctx, "meetup-42")
	if err != nil || len(tallies.Tallies) != 0 {
		t.Fatalf("expected empty tallies after restart, got %+v err=%v", tallies.Tallies, err)
	}
}

func TestModuleResetRemovesSession(t *testing.T) {
	module := consensusengine.NewInMemoryModule(nil, nil, nil)
	handler := module.Handler
	ctx := context.Background()

	if _, err := handler.InitSessionHandler(ctx, "meetup-7", httptransport.InitSessionRequest{
		ParticipantCount: 3,
		Candidates:       []httptransport.CandidateDTO{{ID: "c1"}},
	}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := handler.ResetSessionHandler(ctx, "meetup-7"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if _, err := handler.GetSessionHandler(ctx, "meetup-7"); !errors.Is(err, domainerrors.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestModuleShouldReset(t *testing.T) {
	module := consensusengine.NewInMemoryModule(nil, nil, nil)
	handler := module.Handler
	ctx := context.Background()

	if _, err := handler.InitSessionHandler(ctx, "meetup-9", httptransport.InitSessionRequest{
		ParticipantCount: 3,
		Candidates:       []httptransport.CandidateDTO{{ID: "c1", Category: "food"}},
	}); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	verdict, err := handler.ShouldResetHandler(ctx, "meetup-9", "hikes", "food")
	if err != nil {
		t.Fatalf("should-reset failed: %v", err)
	}
	// No swipe has happened yet, a category switch is free.
	if verdict.ShouldReset {
		t.Fatalf("expected no reset before the first swipe")
	}
}
