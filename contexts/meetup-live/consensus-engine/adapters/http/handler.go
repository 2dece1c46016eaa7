package httpadapter

import (
	"context"
	"log/slog"

	"overlap/contexts/meetup-live/consensus-engine/application/commands"
	"overlap/contexts/meetup-live/consensus-engine/application/queries"
	"overlap/contexts/meetup-live/consensus-engine/domain/entities"
	httptransport "overlap/contexts/meetup-live/consensus-engine/transport/http"
)

type Handler struct {
	Sessions commands.SessionUseCase
	Votes    commands.VoteUseCase
	Queries  queries.SessionUseCase
	Logger   *slog.Logger
}

func (h Handler) InitSessionHandler(ctx context.Context, sessionID string, req httptransport.InitSessionRequest) (httptransport.SessionResponse, error) {
	session, err := h.Sessions.InitSession(ctx, commands.InitSessionCommand{
		SessionID:        sessionID,
		ParticipantCount: req.ParticipantCount,
		Candidates:       candidatesFromDTO(req.Candidates),
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return MapSession(session), nil
}

func (h Handler) GetSessionHandler(ctx context.Context, sessionID string) (httptransport.SessionResponse, error) {
	session, err := h.Queries.GetSession(ctx, sessionID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return MapSession(session), nil
}

func (h Handler) SubmitVoteHandler(ctx context.Context, sessionID string, req httptransport.SubmitVoteRequest) (httptransport.SubmitVoteResponse, error) {
	result, err := h.Votes.SubmitVote(ctx, commands.SubmitVoteCommand{
		SessionID:   sessionID,
		VoterID:     req.VoterID,
		CandidateID: req.CandidateID,
		Decision:    entities.Decision(req.Decision),
	})
	if err != nil {
		return httptransport.SubmitVoteResponse{}, err
	}
	return httptransport.SubmitVoteResponse{
		Tally:    MapTally(result.Tally),
		Banner:   MapBanner(result.Banner),
		Advanced: result.Advanced,
	}, nil
}

func (h Handler) AdvanceHandler(ctx context.Context, sessionID string) (httptransport.AdvanceResponse, error) {
	advanced, err := h.Sessions.CheckAutoAdvance(ctx, sessionID)
	if err != nil {
		return httptransport.AdvanceResponse{}, err
	}
	return httptransport.AdvanceResponse{Advanced: advanced}, nil
}

func (h Handler) FinalizeHandler(ctx context.Context, sessionID string, req httptransport.FinalizeRequest) (httptransport.SessionResponse, error) {
	session, err := h.Sessions.Finalize(ctx, sessionID, req.CandidateID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return MapSession(session), nil
}

func (h Handler) ResetSessionHandler(ctx context.Context, sessionID string) error {
	return h.Sessions.ResetSession(ctx, sessionID)
}

func (h Handler) RestartSessionHandler(ctx context.Context, sessionID string, req httptransport.RestartSessionRequest) (httptransport.SessionResponse, error) {
	session, err := h.Sessions.RestartSession(ctx, commands.RestartSessionCommand{
		SessionID:        sessionID,
		Candidates:       candidatesFromDTO(req.Candidates),
		ParticipantCount: req.ParticipantCount,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return MapSession(session), nil
}

func (h Handler) TalliesHandler(ctx context.Context, sessionID string) (httptransport.TalliesResponse, error) {
	tallies, err := h.Queries.ListTallies(ctx, sessionID)
	if err != nil {
		return httptransport.TalliesResponse{}, err
	}
	out := make(map[string]httptransport.TallyResponse, len(tallies))
	for id, tally := range tallies {
		out[id] = MapTally(tally)
	}
	return httptransport.TalliesResponse{Tallies: out}, nil
}

func (h Handler) StandingsHandler(ctx context.Context, sessionID string) (httptransport.StandingsResponse, error) {
	standings, err := h.Queries.FinalStandings(ctx, sessionID)
	if err != nil {
		return httptransport.StandingsResponse{}, err
	}
	items := make([]httptransport.StandingItem, 0, len(standings))
	for _, standing := range standings {
		items = append(items, httptransport.StandingItem{
			Candidate:  MapCandidate(standing.Candidate),
			Likes:      standing.Likes,
			Passes:     standing.Passes,
			Viewers:    standing.Viewers,
			Score:      standing.Score,
			Percentage: standing.Percentage,
		})
	}
	return httptransport.StandingsResponse{Items: items}, nil
}

func (h Handler) ShouldResetHandler(ctx context.Context, sessionID string, newCategory string, currentCategory string) (httptransport.ShouldResetResponse, error) {
	session, err := h.Queries.GetSession(ctx, sessionID)
	if err != nil {
		return httptransport.ShouldResetResponse{}, err
	}
	return httptransport.ShouldResetResponse{
		ShouldReset: queries.ShouldReset(session, newCategory, currentCategory),
	}, nil
}

func candidatesFromDTO(dtos []httptransport.CandidateDTO) []entities.CandidateRef {
	refs := make([]entities.CandidateRef, 0, len(dtos))
	for _, dto := range dtos {
		refs = append(refs, entities.CandidateRef{
			CandidateID: dto.ID,
			Name:        dto.Name,
			Category:    dto.Category,
		})
	}
	return refs
}

func MapCandidate(ref entities.CandidateRef) httptransport.CandidateDTO {
	return httptransport.CandidateDTO{
		ID:       ref.CandidateID,
		Name:     ref.Name,
		Category: ref.Category,
	}
}

func MapBanner(banner *entities.Banner) *httptransport.BannerResponse {
	if banner == nil {
		return nil
	}
	return &httptransport.BannerResponse{
		CandidateID:      banner.CandidateID,
		Type:             string(banner.Type),
		Score:            banner.Score,
		Likes:            banner.Likes,
		Viewers:          banner.Viewers,
		ParticipantCount: banner.ParticipantCount,
		ComputedAt:       banner.ComputedAt.UnixMilli(),
	}
}

func MapTally(tally entities.Tally) httptransport.TallyResponse {
	return httptransport.TallyResponse{
		CandidateID: tally.CandidateID,
		Likes:       tally.Likes,
		Passes:      tally.Passes,
		Viewers:     tally.ViewerCount(),
		UpdatedAt:   tally.UpdatedAt.UnixMilli(),
	}
}

func MapSession(session entities.Session) httptransport.SessionResponse {
	resp := httptransport.SessionResponse{
		SessionID:        session.SessionID,
		ParticipantCount: session.ParticipantCount,
		Queue:            make([]httptransport.CandidateDTO, 0, len(session.Queue)),
		Cursor:           session.Cursor,
		CurrentBanner:    MapBanner(session.CurrentBanner),
		StartedAt:        session.StartedAt.UnixMilli(),
		Finished:         session.Finished,
	}
	for _, ref := range session.Queue {
		resp.Queue = append(resp.Queue, MapCandidate(ref))
	}
	if session.LastBannerUpdateAt != nil {
		resp.LastBannerUpdateAt = session.LastBannerUpdateAt.UnixMilli()
	}
	if session.FinalizedCandidate != nil {
		finalized := MapCandidate(*session.FinalizedCandidate)
		resp.FinalizedCandidate = &finalized
	}
	if session.FinalizedAt != nil {
		resp.FinalizedAt = session.FinalizedAt.UnixMilli()
	}
	return resp
}
