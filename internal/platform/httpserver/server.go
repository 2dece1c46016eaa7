package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	consensusengine "overlap/contexts/meetup-live/consensus-engine"
	wsadapter "overlap/contexts/meetup-live/consensus-engine/adapters/ws"
	consensuserrors "overlap/contexts/meetup-live/consensus-engine/domain/errors"
	consensushttp "overlap/contexts/meetup-live/consensus-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "overlap/internal/platform/httpserver/docs"
)

type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	consensus consensusengine.Module
	streams   *wsadapter.Handler
}

func New(
	consensus consensusengine.Module,
	streams *wsadapter.Handler,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		consensus: consensus,
		streams:   streams,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/consensus/sessions", s.handleInitSession)
	s.mux.HandleFunc("PUT /v1/consensus/sessions/{session_id}", s.handleInitNamedSession)
	s.mux.HandleFunc("GET /v1/consensus/sessions/{session_id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /v1/consensus/sessions/{session_id}", s.handleResetSession)
	s.mux.HandleFunc("POST /v1/consensus/sessions/{session_id}/restart", s.handleRestartSession)
	s.mux.HandleFunc("POST /v1/consensus/sessions/{session_id}/finalize", s.handleFinalize)
	s.mux.HandleFunc("POST /v1/consensus/sessions/{session_id}/votes", s.handleSubmitVote)
	s.mux.HandleFunc("POST /v1/consensus/sessions/{session_id}/advance", s.handleAdvance)
	s.mux.HandleFunc("GET /v1/consensus/sessions/{session_id}/tallies", s.handleTallies)
	s.mux.HandleFunc("GET /v1/consensus/sessions/{session_id}/standings", s.handleStandings)
	s.mux.HandleFunc("GET /v1/consensus/sessions/{session_id}/should-reset", s.handleShouldReset)

	if s.streams != nil {
		s.mux.Handle("GET /v1/consensus/sessions/{session_id}/stream", s.streams.SessionStream())
		s.mux.Handle("GET /v1/consensus/sessions/{session_id}/stream/tallies", s.streams.TallyStream())
	}
}

func (s *Server) handleInitSession(w http.ResponseWriter, r *http.Request) {
	var req consensushttp.InitSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeConsensusError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.consensus.Handler.InitSessionHandler(r.Context(), "", req)
	if err != nil {
		writeConsensusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleInitNamedSession(w http.ResponseWriter, r *http.Request) {
	var req consensushttp.InitSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeConsensusError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.consensus.Handler.InitSessionHandler(r.Context(), r.PathValue("session_id"), req)
	if err != nil {
		writeConsensusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	resp, err := s.consensus.Handler.GetSessionHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeConsensusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.consensus.Handler.ResetSessionHandler(r.Context(), r.PathValue("session_id")); err != nil {
		writeConsensusDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestartSession(w http.ResponseWriter, r *http.Request) {
	var req consensushttp.RestartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeConsensusError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.consensus.Handler.RestartSessionHandler(r.Context(), r.PathValue("session_id"), req)
	if err != nil {
		writeConsensusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req consensushttp.FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeConsensusError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.consensus.Handler.FinalizeHandler(r.Context(), r.PathValue("session_id"), req)
	if err != nil {
		writeConsensusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	var req consensushttp.SubmitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeConsensusError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.consensus.Handler.SubmitVoteHandler(r.Context(), r.PathValue("session_id"), req)
	if err != nil {
		writeConsensusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.consensus.Handler.AdvanceHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeConsensusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTallies(w http.ResponseWriter, r *http.Request) {
	resp, err := s.consensus.Handler.TalliesHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeConsensusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	resp, err := s.consensus.Handler.StandingsHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeConsensusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShouldReset(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	resp, err := s.consensus.Handler.ShouldResetHandler(
		r.Context(),
		r.PathValue("session_id"),
		query.Get("new_category"),
		query.Get("current_category"),
	)
	if err != nil {
		writeConsensusDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeConsensusDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, consensuserrors.ErrInvalidSessionInput):
		writeConsensusError(w, http.StatusBadRequest, "invalid_session_input", err.Error())
	case errors.Is(err, consensuserrors.ErrInvalidVoteInput):
		writeConsensusError(w, http.StatusBadRequest, "invalid_vote_input", err.Error())
	case errors.Is(err, consensuserrors.ErrSessionNotFound):
		writeConsensusError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, consensuserrors.ErrCandidateNotInQueue):
		writeConsensusError(w, http.StatusUnprocessableEntity, "candidate_not_in_queue", err.Error())
	case errors.Is(err, consensuserrors.ErrSessionFinished):
		writeConsensusError(w, http.StatusConflict, "session_finished", err.Error())
	case errors.Is(err, consensuserrors.ErrConflict):
		writeConsensusError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, consensuserrors.ErrBusy):
		writeConsensusError(w, http.StatusServiceUnavailable, "busy", err.Error())
	default:
		writeConsensusError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeConsensusError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, consensushttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
