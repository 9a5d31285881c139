package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	stakeledger "quorum/contexts/settlement-core/stake-ledger"
	stakeerrors "quorum/contexts/settlement-core/stake-ledger/domain/errors"
	stakehttp "quorum/contexts/settlement-core/stake-ledger/transport/http"
	superpositionengine "quorum/contexts/settlement-core/superposition-engine"
	engineerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
	enginehttp "quorum/contexts/settlement-core/superposition-engine/transport/http"
	"quorum/internal/platform/metrics"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "quorum/internal/platform/httpserver/docs"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	stake   stakeledger.Module
	engine  superpositionengine.Module
	metrics *metrics.Metrics
}

func New(
	stake stakeledger.Module,
	engine superpositionengine.Module,
	m *metrics.Metrics,
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
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		stake:   stake,
		engine:  engine,
		metrics: m,
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

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.handle("POST /v1/stake/deposit", s.handleStakeDeposit)
	s.handle("POST /v1/stake/withdraw", s.handleStakeWithdraw)
	s.handle("GET /v1/stake/{participant}", s.handleStakeBalance)

	s.handle("POST /v1/proposals", s.handleCreateProposal)
	s.handle("GET /v1/proposals/{proposal_id}", s.handleProposalStatus)
	s.handle("POST /v1/proposals/{proposal_id}/cancel", s.handleCancelProposal)
	s.handle("POST /v1/proposals/{proposal_id}/execute", s.handleExecuteProposal)

	s.handle("POST /v1/events", s.handleCreateEvent)
	s.handle("GET /v1/events/{event_id}", s.handleEventStatus)
	s.handle("GET /v1/events/{event_id}/tallies", s.handleEventTallies)
	s.handle("POST /v1/events/{event_id}/proposals", s.handleAddProposal)
	s.handle("POST /v1/events/{event_id}/activate", s.handleActivateEvent)
	s.handle("POST /v1/events/{event_id}/cancel", s.handleCancelEvent)
	s.handle("POST /v1/events/{event_id}/measure", s.handleMeasureEvent)
	s.handle("PUT /v1/events/{event_id}/votes", s.handleCastVote)
	s.handle("DELETE /v1/events/{event_id}/votes", s.handleRevokeVote)
	s.handle("GET /v1/events/{event_id}/votes/{voter}", s.handleVoterVote)
}

func (s *Server) handle(pattern string, handler http.HandlerFunc) {
	if s.metrics != nil {
		handler = s.metrics.Instrument(pattern, handler)
	}
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) handleStakeDeposit(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req stakehttp.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.stake.Handler.DepositHandler(r.Context(), userID, r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		writeStakeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStakeWithdraw(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req stakehttp.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.stake.Handler.WithdrawHandler(r.Context(), userID, r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		writeStakeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStakeBalance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.stake.Handler.BalanceHandler(r.Context(), r.PathValue("participant"))
	if err != nil {
		writeStakeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req enginehttp.CreateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.CreateProposalHandler(r.Context(), userID, req)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleProposalStatus(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseID(w, r, "proposal_id")
	if !ok {
		return
	}
	resp, err := s.engine.Handler.ProposalStatusHandler(r.Context(), proposalID)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelProposal(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	proposalID, ok := parseID(w, r, "proposal_id")
	if !ok {
		return
	}
	if err := s.engine.Handler.CancelProposalHandler(r.Context(), proposalID, userID); err != nil {
		writeEngineDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExecuteProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseID(w, r, "proposal_id")
	if !ok {
		return
	}
	if err := s.engine.Handler.ExecuteProposalHandler(r.Context(), proposalID); err != nil {
		writeEngineDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req enginehttp.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.CreateEventHandler(r.Context(), req)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleEventStatus(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseID(w, r, "event_id")
	if !ok {
		return
	}
	resp, err := s.engine.Handler.EventStatusHandler(r.Context(), eventID)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEventTallies(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseID(w, r, "event_id")
	if !ok {
		return
	}
	resp, err := s.engine.Handler.EventTalliesHandler(r.Context(), eventID)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddProposal(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseID(w, r, "event_id")
	if !ok {
		return
	}
	var req enginehttp.AddProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.engine.Handler.AddProposalHandler(r.Context(), eventID, req); err != nil {
		writeEngineDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseID(w, r, "event_id")
	if !ok {
		return
	}
	req := enginehttp.ActivateEventRequest{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}
	resp, err := s.engine.Handler.ActivateEventHandler(r.Context(), eventID, req)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseID(w, r, "event_id")
	if !ok {
		return
	}
	if err := s.engine.Handler.CancelEventHandler(r.Context(), eventID); err != nil {
		writeEngineDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMeasureEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseID(w, r, "event_id")
	if !ok {
		return
	}
	var req enginehttp.MeasureEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.MeasureEventHandler(r.Context(), eventID, req)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	eventID, ok := parseID(w, r, "event_id")
	if !ok {
		return
	}
	var req enginehttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.CastVoteHandler(r.Context(), eventID, userID, req)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevokeVote(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	eventID, ok := parseID(w, r, "event_id")
	if !ok {
		return
	}
	if err := s.engine.Handler.RevokeVoteHandler(r.Context(), eventID, userID); err != nil {
		writeEngineDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVoterVote(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseID(w, r, "event_id")
	if !ok {
		return
	}
	resp, err := s.engine.Handler.VoterVoteHandler(r.Context(), eventID, r.PathValue("voter"))
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	raw := strings.TrimSpace(r.PathValue(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func writeEngineDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engineerrors.ErrProposalNotFound):
		writeError(w, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, engineerrors.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event_not_found", err.Error())
	case errors.Is(err, engineerrors.ErrVoteNotFound):
		writeError(w, http.StatusNotFound, "vote_not_found", err.Error())
	case errors.Is(err, engineerrors.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, engineerrors.ErrInvalidState),
		errors.Is(err, engineerrors.ErrInvalidProposalState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, engineerrors.ErrInsufficientProposals):
		writeError(w, http.StatusConflict, "insufficient_proposals", err.Error())
	case errors.Is(err, engineerrors.ErrInsufficientStake):
		writeError(w, http.StatusConflict, "insufficient_stake", err.Error())
	case errors.Is(err, engineerrors.ErrWindowClosed):
		writeError(w, http.StatusConflict, "window_closed", err.Error())
	case errors.Is(err, engineerrors.ErrWindowOpen):
		writeError(w, http.StatusConflict, "window_open", err.Error())
	case errors.Is(err, engineerrors.ErrEntropyRequired):
		writeError(w, http.StatusBadRequest, "entropy_required", err.Error())
	case errors.Is(err, engineerrors.ErrEffectFailed):
		writeError(w, http.StatusBadGateway, "effect_failed", err.Error())
	case errors.Is(err, engineerrors.ErrMeasurementInvariant):
		writeError(w, http.StatusInternalServerError, "measurement_invariant", err.Error())
	case errors.Is(err, engineerrors.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, engineerrors.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeStakeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stakeerrors.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", err.Error())
	case errors.Is(err, stakeerrors.ErrInsufficientStake):
		writeError(w, http.StatusConflict, "insufficient_stake", err.Error())
	case errors.Is(err, stakeerrors.ErrStakeCommitted):
		writeError(w, http.StatusConflict, "stake_committed", err.Error())
	case errors.Is(err, stakeerrors.ErrCustodyUnavailable):
		writeError(w, http.StatusBadGateway, "custody_unavailable", err.Error())
	case errors.Is(err, stakeerrors.ErrIdempotencyKeyRequired):
		writeError(w, http.StatusBadRequest, "idempotency_key_required", err.Error())
	case errors.Is(err, stakeerrors.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, stakeerrors.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.Is(err, stakeerrors.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, enginehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
