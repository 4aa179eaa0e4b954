package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mavh/rallyrank/internal/match"
	"github.com/mavh/rallyrank/internal/matchmaking"
	"github.com/mavh/rallyrank/internal/queue"
	"github.com/mavh/rallyrank/internal/tournament"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// pool resolves the {mode} path segment to a matchmaking service.
func (s *Server) pool(w http.ResponseWriter, r *http.Request) (*matchmaking.Service, bool) {
	mode := match.GameMode(strings.ToUpper(r.PathValue("mode")))
	svc, ok := s.Pools[mode]
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown game mode %q", r.PathValue("mode")))
		return nil, false
	}
	return svc, true
}

type userRequest struct {
	UserID string `json:"userId"`
}

func decodeUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return "", false
	}
	return req.UserID, true
}

func (s *Server) JoinPoolHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := s.pool(w, r)
		if !ok {
			return
		}
		userID, ok := decodeUser(w, r)
		if !ok {
			return
		}

		result, err := svc.JoinPool(userID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) LeavePoolHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := s.pool(w, r)
		if !ok {
			return
		}
		userID, ok := decodeUser(w, r)
		if !ok {
			return
		}

		removed := svc.LeavePool(userID)
		respondJSON(w, http.StatusOK, map[string]bool{"removed": removed})
	}
}

func (s *Server) HeartbeatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := s.pool(w, r)
		if !ok {
			return
		}
		userID, ok := decodeUser(w, r)
		if !ok {
			return
		}

		if !svc.Heartbeat(userID) {
			respondError(w, http.StatusNotFound, "user is not in the pool")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) PoolStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := s.pool(w, r)
		if !ok {
			return
		}
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			respondError(w, http.StatusBadRequest, "userId is required")
			return
		}
		respondJSON(w, http.StatusOK, svc.GetPoolStatus(userID))
	}
}

func (s *Server) GetMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.Matches.FindByID(r.Context(), r.PathValue("id"))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, m)
	}
}

func (s *Server) AcknowledgeMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := decodeUser(w, r)
		if !ok {
			return
		}

		m, err := s.Matches.RecordAcknowledgement(r.Context(), r.PathValue("id"), userID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, m)
	}
}

func (s *Server) StartMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.Matches.MarkInProgress(r.Context(), r.PathValue("id"))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, m)
	}
}

type resultRequest struct {
	WinnerID     *string `json:"winnerId"`
	Player1Score int     `json:"player1Score"`
	Player2Score int     `json:"player2Score"`
}

func (s *Server) MatchResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resultRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid result payload")
			return
		}

		m, err := s.Lifecycle.CompleteMatch(r.Context(), r.PathValue("id"), req.WinnerID, req.Player1Score, req.Player2Score)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, m)
	}
}

func (s *Server) PlayerMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matches, err := s.Matches.FindByPlayerID(r.Context(), r.PathValue("id"))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, matches)
	}
}

func (s *Server) CreateTournamentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params tournament.CreateParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			respondError(w, http.StatusBadRequest, "invalid tournament payload")
			return
		}

		t, err := s.Tournaments.CreateTournament(r.Context(), params)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, t)
	}
}

func (s *Server) GetTournamentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := s.Tournaments.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	}
}

func (s *Server) CancelTournamentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Tournaments.Cancel(r.Context(), r.PathValue("id")); err != nil {
			respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := decodeUser(w, r)
		if !ok {
			return
		}
		if err := s.Tournaments.Register(r.Context(), r.PathValue("id"), userID); err != nil {
			respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) UnregisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := decodeUser(w, r)
		if !ok {
			return
		}
		if err := s.Tournaments.Unregister(r.Context(), r.PathValue("id"), userID); err != nil {
			respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) RankingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rankings, err := s.Tournaments.Rankings(r.Context(), r.PathValue("id"))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rankings)
	}
}

func (s *Server) TournamentMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matches, err := s.Tournaments.Matches(r.Context(), r.PathValue("id"))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, matches)
	}
}

func (s *Server) ParticipantsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		participants, err := s.Tournaments.Participants(r.Context(), r.PathValue("id"))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, participants)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors onto HTTP status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, match.ErrMatchNotFound),
		errors.Is(err, tournament.ErrTournamentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tournament.ErrInvalidParams):
		status = http.StatusBadRequest
	case errors.Is(err, match.ErrNotAParticipant):
		status = http.StatusForbidden
	case errors.Is(err, match.ErrAckDeadlinePassed):
		status = http.StatusGone
	case errors.Is(err, queue.ErrDuplicateEntry),
		errors.Is(err, matchmaking.ErrWrongPool),
		errors.Is(err, tournament.ErrAlreadyRegistered),
		errors.Is(err, tournament.ErrNotRegistered),
		errors.Is(err, tournament.ErrTournamentFull),
		errors.Is(err, tournament.ErrRegistrationClosed),
		errors.Is(err, tournament.ErrNotEnoughPlayers),
		errors.Is(err, tournament.ErrInvalidState),
		errors.Is(err, match.ErrMatchAlreadyResolved),
		errors.Is(err, match.ErrInvalidMatchState):
		status = http.StatusConflict
	default:
		log.Error("Unhandled service error", "error", err)
	}
	respondError(w, status, err.Error())
}
