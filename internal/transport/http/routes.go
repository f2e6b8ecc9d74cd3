package http

import (
	"errors"
	"net/http"
	"strings"

	"contest-engine/internal/app"
	"contest-engine/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (h *Handler) handleVerifyAccess(w http.ResponseWriter, r *http.Request) {
	var req verifyAccessRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.Enter(r.Context(), strings.TrimSpace(req.AccessCode), req.ParticipantID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSubmit grades the code against every test case before anything is written.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.Grade(r.Context(), app.GradeInput{
		ParticipantID: req.ParticipantID,
		QuestionID:    req.QuestionID,
		LevelNumber:   req.LevelNumber,
		Code:          req.Code,
		Language:      req.Language,
		TimeTaken:     req.TimeTaken,
		TimeRemaining: req.TimeRemaining,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.resolver.Run(r.Context(), domain.ExecRequest{Source: req.Code, Language: req.Language, Stdin: req.Stdin})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleViolation(w http.ResponseWriter, r *http.Request) {
	var req violationRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.RecordViolation(r.Context(), req.ParticipantID, req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.Heartbeat(r.Context(), req.ParticipantID, req.TimeRemaining)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.TeamName) == "" {
		writeError(w, http.StatusBadRequest, "teamName must not be blank")
		return
	}
	p, err := h.service.Register(r.Context(), req.TeamName, req.CollegeName, req.Members)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), chi.URLParam(r, "participantID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleDeleteParticipant(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteParticipant(r.Context(), chi.URLParam(r, "participantID")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetLocked(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.SetLocked(r.Context(), chi.URLParam(r, "participantID"), *req.Locked)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleExtraAttempt(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GrantExtraAttempt(r.Context(), chi.URLParam(r, "participantID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var closed *domain.NotYetOpenError
	switch {
	case errors.As(err, &closed):
		opensAt := closed.OpensAt
		writeJSON(w, http.StatusLocked, errorResponse{Error: err.Error(), OpensAt: &opensAt})
	case errors.Is(err, domain.ErrAttemptsExhausted):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTeamNameTaken), errors.Is(err, domain.ErrPersistenceConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnsupportedLanguage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSandbox):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
