package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"socratic-tutor/internal/app"
	"socratic-tutor/internal/domain"
	"socratic-tutor/internal/logger"
)

// RESTHandler exposes the tutoring use cases as JSON endpoints.
type RESTHandler struct {
	service *app.TutorService
	log     *logger.Logger
}

func NewRESTHandler(service *app.TutorService, log *logger.Logger) *RESTHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &RESTHandler{service: service, log: log}
}

type startRequest struct {
	SessionID string `json:"sessionId"`
	ModuleID  string `json:"moduleId"`
	Name      string `json:"name"`
}

type turnRequest struct {
	Text string `json:"text"`
}

type statsPayload struct {
	Active int `json:"active"`
}

// Register mounts the handler's routes on r.
func (h *RESTHandler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", h.startSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", h.sessionStats).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.getSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.endSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/turns", h.submitTurn).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/next", h.next).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/bonus", h.bonus).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/transcript", h.transcript).Methods(http.MethodGet)
	api.HandleFunc("/modules/{id}/search", h.search).Methods(http.MethodGet)
	api.HandleFunc("/content/reload", h.reloadContent).Methods(http.MethodPost)
}

func (h *RESTHandler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ModuleID == "" {
		writeError(w, http.StatusBadRequest, "moduleId is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	view, err := h.service.Start(r.Context(), req.SessionID, req.ModuleID, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *RESTHandler) sessionStats(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ActiveSessions(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsPayload{Active: n})
}

func (h *RESTHandler) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *RESTHandler) endSession(w http.ResponseWriter, r *http.Request) {
	h.service.End(r.Context(), mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) submitTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid turn payload")
		return
	}
	outcome, err := h.service.Submit(r.Context(), mux.Vars(r)["id"], req.Text)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *RESTHandler) next(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Next(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *RESTHandler) bonus(w http.ResponseWriter, r *http.Request) {
	text, found, err := h.service.Bonus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bonusPayload{Text: text, Found: found})
}

func (h *RESTHandler) transcript(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.Transcript(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *RESTHandler) search(w http.ResponseWriter, r *http.Request) {
	hits, err := h.service.SearchQuestions(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (h *RESTHandler) reloadContent(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ReloadContent(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrModuleNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrModuleCompleted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}
