package user

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-messenger/internal/httpx"
	"go-messenger/internal/middleware"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

// webhookPayload mirrors the identity provider's sync events.
type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		ExternalID string `json:"external_id"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		AvatarURL  string `json:"avatar_url"`
	} `json:"data"`
}

func (h *Handler) IdentityWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if payload.Type != "user.created" && payload.Type != "user.updated" {
		// Unknown event types are acknowledged so the provider stops retrying.
		w.WriteHeader(http.StatusOK)
		return
	}

	d := payload.Data
	if _, err := h.Service.UpsertFromProvider(r.Context(), d.ExternalID, d.Name, d.Email, d.AvatarURL); err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.Me(r.Context(), middleware.CallerID(r))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListOthers(r.Context(), middleware.CallerID(r))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.Search(r.Context(), middleware.CallerID(r), r.URL.Query().Get("q"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Heartbeat(r.Context(), middleware.CallerID(r)); err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetOffline(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.SetOffline(r.Context(), middleware.CallerID(r)); err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.GetPresence(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
