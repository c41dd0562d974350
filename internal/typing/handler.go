package typing

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

func (h *Handler) Set(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsTyping bool `json:"is_typing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.Service.Set(r.Context(), middleware.CallerID(r), chi.URLParam(r, "conversationID"), req.IsTyping)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Service.ListActive(r.Context(), chi.URLParam(r, "conversationID"), middleware.CallerID(r))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profiles)
}
