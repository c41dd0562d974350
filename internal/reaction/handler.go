package reaction

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

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.Service.Toggle(r.Context(), middleware.CallerID(r), chi.URLParam(r, "messageID"), req.Emoji)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Service.List(r.Context(), chi.URLParam(r, "messageID"), middleware.CallerID(r))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}
