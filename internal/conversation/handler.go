package conversation

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

func (h *Handler) StartDirect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OtherUserID string `json:"other_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.Service.GetOrCreateDirect(r.Context(), middleware.CallerID(r), req.OtherUserID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string   `json:"name"`
		MemberIDs []string `json:"member_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.Service.CreateGroup(r.Context(), middleware.CallerID(r), req.Name, req.MemberIDs)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Service.ListMine(r.Context(), middleware.CallerID(r))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summaries)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Service.ListMembers(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profiles)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MessageID string `json:"message_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.Service.MarkRead(r.Context(), chi.URLParam(r, "conversationID"), middleware.CallerID(r), req.MessageID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
