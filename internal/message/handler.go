package message

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

type sendRequest struct {
	Body           string `json:"body"`
	AttachmentKey  string `json:"attachment_key"`
	AttachmentName string `json:"attachment_name"`
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.Service.Send(r.Context(), middleware.CallerID(r), chi.URLParam(r, "conversationID"),
		req.Body, req.AttachmentKey, req.AttachmentName)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.Service.List(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.Service.Delete(r.Context(), middleware.CallerID(r), chi.URLParam(r, "messageID"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
