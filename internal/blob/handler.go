package blob

import (
	"net/http"

	"go-messenger/internal/httpx"
)

type Handler struct {
	Store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{Store: store}
}

// CreateUpload hands the client a storage key plus the URL to upload to.
// The key is what gets attached to a message afterwards.
func (h *Handler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	key, uploadURL, err := h.Store.CreateUpload(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{
		"key":        key,
		"upload_url": uploadURL,
	})
}
