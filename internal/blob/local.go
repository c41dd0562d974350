package blob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Local stores blobs on disk and serves them over the API server itself,
// with HMAC-signed expiring URLs standing in for a hosted object store.
type Local struct {
	dir     string
	baseURL string
	secret  []byte
	ttl     time.Duration
}

func NewLocal(dir, baseURL string, secret []byte, ttl time.Duration) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	// Only an unset TTL gets the default; a negative one is honored so
	// callers (and tests) can mint already-expired URLs.
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &Local{dir: dir, baseURL: baseURL, secret: secret, ttl: ttl}, nil
}

func (l *Local) sign(method, key string, exp int64) string {
	mac := hmac.New(sha256.New, l.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", method, key, exp)
	return hex.EncodeToString(mac.Sum(nil))
}

func (l *Local) signedURL(method, key string) string {
	exp := time.Now().Add(l.ttl).Unix()
	return fmt.Sprintf("%s/blobs/%s?exp=%d&sig=%s", l.baseURL, key, exp, l.sign(method, key, exp))
}

func (l *Local) CreateUpload(ctx context.Context) (string, string, error) {
	key := uuid.NewString()
	return key, l.signedURL(http.MethodPut, key), nil
}

func (l *Local) ResolveURL(ctx context.Context, key string) (string, error) {
	if _, err := uuid.Parse(key); err != nil {
		return "", fmt.Errorf("malformed blob key %q", key)
	}
	if _, err := os.Stat(filepath.Join(l.dir, key)); err != nil {
		return "", fmt.Errorf("blob %s: %w", key, err)
	}
	return l.signedURL(http.MethodGet, key), nil
}

func (l *Local) verify(r *http.Request, key string) bool {
	// Keys are uuids; anything else is a traversal attempt.
	if _, err := uuid.Parse(key); err != nil {
		return false
	}
	exp, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil || time.Now().Unix() > exp {
		return false
	}
	want := l.sign(r.Method, key, exp)
	return hmac.Equal([]byte(want), []byte(r.URL.Query().Get("sig")))
}

// ServeUpload accepts the object body for a signed upload URL.
func (l *Local) ServeUpload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !l.verify(r, key) {
		http.Error(w, "invalid or expired signature", http.StatusForbidden)
		return
	}

	f, err := os.Create(filepath.Join(l.dir, key))
	if err != nil {
		http.Error(w, "store blob", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	if _, err := io.Copy(f, r.Body); err != nil {
		http.Error(w, "store blob", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// ServeFetch streams the object back for a signed fetch URL.
func (l *Local) ServeFetch(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !l.verify(r, key) {
		http.Error(w, "invalid or expired signature", http.StatusForbidden)
		return
	}
	http.ServeFile(w, r, filepath.Join(l.dir, key))
}
