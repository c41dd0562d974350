// Package blob is the boundary to attachment storage: callers obtain an
// upload handle before sending, and exchange stored keys for time-bounded
// fetch URLs on read.
package blob

import "context"

type Store interface {
	// CreateUpload returns a fresh storage key and the URL to upload to.
	CreateUpload(ctx context.Context) (key, uploadURL string, err error)
	// ResolveURL exchanges a stored key for a time-bounded fetch URL.
	ResolveURL(ctx context.Context, key string) (string, error)
}
