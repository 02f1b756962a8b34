package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Store is the contract for binary asset persistence. Keys are always
// relative to a fixed root; implementations must reject anything that would
// escape it.
type Store interface {
	// Save writes a new asset and returns the generated key. Stored bytes are
	// never mutated in place; a changed image is a new key.
	Save(ctx context.Context, body io.Reader, suggestedName string) (string, error)
	// Put writes derived content at an exact key, replacing what was there.
	// Used for generated variants, never for user uploads.
	Put(ctx context.Context, key string, body io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) bool
	// Delete removes an asset. Deleting a key that does not exist is not an
	// error; callers treat any failure as non-fatal cleanup residue.
	Delete(ctx context.Context, key string) error
}

var ErrInvalidKey = errors.New("invalid asset key")

// timestamped layout keeps directory listings in rough creation order and
// makes collisions with re-uploaded filenames practically impossible
const keyTimeLayout = "20060102T150405.000000000Z"

// newKey combines an upload timestamp with the sanitized original filename.
func newKey(suggestedName string) string {
	name := path.Base(strings.TrimSpace(suggestedName))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	name = strings.ReplaceAll(name, " ", "_")

	return fmt.Sprintf("%s-%s", time.Now().UTC().Format(keyTimeLayout), name)
}

// cleanKey normalises and validates a store-relative key.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}

	cleaned := path.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidKey
	}

	return cleaned, nil
}
