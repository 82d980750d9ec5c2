// Package blob stores uploaded files under generated keys, never under the
// name the user supplied.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotExist is returned when no object is stored under a key.
var ErrNotExist = errors.New("blob does not exist")

// Store is a flat key/value file store.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// NewKey returns a collision-free key such as letters/2026/10/15/<uuid>.pdf.
func NewKey(prefix, ext string, now time.Time) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	key := fmt.Sprintf("%s/%04d/%02d/%02d/%s", prefix, now.Year(), now.Month(), now.Day(), uuid.New())
	if ext != "" {
		key += "." + ext
	}
	return key
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, `\`) {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}
