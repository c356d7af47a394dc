// Package localstore provides the key-value persistence layer shared by the
// state stores and the mock backend. It is a passive string surface: callers
// own their keys and must not interpret anyone else's.
package localstore

import "context"

// Well-known keys. Each store reads and writes only its own.
const (
	KeyToken    = "token"
	KeyUser     = "user"
	KeyTasks    = "tasks"
	KeyDarkMode = "darkMode"
)

// Store is a durable string key-value surface. Get reports whether the key
// was present; a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
