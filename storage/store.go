package storage

import "errors"

// ErrNotFound is returned by Get when key has never been set or was deleted.
var ErrNotFound = errors.New("key not found")

// Store is a persistent string key-value store, the client's equivalent of
// the browser's local storage.
type Store interface {
	// Get returns the value for key or ErrNotFound
	Get(key string) (string, error)

	// Set creates or replaces the value for key
	Set(key, value string) error

	// Delete removes keys; missing keys are ignored
	Delete(keys ...string) error
}
