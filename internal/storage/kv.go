// Package storage provides the durable key-value contract the engine hosts
// persist through. The engine assumes nothing about the backing technology,
// only that a Set is visible to every subsequent Get in the same process.
package storage

import "context"

type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes the value, overwriting any prior value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
