// Package storage is the durable local key-value layer everything else
// builds on. Values are opaque bytes; higher layers store JSON documents.
package storage

import "context"

// Repository is the key-value contract. Get returns (nil, nil) when the key
// is absent so callers can distinguish "missing" from "failed".
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	ListPrefix(ctx context.Context, prefix string) (map[string][]byte, error)
	DeletePrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
}
