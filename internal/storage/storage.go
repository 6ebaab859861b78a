// Package storage keeps the original bytes of uploaded documents.
package storage

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidKey = errors.New("invalid storage key")

// Store persists uploaded files under opaque keys.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

func validKey(key string) bool {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return false
	}
	return true
}
