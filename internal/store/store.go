package store

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultQueryTimeout bounds each store round-trip when no timeout is configured.
const DefaultQueryTimeout = 5 * time.Second

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// marshalList encodes a slice as a JSON array, never as null.
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}
