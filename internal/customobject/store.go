package customobject

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("custom object not found")

// Object is a JSON value stored under (container, key).
type Object struct {
	Container      string          `json:"container"`
	Key            string          `json:"key"`
	Value          json.RawMessage `json:"value"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"createdAt"`
	LastModifiedAt time.Time       `json:"lastModifiedAt"`
}

// Store is a generic key-value persistence facility keyed by (container, key).
// Upsert creates the object when absent and overwrites it otherwise.
type Store interface {
	Get(ctx context.Context, container, key string) (*Object, error)
	Upsert(ctx context.Context, container, key string, value any) error
	List(ctx context.Context, container string, offset, limit int) ([]Object, int, error)
}
