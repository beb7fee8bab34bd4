package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// item wraps a stored value with metadata for the file and S3 stores
type item struct {
	Value      []byte    `json:"value"`
	Expiration time.Time `json:"expiration,omitzero"`
	CreatedAt  time.Time `json:"created_at"`
	Size       int       `json:"size,omitempty"`
}

func newItem(value []byte, now time.Time, ttl time.Duration) item {
	return item{
		Value:      value,
		Expiration: expiration(now, ttl),
		CreatedAt:  now,
		Size:       len(value),
	}
}

func decodeItem(key string, data []byte) (item, error) {
	var it item
	if err := json.Unmarshal(data, &it); err != nil {
		return item{}, fmt.Errorf("failed to decode stored item %s: %w", key, err)
	}
	return it, nil
}
