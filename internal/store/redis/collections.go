package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Quranfi-Project/quranfi-web/internal/store"
)

// hashCollection keeps records as JSON documents in one hash, field = primary key.
// HSET and HDEL are atomic per record.
type hashCollection[T store.Record] struct {
	s    *Store
	name string
	key  string
}

func (c *hashCollection[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var rec T
	if c.s.closed.Load() {
		return rec, false, classify("get", c.name, errClosed)
	}

	data, err := c.s.client.HGet(ctx, c.key, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, classify("get", c.name, err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, false, classify("get", c.name, fmt.Errorf("failed to unmarshal %s: %w", id, err))
	}
	return rec, true, nil
}

func (c *hashCollection[T]) GetAll(ctx context.Context) ([]T, error) {
	if c.s.closed.Load() {
		return nil, classify("getAll", c.name, errClosed)
	}

	docs, err := c.s.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, classify("getAll", c.name, err)
	}

	out := make([]T, 0, len(docs))
	for id, doc := range docs {
		var rec T
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, classify("getAll", c.name, fmt.Errorf("failed to unmarshal %s: %w", id, err))
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *hashCollection[T]) Put(ctx context.Context, rec T) error {
	if c.s.closed.Load() {
		return classify("put", c.name, errClosed)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return classify("put", c.name, fmt.Errorf("failed to marshal %s: %w", rec.Key(), err))
	}
	if err := c.s.client.HSet(ctx, c.key, rec.Key(), data).Err(); err != nil {
		return classify("put", c.name, err)
	}
	return nil
}

func (c *hashCollection[T]) Delete(ctx context.Context, id string) error {
	if c.s.closed.Load() {
		return classify("delete", c.name, errClosed)
	}
	if err := c.s.client.HDel(ctx, c.key, id).Err(); err != nil {
		return classify("delete", c.name, err)
	}
	return nil
}
