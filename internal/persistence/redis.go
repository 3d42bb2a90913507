// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"senatecount/internal/count"
)

// redisKV abstracts the minimal surface RedisCheckpointer needs, narrowing
// its client dependency down to two methods: tests substitute a fake without
// needing a real redis-server, and production code hands in a *redis.Client
// as-is.
type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisCheckpointer persists a count.Snapshot to a single Redis key after
// every round, and can reload it to resume a count.Engine from the last
// completed round instead of replaying from round 1. This is the concrete
// mechanism behind spec.md §9's requirement that parcel ordering survive
// serialisation across a resume.
type RedisCheckpointer struct {
	client redisKV
	key    string
	ttl    time.Duration
}

// NewRedisCheckpointer returns a checkpointer writing to key on client. A
// zero ttl means the checkpoint never expires on its own; callers that want
// automatic cleanup of stale checkpoints should set one comfortably longer
// than their longest expected count.
func NewRedisCheckpointer(client *redis.Client, key string, ttl time.Duration) *RedisCheckpointer {
	return &RedisCheckpointer{client: client, key: key, ttl: ttl}
}

// Save overwrites the checkpoint with snap's current state.
func (c *RedisCheckpointer) Save(ctx context.Context, snap count.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("persistence: marshalling snapshot for redis: %w", err)
	}
	if err := c.client.Set(ctx, c.key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("persistence: writing redis checkpoint %q: %w", c.key, err)
	}
	return nil
}

// Load returns the most recently saved Snapshot, or ok=false if no
// checkpoint exists under this key yet.
func (c *RedisCheckpointer) Load(ctx context.Context) (snap count.Snapshot, ok bool, err error) {
	s, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return count.Snapshot{}, false, nil
	}
	if err != nil {
		return count.Snapshot{}, false, fmt.Errorf("persistence: reading redis checkpoint %q: %w", c.key, err)
	}
	if err := json.Unmarshal([]byte(s), &snap); err != nil {
		return count.Snapshot{}, false, fmt.Errorf("persistence: decoding redis checkpoint %q: %w", c.key, err)
	}
	return snap, true, nil
}
