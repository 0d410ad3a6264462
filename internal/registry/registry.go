// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package registry tracks which stream session owns which origin URL, so a
// second start request for an already-ingested URL joins the existing
// session instead of double-ingesting. The Redis-backed implementation
// extends the same guarantee across relay instances.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Registry maps an origin URL to the id of the session ingesting it.
type Registry interface {
	// Acquire claims url for sessionID. When the URL is already claimed it
	// returns the existing owner's id and false.
	Acquire(ctx context.Context, url, sessionID string) (owner string, acquired bool, err error)
	// Release drops the claim, but only if sessionID still owns it.
	Release(ctx context.Context, url, sessionID string) error
	// Lookup returns the current owner, if any.
	Lookup(ctx context.Context, url string) (string, bool, error)
}

// Memory is the single-instance registry.
type Memory struct {
	mu     sync.Mutex
	owners map[string]string
}

func NewMemory() *Memory {
	return &Memory{owners: make(map[string]string)}
}

func (m *Memory) Acquire(_ context.Context, url, sessionID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.owners[url]; ok {
		return owner, false, nil
	}
	m.owners[url] = sessionID
	return sessionID, true, nil
}

func (m *Memory) Release(_ context.Context, url, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[url] == sessionID {
		delete(m.owners, url)
	}
	return nil
}

func (m *Memory) Lookup(_ context.Context, url string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[url]
	return owner, ok, nil
}

// ownerTTL bounds how long a crashed instance can hold a claim. Live
// sessions are expected to be released explicitly well before this.
const ownerTTL = time.Hour

// Redis coordinates ownership across relay instances via SET NX.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func ownerKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "streamrelay:stream:" + hex.EncodeToString(sum[:16])
}

func (r *Redis) Acquire(ctx context.Context, url, sessionID string) (string, bool, error) {
	key := ownerKey(url)
	ok, err := r.client.SetNX(ctx, key, sessionID, ownerTTL).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return sessionID, true, nil
	}
	owner, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		// Claim expired between SetNX and Get; reclaim.
		return r.Acquire(ctx, url, sessionID)
	}
	if err != nil {
		return "", false, err
	}
	return owner, false, nil
}

func (r *Redis) Release(ctx context.Context, url, sessionID string) error {
	key := ownerKey(url)
	owner, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if owner != sessionID {
		return nil
	}
	return r.client.Del(ctx, key).Err()
}

func (r *Redis) Lookup(ctx context.Context, url string) (string, bool, error) {
	owner, err := r.client.Get(ctx, ownerKey(url)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return owner, true, nil
}
