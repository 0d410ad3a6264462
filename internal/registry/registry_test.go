// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package registry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()

	owner, acquired, err := reg.Acquire(ctx, "http://a/live.m3u8", "sess-1")
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, "sess-1", owner)

	// Second claim joins the existing owner.
	owner, acquired, err = reg.Acquire(ctx, "http://a/live.m3u8", "sess-2")
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Equal(t, "sess-1", owner)

	// Release by a non-owner is a no-op.
	require.NoError(t, reg.Release(ctx, "http://a/live.m3u8", "sess-2"))
	_, ok, err := reg.Lookup(ctx, "http://a/live.m3u8")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, reg.Release(ctx, "http://a/live.m3u8", "sess-1"))
	_, ok, err = reg.Lookup(ctx, "http://a/live.m3u8")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_AcquireRelease(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	reg := NewRedis(client)

	owner, acquired, err := reg.Acquire(ctx, "http://a/live.m3u8", "sess-1")
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, "sess-1", owner)

	owner, acquired, err = reg.Acquire(ctx, "http://a/live.m3u8", "sess-2")
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Equal(t, "sess-1", owner)

	require.NoError(t, reg.Release(ctx, "http://a/live.m3u8", "sess-2"))
	owner, ok, err := reg.Lookup(ctx, "http://a/live.m3u8")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sess-1", owner)

	require.NoError(t, reg.Release(ctx, "http://a/live.m3u8", "sess-1"))
	_, ok, err = reg.Lookup(ctx, "http://a/live.m3u8")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_ClaimExpiry(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	reg := NewRedis(client)

	_, acquired, err := reg.Acquire(ctx, "http://a/", "sess-1")
	require.NoError(t, err)
	require.True(t, acquired)

	// A crashed instance's claim lapses after the TTL.
	srv.FastForward(ownerTTL + time.Second)

	owner, acquired, err := reg.Acquire(ctx, "http://a/", "sess-2")
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, "sess-2", owner)
}
