// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/streamrelay/internal/origin"
	"github.com/ManuGH/streamrelay/internal/registry"
)

func TestManager_ShutdownLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fetcher := &fakeFetcher{fn: func(_ int, url string) (origin.Conn, error) {
		return &fakeConn{finalURL: url, block: true}, nil
	}}
	m := NewManager(testConfig(), fetcher, registry.NewMemory())

	for _, url := range []string{"http://a/live.m3u8", "http://b/live.m3u8"} {
		_, _, err := m.Start(context.Background(), StreamSpec{URL: url})
		require.NoError(t, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(shutdownCtx))
}
