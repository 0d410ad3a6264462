// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks configuration errors. They are surfaced immediately
// at load or session creation and never retried.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks policy constants for sanity. It fails fast so that a broken
// policy can never reach the retry loop.
func (c Config) Validate() error {
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: STREAM_RETRY_ATTEMPTS must be >= 0, got %d", ErrInvalidConfig, c.RetryAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: STREAM_RETRY_DELAY must be >= 0, got %s", ErrInvalidConfig, c.RetryDelay)
	}
	if c.TotalTimeout < 0 {
		return fmt.Errorf("%w: STREAM_TOTAL_TIMEOUT must be >= 0, got %s", ErrInvalidConfig, c.TotalTimeout)
	}
	if c.ChunkTimeout < 0 {
		return fmt.Errorf("%w: LIVE_CHUNK_TIMEOUT_SECONDS must be >= 0, got %s", ErrInvalidConfig, c.ChunkTimeout)
	}
	if c.Listen == "" {
		return fmt.Errorf("%w: STREAMRELAY_LISTEN must not be empty", ErrInvalidConfig)
	}
	return nil
}
