// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWithComponent(t *testing.T) {
	logger := WithComponent("relay")
	assert.NotEqual(t, zerolog.Disabled, logger.GetLevel())
}

func TestContextRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithStreamID(ctx, "stream-1")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "stream-1", StreamIDFromContext(ctx))

	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Empty(t, StreamIDFromContext(nil))
}

func TestWithContext_NoFieldsReturnsSameLogger(t *testing.T) {
	logger := Base()
	enriched := WithContext(context.Background(), logger)
	assert.Equal(t, logger, enriched)
}
