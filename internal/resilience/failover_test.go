// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailoverSelector_SequentialOrder(t *testing.T) {
	s := NewFailoverSelector([]string{"http://a/", "http://b/"}, 3)

	require.True(t, s.HasNext(0))
	url, err := s.Advance(0)
	require.NoError(t, err)
	assert.Equal(t, "http://a/", url)

	url, err = s.Advance(1)
	require.NoError(t, err)
	assert.Equal(t, "http://b/", url)

	// Wraps around once the list is consumed.
	url, err = s.Advance(2)
	require.NoError(t, err)
	assert.Equal(t, "http://a/", url)
}

func TestFailoverSelector_BudgetExhaustion(t *testing.T) {
	s := NewFailoverSelector([]string{"http://a/"}, 2)

	assert.True(t, s.HasNext(0))
	assert.True(t, s.HasNext(1))
	assert.False(t, s.HasNext(2))

	_, err := s.Advance(2)
	assert.ErrorIs(t, err, ErrNoMoreCandidates)
}

func TestFailoverSelector_NoCandidates(t *testing.T) {
	s := NewFailoverSelector(nil, 3)

	assert.False(t, s.HasNext(0))
	_, err := s.Advance(0)
	assert.ErrorIs(t, err, ErrNoMoreCandidates)
}

func TestFailoverSelector_DefaultMax(t *testing.T) {
	s := NewFailoverSelector([]string{"http://a/"}, 0)

	assert.True(t, s.HasNext(DefaultMaxFailovers-1))
	assert.False(t, s.HasNext(DefaultMaxFailovers))
}

func TestFailoverSelector_CandidatesCopied(t *testing.T) {
	src := []string{"http://a/"}
	s := NewFailoverSelector(src, 3)
	src[0] = "http://mutated/"

	url, err := s.Advance(0)
	require.NoError(t, err)
	assert.Equal(t, "http://a/", url)
}
