package openai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "pgai-openai/internal/errors"
	"pgai-openai/internal/settings"
)

func TestCacheReusesClients(t *testing.T) {
	cache, err := NewCache(2)
	require.NoError(t, err)

	src := settings.Static{settings.KeyOpenAIAPIKey: "sk-a"}
	first, err := cache.AsyncClient(context.Background(), src, Options{})
	require.NoError(t, err)
	second, err := cache.AsyncClient(context.Background(), src, Options{})
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := cache.AsyncClient(context.Background(), src, Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, cache.Len())

	_, err = cache.AsyncClient(context.Background(), src, Options{BaseURL: "http://x/v1"})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len(), "least recently used client is evicted")
}

func TestCacheRequiresAPIKey(t *testing.T) {
	cache, err := NewCache(0)
	require.NoError(t, err)
	_, err = cache.AsyncClient(context.Background(), settings.Static{}, Options{})
	assert.True(t, xerrors.IsConfiguration(err))
	assert.Zero(t, cache.Len())
}
