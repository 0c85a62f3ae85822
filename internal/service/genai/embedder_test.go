package genai

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := NewLocalEmbedder(64)
	a, err := e.Embed(context.Background(), "warehouse lease renewed")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "warehouse lease renewed")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestLocalEmbedderNormalized(t *testing.T) {
	e := NewLocalEmbedder(32)
	vec, err := e.Embed(context.Background(), "inflation steady interest unchanged")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	require.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestLocalEmbedderEmptyText(t *testing.T) {
	e := NewLocalEmbedder(16)
	vec, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, vec, 16)
	for _, v := range vec {
		require.Zero(t, v)
	}
}

func TestLocalEmbedderDefaultDims(t *testing.T) {
	e := NewLocalEmbedder(0)
	require.Equal(t, 128, e.Dimensions())
}

func TestNewEmbedderProviderSelection(t *testing.T) {
	e, err := NewEmbedder(context.Background(), EmbedderConfig{Provider: "local", Dimensions: 8})
	require.NoError(t, err)
	require.Equal(t, 8, e.Dimensions())
	require.Equal(t, "local:hashed-bow", e.Name())

	_, err = NewEmbedder(context.Background(), EmbedderConfig{Provider: "faiss"})
	require.Error(t, err)

	_, err = NewEmbedder(context.Background(), EmbedderConfig{Provider: "genai"})
	require.Error(t, err) // missing API key
}
