package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"RWAPrice/internal/domain/models"
	"RWAPrice/internal/service/genai"
	xlogger "RWAPrice/pkg/logger"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

type failingEmbedder struct {
	dims int
	err  error
}

func (e failingEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, e.err }
func (e failingEmbedder) Dimensions() int                                  { return e.dims }
func (e failingEmbedder) Name() string                                     { return "failing" }

func newStore(t *testing.T, dir string) *FileKnowledgeStore {
	t.Helper()
	s, err := NewFileKnowledgeStore(dir, genai.NewLocalEmbedder(32), testLogger(t))
	require.NoError(t, err)
	return s
}

func TestIngestAndSearch(t *testing.T) {
	s := newStore(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Ingest(ctx, "Source: market\nTimestamp: x\nData: office tower sale price rising", "market", time.Now()))
	require.NoError(t, s.Ingest(ctx, "Source: macro\nTimestamp: x\nData: inflation steady interest unchanged", "macro", time.Now()))
	require.Equal(t, 2, s.Len())

	hits, err := s.Search(ctx, "office tower sale", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "market", hits[0].Document.Source)
	require.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchTopK(t *testing.T) {
	s := newStore(t, t.TempDir())
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Ingest(ctx, fmt.Sprintf("observation number %d", i), "feed", time.Now()))
	}

	hits, err := s.Search(ctx, "observation", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
}

func TestReloadAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := newStore(t, dir)
	require.NoError(t, s.Ingest(ctx, "warehouse lease renewed at higher rate", "market", time.Now()))
	require.NoError(t, s.Ingest(ctx, "consumer confidence dipped slightly", "macro", time.Now()))
	require.NoError(t, s.Close())

	reopened := newStore(t, dir)
	require.Equal(t, 2, reopened.Len())

	hits, err := reopened.Search(ctx, "warehouse lease", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "market", hits[0].Document.Source)
}

func TestCorruptIndexReinitializes(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := newStore(t, dir)
	require.NoError(t, s.Ingest(ctx, "some observation", "feed", time.Now()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "knowledge.index"), []byte("not json"), 0o644))

	reopened := newStore(t, dir)
	require.Zero(t, reopened.Len())

	// store remains usable after reinit
	require.NoError(t, reopened.Ingest(ctx, "fresh observation", "feed", time.Now()))
	require.Equal(t, 1, reopened.Len())
}

func TestParityMismatchReinitializes(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := newStore(t, dir)
	require.NoError(t, s.Ingest(ctx, "observation one", "feed", time.Now()))
	require.NoError(t, s.Ingest(ctx, "observation two", "feed", time.Now()))

	// drop the documents file contents to a single-element list
	require.NoError(t, os.WriteFile(filepath.Join(dir, "knowledge.docs"), []byte(`[{"id":"x","text":"observation one","source":"feed"}]`), 0o644))

	reopened := newStore(t, dir)
	require.Zero(t, reopened.Len())
}

func TestDimensionMismatchReinitializes(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileKnowledgeStore(dir, genai.NewLocalEmbedder(32), testLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Ingest(ctx, "observation", "feed", time.Now()))

	// reopen with a different embedding dimension
	reopened, err := NewFileKnowledgeStore(dir, genai.NewLocalEmbedder(64), testLogger(t))
	require.NoError(t, err)
	require.Zero(t, reopened.Len())
}

func TestEmbedFailureLeavesNoTrace(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileKnowledgeStore(dir, failingEmbedder{dims: 8, err: errors.New("api down")}, testLogger(t))
	require.NoError(t, err)

	ingErr := s.Ingest(context.Background(), "text", "feed", time.Now())
	require.ErrorIs(t, ingErr, models.ErrEmbeddingFailed)
	require.Zero(t, s.Len())

	_, statErr := os.Stat(filepath.Join(dir, "knowledge.index"))
	require.True(t, os.IsNotExist(statErr))
}

func TestConcurrentIngest(t *testing.T) {
	s := newStore(t, t.TempDir())
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Ingest(ctx, fmt.Sprintf("concurrent observation %d", i), "feed", time.Now())
		}(i)
	}
	wg.Wait()

	require.Equal(t, n, s.Len())

	// persisted artifacts agree with memory after the dust settles
	reopened := newStore(t, s.dir)
	require.Equal(t, n, reopened.Len())
}

func TestCloseIsIdempotent(t *testing.T) {
	s := newStore(t, t.TempDir())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
