package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"RWAPrice/internal/domain/models"
	drepo "RWAPrice/internal/domain/repository"
	xlogger "RWAPrice/pkg/logger"
)

const (
	indexFileName = "knowledge.index"
	docsFileName  = "knowledge.docs"
)

// indexFile is the on-disk layout of the similarity index.
type indexFile struct {
	Dimension int         `json:"dimension"`
	Vectors   [][]float32 `json:"vectors"`
}

// FileKnowledgeStore is an append-only store of text observations with a
// cosine-similarity index, persisted as a file pair: the vector index and a
// parallel document list. Vector i always belongs to document i; the pair is
// the store's entire durable state.
type FileKnowledgeStore struct {
	mu       sync.RWMutex
	dir      string
	embedder drepo.Embedder
	logger   *xlogger.Logger

	docs    []models.KnowledgeDocument
	vectors [][]float32
	dirty   bool // in-memory state is ahead of disk after a persist failure
}

// NewFileKnowledgeStore opens (or initializes) the store at dir. A persisted
// pair that fails the parity or dimension check is treated as corrupt and the
// store restarts empty rather than crashing.
func NewFileKnowledgeStore(dir string, embedder drepo.Embedder, logger *xlogger.Logger) (*FileKnowledgeStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("knowledge dir: %w", err)
	}
	s := &FileKnowledgeStore{dir: dir, embedder: embedder, logger: logger}
	s.load()
	return s, nil
}

// load reads the persisted pair. Any inconsistency resets to empty.
func (s *FileKnowledgeStore) load() {
	idxRaw, idxErr := os.ReadFile(filepath.Join(s.dir, indexFileName))
	docRaw, docErr := os.ReadFile(filepath.Join(s.dir, docsFileName))

	if os.IsNotExist(idxErr) && os.IsNotExist(docErr) {
		s.logger.Info("no persisted knowledge base, starting empty", xlogger.String("dir", s.dir))
		return
	}
	if idxErr != nil || docErr != nil {
		s.logger.Error("knowledge base artifacts unreadable, reinitializing",
			xlogger.String("dir", s.dir))
		return
	}

	var idx indexFile
	var docs []models.KnowledgeDocument
	if err := json.Unmarshal(idxRaw, &idx); err != nil {
		s.logger.Error("knowledge index corrupt, reinitializing", xlogger.Error(err))
		return
	}
	if err := json.Unmarshal(docRaw, &docs); err != nil {
		s.logger.Error("knowledge documents corrupt, reinitializing", xlogger.Error(err))
		return
	}

	if len(idx.Vectors) != len(docs) {
		s.logger.Error("knowledge index/document count mismatch, reinitializing",
			xlogger.Int("vectors", len(idx.Vectors)), xlogger.Int("documents", len(docs)))
		return
	}
	dim := s.embedder.Dimensions()
	if idx.Dimension != dim {
		s.logger.Error("knowledge index dimension mismatch, reinitializing",
			xlogger.Int("index", idx.Dimension), xlogger.Int("embedder", dim))
		return
	}
	for i, v := range idx.Vectors {
		if len(v) != dim {
			s.logger.Error("knowledge vector dimension mismatch, reinitializing",
				xlogger.Int("position", i), xlogger.Int("got", len(v)))
			return
		}
	}

	s.vectors = idx.Vectors
	s.docs = docs
	s.logger.Info("knowledge base loaded",
		xlogger.Int("documents", len(docs)), xlogger.Int("dimension", dim))
}

// Ingest embeds text and appends it with its vector, persisting both
// artifacts before returning. Embedding failure leaves no trace; persist
// failure leaves memory ahead of disk and the next successful ingest (or
// Close) re-persists the full pair.
func (s *FileKnowledgeStore) Ingest(ctx context.Context, text, source string, ts time.Time) error {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrEmbeddingFailed, err)
	}
	if len(vec) != s.embedder.Dimensions() {
		return fmt.Errorf("%w: got %d, store dimension %d", models.ErrDimensionMismatch, len(vec), s.embedder.Dimensions())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = append(s.docs, models.KnowledgeDocument{
		ID:        uuid.NewString(),
		Text:      text,
		Source:    source,
		Timestamp: ts.UTC(),
	})
	s.vectors = append(s.vectors, vec)

	if err := s.persistLocked(); err != nil {
		s.dirty = true
		return fmt.Errorf("%w: %v", models.ErrPersistFailed, err)
	}
	s.dirty = false
	return nil
}

// persistLocked writes both artifacts through temp files and renames. Caller
// holds the write lock. A crash between the two renames leaves a count
// mismatch, which load treats as corrupt.
func (s *FileKnowledgeStore) persistLocked() error {
	idx, err := json.Marshal(indexFile{Dimension: s.embedder.Dimensions(), Vectors: s.vectors})
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	docs, err := json.Marshal(s.docs)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}
	if err := writeAtomic(filepath.Join(s.dir, indexFileName), idx); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := writeAtomic(filepath.Join(s.dir, docsFileName), docs); err != nil {
		return fmt.Errorf("write documents: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Search returns the k nearest documents by cosine similarity.
func (s *FileKnowledgeStore) Search(ctx context.Context, query string, k int) ([]models.KnowledgeHit, error) {
	if k <= 0 {
		k = 5
	}
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingFailed, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]models.KnowledgeHit, 0, len(s.docs))
	for i, vec := range s.vectors {
		score, ok := cosine(qv, vec)
		if !ok {
			continue
		}
		hits = append(hits, models.KnowledgeHit{Document: s.docs[i], Score: score})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored documents.
func (s *FileKnowledgeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Close flushes any state that a failed persist left in memory only.
func (s *FileKnowledgeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistFailed, err)
	}
	s.dirty = false
	return nil
}

// cosine computes cosine similarity between equal-length vectors.
func cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

var _ drepo.KnowledgeStore = (*FileKnowledgeStore)(nil)
