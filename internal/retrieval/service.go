package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrUnavailable is returned when the index is not built or a lookup fails.
var ErrUnavailable = errors.New("retrieval index unavailable")

// Retriever returns reference passages for a free-text query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}

// Config controls how the index is built.
type Config struct {
	DataDir      string // empty uses the built-in documents
	ChunkSize    int
	ChunkOverlap int
}

// BuildFunc constructs an index.
type BuildFunc func() (*Index, error)

// DirBuilder builds from cfg.DataDir, or from the built-in documents when
// DataDir is empty.
func DirBuilder(cfg Config) BuildFunc {
	return func() (*Index, error) {
		var (
			docs []Document
			err  error
		)
		if cfg.DataDir == "" {
			docs, err = Builtin()
		} else {
			docs, err = LoadDir(cfg.DataDir)
		}
		if err != nil {
			return nil, err
		}
		return Build(docs, cfg.ChunkSize, cfg.ChunkOverlap)
	}
}

// Service owns the process-wide index. Init builds it at most once;
// lookups after that take no lock.
type Service struct {
	build  BuildFunc
	logger *slog.Logger

	mu    sync.Mutex
	ready atomic.Bool
	index atomic.Pointer[Index]
}

// NewService creates an uninitialized service. A nil logger falls back to
// slog.Default().
func NewService(build BuildFunc, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{build: build, logger: logger}
}

// Init builds the index if it has not been built yet. Concurrent callers
// block until the first build finishes; a failed build may be retried.
func (s *Service) Init() error {
	if s.ready.Load() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready.Load() {
		return nil
	}

	ix, err := s.build()
	if err != nil {
		return fmt.Errorf("build retrieval index: %w", err)
	}
	s.index.Store(ix)
	s.ready.Store(true)
	s.logger.Info("retrieval index initialized", "chunks", ix.Len())
	return nil
}

// Ready reports whether the index has been built.
func (s *Service) Ready() bool {
	return s != nil && s.ready.Load()
}

// Retrieve returns up to k passages for query. It never builds the index.
// A nil Service is valid and always unavailable.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	if !s.Ready() {
		return nil, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return s.index.Load().Search(query, k), nil
}

// Reset discards the index so the next Init rebuilds it.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready.Store(false)
	s.index.Store(nil)
}
