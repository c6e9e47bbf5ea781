package fileio

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/gko/internal/docstore"
	"github.com/roach88/gko/internal/metrics"
)

// Dumper serialises a document store as a record stream.
type Dumper interface {
	Dump(ctx context.Context, w io.Writer) error
}

// StoreLoader receives a record stream into a freshly created store.
type StoreLoader interface {
	Load(ctx context.Context, r io.Reader) error
	Close() error
}

// StoreOpener creates or opens the store in dir.
type StoreOpener func(dir string) (StoreLoader, error)

// TokenGenerator produces unique tokens for temp-file names.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 tokens.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Option configures a fileio component.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	tokens  TokenGenerator
	opener  StoreOpener
	commit  func(src, dst string) error
}

func applyOptions(opts []Option) options {
	cfg := options{
		logger: slog.Default(),
		now:    time.Now,
		tokens: UUIDv7Generator{},
		opener: openDocstore,
		commit: copyFile,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *options) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *options) {
		cfg.metrics = m
	}
}

// WithClock overrides the wall clock used for temp names and generated ids.
func WithClock(now func() time.Time) Option {
	return func(cfg *options) {
		if now != nil {
			cfg.now = now
		}
	}
}

// WithTokenGenerator overrides the temp-file token source.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(cfg *options) {
		if g != nil {
			cfg.tokens = g
		}
	}
}

// WithStoreOpener overrides how imported streams are stored.
func WithStoreOpener(opener StoreOpener) Option {
	return func(cfg *options) {
		if opener != nil {
			cfg.opener = opener
		}
	}
}

// withCommit replaces the copy of the verified dump onto the target.
func withCommit(commit func(src, dst string) error) Option {
	return func(cfg *options) {
		if commit != nil {
			cfg.commit = commit
		}
	}
}

func openDocstore(dir string) (StoreLoader, error) {
	s, err := docstore.Open(dir)
	if err != nil {
		return nil, err
	}
	return s, nil
}
