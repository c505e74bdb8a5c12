package service

import (
	"fmt"
	"os"
	"runtime"

	"github.com/himanishpuri/bandprint/internal/audio"
	"github.com/himanishpuri/bandprint/internal/fingerprint"
	"github.com/himanishpuri/bandprint/internal/storage"
	"github.com/himanishpuri/bandprint/pkg/logger"
	"github.com/himanishpuri/bandprint/pkg/models"
)

// Logger is the logging surface the service needs. *logger.Logger
// satisfies it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// IndexBackend selects where fingerprints are stored.
type IndexBackend string

const (
	BackendSQLite IndexBackend = "sqlite"
	BackendBadger IndexBackend = "badger"
	BackendMemory IndexBackend = "memory"
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (IndexBackend, error) {
	switch b := IndexBackend(s); b {
	case BackendSQLite, BackendBadger, BackendMemory:
		return b, nil
	}
	return "", fmt.Errorf("%w: unknown index backend %q", models.ErrConfiguration, s)
}

type Config struct {
	// DBPath is the SQLite catalog file. Empty falls back to
	// BANDPRINT_DB_PATH, then storage.DefaultDBFile.
	DBPath     string
	Backend    IndexBackend
	BadgerDir  string
	TempDir    string
	SampleRate int
	ChunkSize  int
	Bands      []int
	FuzzFactor int
	Workers    int
	MaxResults int
	Logger     Logger

	// Index and Catalog override the backends opened from the paths above.
	// The caller keeps ownership of anything passed in here.
	Index   storage.FingerprintStore
	Catalog storage.Catalog
}

type Option func(*Config)

func DefaultConfig() Config {
	return Config{
		DBPath:     storage.DefaultDBFile,
		Backend:    BackendSQLite,
		BadgerDir:  storage.DefaultBadgerDir,
		TempDir:    os.TempDir(),
		SampleRate: audio.DefaultSampleRate,
		ChunkSize:  fingerprint.DefaultChunkSize,
		Bands:      fingerprint.DefaultBoundaries,
		FuzzFactor: fingerprint.DefaultFuzzFactor,
		Workers:    runtime.NumCPU(),
	}
}

func WithDBPath(path string) Option {
	return func(c *Config) { c.DBPath = path }
}

func WithIndexBackend(b IndexBackend) Option {
	return func(c *Config) { c.Backend = b }
}

func WithBadgerDir(dir string) Option {
	return func(c *Config) { c.BadgerDir = dir }
}

func WithTempDir(dir string) Option {
	return func(c *Config) { c.TempDir = dir }
}

func WithSampleRate(rate int) Option {
	return func(c *Config) { c.SampleRate = rate }
}

func WithChunkSize(n int) Option {
	return func(c *Config) { c.ChunkSize = n }
}

// WithBands replaces the band boundary table.
func WithBands(boundaries []int) Option {
	return func(c *Config) { c.Bands = boundaries }
}

func WithFuzzFactor(f int) Option {
	return func(c *Config) { c.FuzzFactor = f }
}

// WithWorkers sets the number of partitions used for key point extraction,
// aggregation and batch indexing. 1 runs everything sequentially.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithMaxResults caps the ranked list. 0 keeps every candidate.
func WithMaxResults(n int) Option {
	return func(c *Config) { c.MaxResults = n }
}

func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func WithIndex(idx storage.FingerprintStore) Option {
	return func(c *Config) { c.Index = idx }
}

func WithCatalog(cat storage.Catalog) Option {
	return func(c *Config) { c.Catalog = cat }
}

func (c *Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", models.ErrConfiguration, c.SampleRate)
	}
	if c.FuzzFactor < 1 {
		return fmt.Errorf("%w: fuzz factor must be at least 1, got %d", models.ErrConfiguration, c.FuzzFactor)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.MaxResults < 0 {
		return fmt.Errorf("%w: max results must not be negative", models.ErrConfiguration)
	}
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	if c.Logger == nil {
		c.Logger = logger.GetLogger().With("recognizer")
	}
	return nil
}
