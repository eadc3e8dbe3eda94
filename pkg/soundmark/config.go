package soundmark

import (
	"io"
	"runtime"

	"github.com/himanishpuri/soundmark/pkg/soundmark/fingerprint"
)

type Config struct {
	DBPath   string
	Backend  Backend
	Logger   Logger
	Storage  Storage
	Pipeline fingerprint.Pipeline
	Workers  int
	// Progress receives the bulk indexing progress bar; nil disables it.
	Progress io.Writer
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithBackend(b Backend) Option {
	return func(c *Config) {
		c.Backend = b
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithStorage uses an already opened store instead of opening DBPath.
// The service takes ownership and closes it.
func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithDownsampleFactor(factor int) Option {
	return func(c *Config) {
		c.Pipeline.DownsampleFactor = factor
	}
}

func WithWindow(size fingerprint.WindowSize, overlap int) Option {
	return func(c *Config) {
		c.Pipeline.WindowSize = size
		c.Pipeline.Overlap = overlap
	}
}

func WithNeighborhoodSize(n int) Option {
	return func(c *Config) {
		c.Pipeline.NeighborhoodSize = n
	}
}

func WithBands(bands []fingerprint.Band) Option {
	return func(c *Config) {
		c.Pipeline.Bands = bands
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func WithProgress(w io.Writer) Option {
	return func(c *Config) {
		c.Progress = w
	}
}

func defaultConfig() *Config {
	return &Config{
		Backend:  BackendSQLite,
		Pipeline: fingerprint.DefaultPipeline(),
		Workers:  runtime.NumCPU(),
	}
}
