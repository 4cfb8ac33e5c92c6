package database

import (
	"log/slog"
	"os"

	"github.com/naoina/toml"
	"github.com/pkg/errors"

	"github.com/pangolin-db/pangolin/kvdb"
)

// Config collects the tunables of a database. The zero value (or
// DefaultConfig) is a purely in-memory database.
type Config struct {
	// Path is the directory of the write-ahead log. Empty disables
	// persistence altogether.
	Path string

	// Cache is the megabytes of memory granted to the log's backing
	// store.
	Cache int

	// Handles is the number of file handles granted to the log's backing
	// store.
	Handles int

	// Backing overrides the log's backing store; tests use an in-memory
	// store here. Takes precedence over Path.
	Backing kvdb.KeyValueStore `toml:"-"`

	// Logger receives operational events. Defaults to slog's default
	// logger.
	Logger *slog.Logger `toml:"-"`
}

// DefaultConfig is the configuration of an in-memory database.
var DefaultConfig = Config{
	Cache:   16,
	Handles: 16,
}

// LoadConfig reads a Config from a TOML file, filling unset fields from
// DefaultConfig.
func LoadConfig(file string) (Config, error) {
	cfg := DefaultConfig

	f, err := os.Open(file)
	if err != nil {
		return cfg, errors.Wrap(err, "config: open")
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, errors.Wrap(err, "config: decode")
	}
	return cfg, nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
