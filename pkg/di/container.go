// Package di wires configuration, logging, stores, and the API server
// into ready-to-use components. Commands ask the container for what they
// need instead of constructing the stack by hand.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ssargent/muninn/pkg/api"
	"github.com/ssargent/muninn/pkg/config"
	"github.com/ssargent/muninn/pkg/index"
	"github.com/ssargent/muninn/pkg/logging"
	"github.com/ssargent/muninn/pkg/logging/logruslog"
	"github.com/ssargent/muninn/pkg/logging/zaplog"
	"github.com/ssargent/muninn/pkg/snapshot"
	"github.com/ssargent/muninn/pkg/store"
)

// Container holds all the dependencies for the application. Components
// are opened lazily and memoized, so a CLI command pays only for what it
// touches.
type Container struct {
	Config *config.Config
	Logger logging.Logger

	runs   *store.RunStore
	states *index.StateIndex
	pins   *snapshot.Store
	server *api.Server
}

// NewContainer creates a container around a loaded configuration.
func NewContainer(cfg *config.Config) (*Container, error) {
	logger, err := buildLogger(cfg)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config: cfg,
		Logger: logger,
	}, nil
}

// RunStore opens the run store on first use.
func (c *Container) RunStore() (*store.RunStore, error) {
	if c.runs != nil {
		return c.runs, nil
	}

	rs, err := store.NewRunStore(store.RunStoreConfig{
		DataDir:       c.Config.DataDir,
		FsyncInterval: time.Duration(c.Config.FsyncInterval),
		Logger:        c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create run store: %w", err)
	}

	if _, err := rs.Open(); err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}

	c.runs = rs
	return rs, nil
}

// StateIndex returns the field index over stored states, built from the
// run store on first use. The log is the source of truth; the index is
// rebuilt rather than persisted.
func (c *Container) StateIndex() (*index.StateIndex, error) {
	if c.states != nil {
		return c.states, nil
	}

	rs, err := c.RunStore()
	if err != nil {
		return nil, err
	}

	si := index.NewStateIndex(index.DefaultIndexOrder)
	entries, err := rs.Scan(context.Background(), "")
	if err != nil {
		return nil, fmt.Errorf("scan runs for indexing: %w", err)
	}
	indexed := 0
	for entry := range entries {
		si.Insert(entry.ID, entry.State)
		indexed++
	}

	c.Logger.Debug("state index built", logging.Fields{"runs": indexed})
	c.states = si
	return si, nil
}

// Snapshots opens the snapshot store on first use.
func (c *Container) Snapshots() (*snapshot.Store, error) {
	if c.pins != nil {
		return c.pins, nil
	}

	st, err := snapshot.Open(c.Config.SnapshotDir)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	c.pins = st
	return st, nil
}

// Server assembles the API server over the container's store, index,
// and snapshot store.
func (c *Container) Server() (*api.Server, error) {
	if c.server != nil {
		return c.server, nil
	}

	rs, err := c.RunStore()
	if err != nil {
		return nil, err
	}
	si, err := c.StateIndex()
	if err != nil {
		return nil, err
	}
	pins, err := c.Snapshots()
	if err != nil {
		return nil, err
	}

	metrics := api.NewMetrics(prometheus.DefaultRegisterer)
	serverConfig := api.ServerConfig{
		Port:   c.Config.Port,
		Bind:   c.Config.Bind,
		APIKey: c.Config.Security.APIKey,
	}

	c.server = api.NewServer(rs, si, pins, serverConfig, metrics)
	return c.server, nil
}

// Close releases everything the container opened. Safe to call when
// nothing was.
func (c *Container) Close() error {
	var firstErr error

	if c.pins != nil {
		if err := c.pins.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.pins = nil
	}
	if c.runs != nil {
		if err := c.runs.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.runs = nil
	}

	return firstErr
}

// buildLogger picks the logging backend from config. The json format
// goes through zap, text through logrus; unknown levels fall back to
// each backend's default rather than failing startup.
func buildLogger(cfg *config.Config) (logging.Logger, error) {
	switch cfg.Logging.Format {
	case "json":
		zapConfig := zap.NewProductionConfig()
		if lvl, err := zapcore.ParseLevel(cfg.Logging.Level); err == nil {
			zapConfig.Level = zap.NewAtomicLevelAt(lvl)
		}
		zl, err := zapConfig.Build()
		if err != nil {
			return nil, fmt.Errorf("build zap logger: %w", err)
		}
		return zaplog.New(zl), nil

	case "text", "":
		ll := logrus.New()
		ll.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
			ll.SetLevel(lvl)
		}
		return logruslog.New(logrus.NewEntry(ll)), nil

	default:
		return nil, fmt.Errorf("unknown log format: %q", cfg.Logging.Format)
	}
}
