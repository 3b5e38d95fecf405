package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/inercia/statesqa/pkg/config"
	"github.com/inercia/statesqa/pkg/lookup"
	"github.com/inercia/statesqa/pkg/store"
)

// app is what a command needs once configuration is resolved
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *sql.DB
}

// setup loads the configuration, applies the flag overrides and validates the result
func (o *Options) setup() (*app, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, err
	}

	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.Provider != "" {
		cfg.LLM.Provider = o.Provider
	}
	if o.Model != "" {
		cfg.LLM.Model = o.Model
	}
	if o.DataPath != "" {
		cfg.Data.Path = o.DataPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// commandContext returns the command context, canceled on SIGINT/SIGTERM or after the timeout
func (o *Options) commandContext(a *app) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	timeout := o.Timeout
	if timeout == 0 {
		timeout = a.cfg.Orchestrator.Timeout
	}
	if timeout <= 0 {
		return ctx, stop
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func (a *app) openStore(ctx context.Context) error {
	db, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

// loadDataset replaces the table with the configured CSV
func (a *app) loadDataset(ctx context.Context) (store.LoadStats, error) {
	path := a.cfg.DatasetPath()
	log := a.logger.WithFields(logrus.Fields{"path": path, "table": a.cfg.Store.TableName()})

	log.Info("loading dataset")
	stats, err := store.LoadCSV(ctx, a.db, a.cfg.Store.Dialect(), path, a.cfg.Store.TableName())
	if err != nil {
		return stats, err
	}
	log.WithFields(logrus.Fields{"rows": stats.Rows, "columns": stats.Columns}).Info("dataset loaded")
	return stats, nil
}

// ensureDataset loads the CSV when the table does not exist yet. Failing to
// check for the table is returned as is so an existing table is never dropped.
func (a *app) ensureDataset(ctx context.Context, reload bool) error {
	if !reload {
		table := a.cfg.Store.TableName()
		exists, err := store.TableExists(ctx, a.db, a.cfg.Store.Dialect(), table)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		a.logger.WithField("table", table).Debug("table not found, loading dataset")
	}
	_, err := a.loadDataset(ctx)
	return err
}

func (a *app) lookupService() *lookup.Service {
	return lookup.New(a.db, a.cfg.Store.Dialect(), a.cfg.Store.TableName(), a.logger)
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
