package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/akeil/podfetch/pkg/config"
	"github.com/akeil/podfetch/pkg/db"
	"github.com/akeil/podfetch/pkg/download"
	"github.com/akeil/podfetch/pkg/feed"
	"github.com/akeil/podfetch/pkg/hooks"
	"github.com/akeil/podfetch/pkg/update"
)

// app wires configuration, storage and the update manager together.
// Every command builds one, runs, and closes it.
type app struct {
	cfg        *config.Config
	storage    db.Storage
	dispatcher *hooks.Dispatcher
	manager    *update.Manager
}

func newApp(ctx context.Context) (*app, error) {
	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	log.Debugf("loading configuration %q", opts.ConfigPath)
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration file")
	}

	storage, err := db.NewBadger(&cfg.Database)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	dispatcher := hooks.NewDispatcher()
	for event, cmds := range cfg.Hooks {
		for _, hook := range cmds {
			dispatcher.Register(hook, hooks.EventKind(event))
		}
	}

	var (
		fetcher   = feed.NewFetcher(nil)
		scheduler = download.NewScheduler(nil, storage, dispatcher, cfg.Downloads.Concurrency, cfg.FilenameTemplate)
		manager   = update.NewManager(storage, fetcher, scheduler, dispatcher, cfg.DataDir, cfg.Downloads.Parallel)
	)

	if err := manager.Seed(ctx, cfg.Subscriptions); err != nil {
		_ = storage.Close()
		return nil, errors.Wrap(err, "failed to seed subscriptions from config")
	}

	return &app{
		cfg:        cfg,
		storage:    storage,
		dispatcher: dispatcher,
		manager:    manager,
	}, nil
}

func (a *app) Close() error {
	return a.storage.Close()
}

// commandContext is cancelled on SIGINT/SIGTERM so in-flight downloads
// stop cleanly without leaving partial files at their final names.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
