package main

import (
	"context"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/akeil/podfetch/pkg/update"
)

type daemonCommand struct{}

// Execute runs the update loop until SIGINT/SIGTERM.
// The cron schedule comes from the config file; overlapping runs are
// skipped rather than queued.
func (c *daemonCommand) Execute([]string) error {
	ctx, cancel := commandContext()
	defer cancel()

	if !opts.NoBanner {
		log.Info(banner)
	}

	log.WithFields(log.Fields{
		"version": version,
		"commit":  commit,
		"date":    date,
	}).Info("running podfetch")

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	runUpdate := func() {
		reports, err := app.manager.Update(ctx, update.Options{})
		if err != nil {
			log.WithError(err).Error("update batch failed")
			return
		}

		for _, report := range reports {
			if report.Status == update.StatusFailed {
				log.Errorf("%s: %s", report.Name, report.Reason)
			}
		}
	}

	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := sched.AddFunc(app.cfg.Daemon.Schedule, runUpdate); err != nil {
		return err
	}

	log.Infof("updating on schedule %q", app.cfg.Daemon.Schedule)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer func() {
			log.Info("shutting down cron")
			// Wait for an in-flight run before closing the database
			<-sched.Stop().Done()
		}()

		// Initial update on start, then follow the schedule
		runUpdate()
		sched.Start()

		<-ctx.Done()
		return ctx.Err()
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		return err
	}

	log.Info("gracefully stopped")
	return nil
}
