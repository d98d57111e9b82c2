// Package update orchestrates the subscription sync: fetch, diff,
// download, purge and event dispatch.
package update

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/akeil/podfetch/pkg/db"
	"github.com/akeil/podfetch/pkg/download"
	"github.com/akeil/podfetch/pkg/feed"
	"github.com/akeil/podfetch/pkg/hooks"
	"github.com/akeil/podfetch/pkg/model"
)

// Status of a single subscription after an update run.
type Status string

const (
	StatusUpdated     = Status("updated")
	StatusNotModified = Status("not modified")
	StatusDisabled    = Status("disabled")
	StatusFailed      = Status("failed")
)

// Report is the per-subscription result of one update batch.
type Report struct {
	Name   string
	Status Status
	// Reason explains failures
	Reason string
	// Downloads enumerates per-episode outcomes
	Downloads *download.Report
	// Purged lists episodes removed by the retention policy
	Purged []*model.Episode
}

// Options control an update batch.
type Options struct {
	// Names restricts the batch to the given subscriptions.
	// Empty means all.
	Names []string
	// Force bypasses the conditional-fetch short circuit and
	// re-evaluates all feed entries against the index.
	Force bool
}

// Manager runs update batches over the subscription store.
type Manager struct {
	storage    db.Storage
	fetcher    *feed.Fetcher
	scheduler  *download.Scheduler
	dispatcher *hooks.Dispatcher
	// dataDir is the default parent for per-subscription content dirs
	dataDir string
	// parallel is the number of subscriptions updated at once
	parallel int
}

func NewManager(
	storage db.Storage,
	fetcher *feed.Fetcher,
	scheduler *download.Scheduler,
	dispatcher *hooks.Dispatcher,
	dataDir string,
	parallel int,
) *Manager {
	if parallel < 1 {
		parallel = model.DefaultParallelUpdates
	}

	return &Manager{
		storage:    storage,
		fetcher:    fetcher,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		dataDir:    dataDir,
		parallel:   parallel,
	}
}

// Update processes the selected subscriptions and returns one report
// per subscription. Individual fetch or download failures end up in
// the reports; the returned error is reserved for store-level failures
// and cancellation.
func (m *Manager) Update(ctx context.Context, opts Options) ([]*Report, error) {
	subs, reports, err := m.selectSubscriptions(ctx, opts.Names)
	if err != nil {
		return nil, err
	}

	var (
		group, groupCtx = errgroup.WithContext(ctx)
		mu              sync.Mutex
	)
	group.SetLimit(m.parallel)

	for _, sub := range subs {
		sub := sub
		group.Go(func() error {
			report := m.updateOne(groupCtx, sub, opts.Force)

			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}

	_ = group.Wait()

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Name < reports[j].Name
	})

	// Fires once per batch, regardless of individual failures
	m.emit(hooks.Event{Kind: hooks.UpdatesComplete})

	return reports, ctx.Err()
}

// selectSubscriptions resolves the requested names to subscriptions.
// Disabled and unknown subscriptions are turned into reports right away.
func (m *Manager) selectSubscriptions(ctx context.Context, names []string) ([]*model.Subscription, []*Report, error) {
	var (
		subs    []*model.Subscription
		reports []*Report
	)

	keep := func(sub *model.Subscription) {
		if !sub.Enabled {
			log.Warnf("subscription %q is disabled and will not be updated", sub.Name)
			reports = append(reports, &Report{Name: sub.Name, Status: StatusDisabled})
			return
		}
		subs = append(subs, sub)
	}

	if len(names) == 0 {
		err := m.storage.WalkSubscriptions(ctx, func(sub *model.Subscription) error {
			keep(sub)
			return nil
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to list subscriptions")
		}
		return subs, reports, nil
	}

	for _, name := range names {
		sub, err := m.storage.GetSubscription(ctx, name)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				reports = append(reports, &Report{
					Name:   name,
					Status: StatusFailed,
					Reason: "no such subscription",
				})
				continue
			}
			return nil, nil, errors.Wrapf(err, "failed to load subscription %q", name)
		}
		keep(sub)
	}

	return subs, reports, nil
}

func (m *Manager) updateOne(ctx context.Context, sub *model.Subscription, force bool) *Report {
	logger := log.WithField("subscription", sub.Name)
	logger.Infof("-> updating %s", sub.URL)
	started := time.Now()

	report := &Report{Name: sub.Name}

	var token model.CacheToken
	if !force {
		var err error
		token, err = m.storage.GetCacheToken(ctx, sub.Name)
		if err != nil {
			report.Status = StatusFailed
			report.Reason = err.Error()
			return report
		}
	}

	result, err := m.fetcher.Fetch(ctx, sub.URL, token)
	if err != nil {
		if errors.Is(err, model.ErrNotModified) {
			// Nothing new, the cached token stays untouched
			logger.Debug("feed not modified")
			report.Status = StatusNotModified
			return report
		}

		logger.WithError(err).Errorf("failed to fetch feed %s", sub.URL)
		report.Status = StatusFailed
		report.Reason = err.Error()
		return report
	}

	known, err := m.storage.KnownEpisodes(ctx, sub.Name)
	if err != nil {
		report.Status = StatusFailed
		report.Reason = err.Error()
		return report
	}

	fresh := feed.Diff(result.Entries, known)
	logger.Debugf("%d of %d entries are new", len(fresh), len(result.Entries))

	if sub.Title == "" && result.Title != "" {
		if err := m.storage.UpdateSubscription(ctx, sub.Name, func(s *model.Subscription) error {
			s.Title = result.Title
			s.UpdatedAt = time.Now().UTC()
			return nil
		}); err != nil {
			logger.WithError(err).Warn("failed to store feed title")
		} else {
			sub.Title = result.Title
		}
	}

	report.Downloads, err = m.scheduler.Run(ctx, sub, fresh)
	if err != nil {
		report.Status = StatusFailed
		report.Reason = err.Error()
		return report
	}

	// Fresh content was served, remember its validators for the
	// next conditional fetch
	if err := m.storage.SetCacheToken(ctx, sub.Name, result.Token); err != nil {
		logger.WithError(err).Warn("failed to store cache token")
	}

	report.Purged, err = m.Purge(ctx, sub, false)
	if err != nil {
		// Purge trouble is not fatal for the update
		logger.WithError(err).Error("purge failed")
	}

	if report.Downloads.Downloaded() > 0 {
		m.emit(hooks.Event{
			Kind:         hooks.SubscriptionUpdated,
			Subscription: sub.Name,
			ContentDir:   sub.ContentDir,
		})
	}

	logger.Infof("updated in %s: %s", time.Since(started).Round(time.Millisecond), report.Downloads)
	report.Status = StatusUpdated
	return report
}

func (m *Manager) emit(event hooks.Event) {
	if m.dispatcher != nil {
		m.dispatcher.Emit(event)
	}
}
