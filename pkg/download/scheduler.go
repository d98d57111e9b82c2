// Package download fetches episode enclosures with bounded parallelism.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/akeil/podfetch/pkg/db"
	"github.com/akeil/podfetch/pkg/feed"
	"github.com/akeil/podfetch/pkg/hooks"
	"github.com/akeil/podfetch/pkg/model"
	"github.com/akeil/podfetch/pkg/namer"
)

// tempSuffix marks in-flight downloads. Files are renamed to their
// final name only after a complete transfer, so a crash or a full disk
// never leaves a partial file at its final name.
const tempSuffix = ".part"

type Scheduler struct {
	client      *http.Client
	storage     db.Storage
	dispatcher  *hooks.Dispatcher
	concurrency int
	// template is the application wide filename template, used when
	// the subscription does not configure its own
	template string
}

func NewScheduler(client *http.Client, storage db.Storage, dispatcher *hooks.Dispatcher, concurrency int, template string) *Scheduler {
	if client == nil {
		client = http.DefaultClient
	}
	if concurrency < 1 {
		concurrency = model.DefaultConcurrency
	}

	return &Scheduler{
		client:      client,
		storage:     storage,
		dispatcher:  dispatcher,
		concurrency: concurrency,
		template:    template,
	}
}

// Run downloads the given entries for one subscription and records
// each success in the episode index. Failures are collected in the
// report, never propagated: one broken episode must not abort its
// siblings. The returned error is reserved for context cancellation.
func (s *Scheduler) Run(ctx context.Context, sub *model.Subscription, entries []model.Entry) (*Report, error) {
	report := &Report{Outcomes: make([]Outcome, len(entries))}
	if len(entries) == 0 {
		return report, nil
	}

	if err := os.MkdirAll(sub.ContentDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create content dir %q", sub.ContentDir)
	}

	var (
		group, groupCtx = errgroup.WithContext(ctx)
		mu              sync.Mutex // serializes path reservation and index writes
		reserved        = make(map[string]struct{})
	)
	group.SetLimit(s.concurrency)

	for idx, entry := range entries {
		idx, entry := idx, entry
		group.Go(func() error {
			report.Outcomes[idx] = s.downloadEpisode(groupCtx, sub, entry, &mu, reserved)
			return nil
		})
	}

	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	return report, nil
}

func (s *Scheduler) downloadEpisode(ctx context.Context, sub *model.Subscription, entry model.Entry, mu *sync.Mutex, reserved map[string]struct{}) Outcome {
	var (
		id      = feed.EntryID(entry)
		logger  = log.WithFields(log.Fields{"subscription": sub.Name, "episode_id": id})
		outcome = Outcome{ID: id, Title: entry.Title}
	)

	if err := ctx.Err(); err != nil {
		outcome.Status = StatusSkipped
		outcome.Reason = "update cancelled"
		return outcome
	}

	if len(entry.Enclosures) == 0 {
		logger.Debug("entry has no enclosures, skipping")
		outcome.Status = StatusSkipped
		outcome.Reason = "no enclosures"
		return outcome
	}

	template := sub.FilenameTemplate
	if template == "" {
		template = s.template
	}

	// Resolve target paths up front so enclosures of the same episode
	// and concurrent sibling episodes never claim the same file.
	var paths []string
	mu.Lock()
	for _, enc := range entry.Enclosures {
		rendered, err := namer.Render(template, sub, entry, enc, id)
		if err != nil {
			mu.Unlock()
			logger.WithError(err).Error("failed to render filename")
			outcome.Status = StatusFailed
			outcome.Reason = err.Error()
			return outcome
		}

		unique := namer.Unique(rendered, func(path string) bool {
			if _, taken := reserved[path]; taken {
				return true
			}
			_, err := os.Stat(path)
			return err == nil
		})
		reserved[unique] = struct{}{}
		paths = append(paths, unique)
	}
	mu.Unlock()

	// Fetch every enclosure to a temp name before committing any of
	// them; a half-downloaded episode leaves nothing behind.
	var (
		total int64
		temps []string
	)
	for i, enc := range entry.Enclosures {
		temp := paths[i] + tempSuffix
		logger.Infof("! downloading %s", enc.URL)

		size, err := s.fetchFile(ctx, enc.URL, temp)
		if err != nil {
			// A 404 here just means the entry vanished between diff
			// and download, retry on the next run
			logger.WithError(err).Error("download failed")
			discard(append(temps, temp))
			outcome.Status = StatusFailed
			outcome.Reason = err.Error()
			return outcome
		}

		temps = append(temps, temp)
		total += size
	}

	for i, temp := range temps {
		if err := os.Rename(temp, paths[i]); err != nil {
			logger.WithError(err).Error("failed to commit file")
			discard(temps[i:])
			removeAll(paths[:i])
			outcome.Status = StatusFailed
			outcome.Reason = err.Error()
			return outcome
		}
	}

	episode := &model.Episode{
		ID:               id,
		SubscriptionName: sub.Name,
		Title:            entry.Title,
		Description:      entry.Description,
		PubDate:          entry.PubDate,
		Files:            paths,
		Size:             total,
		DownloadedAt:     time.Now().UTC(),
	}

	mu.Lock()
	err := s.storage.AddEpisode(ctx, sub.Name, episode)
	mu.Unlock()
	if err != nil {
		logger.WithError(err).Error("failed to record episode")
		removeAll(paths)
		outcome.Status = StatusFailed
		outcome.Reason = err.Error()
		return outcome
	}

	logger.Infof("successfully downloaded %q", entry.Title)

	if s.dispatcher != nil {
		s.dispatcher.Emit(hooks.Event{
			Kind:         hooks.EpisodeDownloaded,
			Subscription: sub.Name,
			ContentDir:   sub.ContentDir,
			Files:        paths,
		})
	}

	outcome.Status = StatusDownloaded
	outcome.Files = paths
	return outcome
}

// fetchFile downloads url into the given temp path.
// The temp file is removed on any error.
func (s *Scheduler) fetchFile(ctx context.Context, url, temp string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to build request for %q", url)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to fetch %q", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("fetching %q returned status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(temp), 0755); err != nil {
		return 0, errors.Wrap(err, "failed to create target directory")
	}

	f, err := os.Create(temp)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create temp file")
	}

	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(temp)
		return 0, errors.Wrapf(err, "failed to write %q", temp)
	}

	return written, nil
}

func discard(temps []string) {
	for _, temp := range temps {
		if err := os.Remove(temp); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Warnf("could not remove temp file %q", temp)
		}
	}
}

func removeAll(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Warnf("could not remove file %q", path)
		}
	}
}

// String renders a compact summary for logging.
func (r *Report) String() string {
	return fmt.Sprintf("%d downloaded, %d failed, %d skipped", r.Downloaded(), r.Failed(), r.Skipped())
}
