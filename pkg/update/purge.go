package update

import (
	"context"
	"os"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/akeil/podfetch/pkg/model"
)

// Purge removes downloaded episodes beyond the subscription's
// retention count, oldest first, deleting both files and index
// records. With dryRun the candidate set is returned without touching
// disk or the index.
//
// Trouble with a single file is collected and does not stop the purge
// of remaining candidates.
func (m *Manager) Purge(ctx context.Context, sub *model.Subscription, dryRun bool) ([]*model.Episode, error) {
	var (
		logger = log.WithField("subscription", sub.Name)
		keep   = sub.MaxEpisodes
		list   []*model.Episode
		result *multierror.Error
	)

	if keep < 1 {
		return nil, nil
	}

	if err := m.storage.WalkEpisodes(ctx, sub.Name, func(episode *model.Episode) error {
		if len(episode.Files) > 0 {
			list = append(list, episode)
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "failed to list episodes")
	}

	if keep >= len(list) {
		return nil, nil
	}

	// Newest first, everything after the cutoff goes
	sort.Slice(list, func(i, j int) bool {
		return list[i].PubDate.After(list[j].PubDate)
	})

	candidates := list[keep:]
	if dryRun {
		logger.Infof("purge would remove %d episode(s)", len(candidates))
		return candidates, nil
	}

	var removed []*model.Episode
	for _, episode := range candidates {
		logger.WithField("episode_id", episode.ID).Infof("deleting %q", episode.Title)

		for _, path := range episode.Files {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				result = multierror.Append(result, errors.Wrapf(err, "failed to delete %q", path))
			}
		}

		if err := m.storage.DeleteEpisode(sub.Name, episode.ID); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "failed to delete episode %q", episode.ID))
			continue
		}

		removed = append(removed, episode)
	}

	return removed, result.ErrorOrNil()
}

// PurgeAll applies the retention policy to every subscription.
func (m *Manager) PurgeAll(ctx context.Context, dryRun bool) (map[string][]*model.Episode, error) {
	var (
		removed = make(map[string][]*model.Episode)
		result  *multierror.Error
	)

	err := m.storage.WalkSubscriptions(ctx, func(sub *model.Subscription) error {
		episodes, err := m.Purge(ctx, sub, dryRun)
		if err != nil {
			result = multierror.Append(result, err)
		}
		if len(episodes) > 0 {
			removed[sub.Name] = episodes
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list subscriptions")
	}

	return removed, result.ErrorOrNil()
}
