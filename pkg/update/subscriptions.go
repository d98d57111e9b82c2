package update

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/akeil/podfetch/pkg/config"
	"github.com/akeil/podfetch/pkg/hooks"
	"github.com/akeil/podfetch/pkg/model"
	"github.com/akeil/podfetch/pkg/namer"
)

// AddOptions are the user supplied fields for a new subscription.
type AddOptions struct {
	URL string
	// Name is optional, derived from the URL host when empty
	Name             string
	ContentDir       string
	MaxEpisodes      int
	FilenameTemplate string
}

// Add creates and persists a new subscription.
// When the chosen name is taken, a numeric suffix makes it unique.
func (m *Manager) Add(ctx context.Context, opts AddOptions) (*model.Subscription, error) {
	if opts.URL == "" {
		return nil, errors.New("feed URL is required")
	}

	name := opts.Name
	if name == "" {
		name = NameFromURL(opts.URL)
	}
	name = namer.Sanitize(name)
	if name == "" {
		return nil, errors.Errorf("cannot derive a subscription name from %q", opts.URL)
	}

	name, err := m.uniqueName(ctx, name)
	if err != nil {
		return nil, err
	}

	contentDir := opts.ContentDir
	if contentDir == "" {
		contentDir = filepath.Join(m.dataDir, name)
	}

	sub := &model.Subscription{
		Name:             name,
		URL:              opts.URL,
		ContentDir:       contentDir,
		FilenameTemplate: opts.FilenameTemplate,
		MaxEpisodes:      opts.MaxEpisodes,
		Enabled:          true,
		CreatedAt:        time.Now().UTC(),
	}

	if err := m.storage.AddSubscription(ctx, sub); err != nil {
		return nil, errors.Wrapf(err, "failed to save subscription %q", name)
	}

	m.emit(hooks.Event{
		Kind:         hooks.SubscriptionAdded,
		Subscription: sub.Name,
		ContentDir:   sub.ContentDir,
	})

	return sub, nil
}

// Remove deletes the subscription, its episode index and cache token.
// With deleteFiles the downloaded episodes are removed from disk too.
func (m *Manager) Remove(ctx context.Context, name string, deleteFiles bool) error {
	sub, err := m.storage.GetSubscription(ctx, name)
	if err != nil {
		return errors.Wrapf(err, "failed to load subscription %q", name)
	}

	if deleteFiles {
		if err := m.storage.WalkEpisodes(ctx, name, func(episode *model.Episode) error {
			for _, path := range episode.Files {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					log.WithError(err).Warnf("could not delete %q", path)
				}
			}
			return nil
		}); err != nil {
			return errors.Wrap(err, "failed to delete episode files")
		}

		// Best effort, fails when the user put other files there
		_ = os.Remove(sub.ContentDir)
	}

	if err := m.storage.DeleteSubscription(ctx, name); err != nil {
		return errors.Wrapf(err, "failed to delete subscription %q", name)
	}

	m.emit(hooks.Event{
		Kind:         hooks.SubscriptionRemoved,
		Subscription: sub.Name,
		ContentDir:   sub.ContentDir,
	})

	return nil
}

// Changes holds the editable subscription fields.
// Nil pointers leave the stored value untouched.
type Changes struct {
	URL              *string
	Title            *string
	Enabled          *bool
	MaxEpisodes      *int
	FilenameTemplate *string
	ContentDir       *string
}

// Edit applies the given changes and persists the subscription.
func (m *Manager) Edit(ctx context.Context, name string, changes Changes) error {
	return m.storage.UpdateSubscription(ctx, name, func(sub *model.Subscription) error {
		if changes.URL != nil {
			sub.URL = *changes.URL
		}
		if changes.Title != nil {
			sub.Title = *changes.Title
		}
		if changes.Enabled != nil {
			sub.Enabled = *changes.Enabled
		}
		if changes.MaxEpisodes != nil {
			sub.MaxEpisodes = *changes.MaxEpisodes
		}
		if changes.FilenameTemplate != nil {
			sub.FilenameTemplate = *changes.FilenameTemplate
		}
		if changes.ContentDir != nil {
			sub.ContentDir = *changes.ContentDir
		}
		sub.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// MarkRead flags an episode as read or unread.
func (m *Manager) MarkRead(name, episodeID string, read bool) error {
	return m.storage.UpdateEpisode(name, episodeID, func(episode *model.Episode) error {
		episode.Read = read
		return nil
	})
}

// Seed upserts the subscriptions declared in the config file, so a
// fully config-managed setup needs no explicit add commands.
func (m *Manager) Seed(ctx context.Context, seeds map[string]*config.Subscription) error {
	for name, seed := range seeds {
		contentDir := seed.ContentDir
		if contentDir == "" {
			contentDir = filepath.Join(m.dataDir, name)
		}

		sub := &model.Subscription{
			Name:             name,
			URL:              seed.URL,
			Title:            seed.Title,
			ContentDir:       contentDir,
			FilenameTemplate: seed.FilenameTemplate,
			MaxEpisodes:      seed.MaxEpisodes,
			Enabled:          !seed.Disabled,
			CreatedAt:        time.Now().UTC(),
		}

		if existing, err := m.storage.GetSubscription(ctx, name); err == nil {
			sub.CreatedAt = existing.CreatedAt
			sub.UpdatedAt = time.Now().UTC()
		} else if !errors.Is(err, model.ErrNotFound) {
			return errors.Wrapf(err, "failed to load subscription %q", name)
		}

		if err := m.storage.UpsertSubscription(ctx, sub); err != nil {
			return errors.Wrapf(err, "failed to seed subscription %q", name)
		}
	}

	return nil
}

// NameFromURL derives a subscription name from the feed URL host.
func NameFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}

	return strings.TrimPrefix(u.Hostname(), "www.")
}

func (m *Manager) uniqueName(ctx context.Context, name string) (string, error) {
	candidate := name
	for counter := 1; ; counter++ {
		_, err := m.storage.GetSubscription(ctx, candidate)
		if errors.Is(err, model.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", errors.Wrap(err, "failed to check subscription name")
		}

		candidate = fmt.Sprintf("%s-%d", name, counter)
	}
}
