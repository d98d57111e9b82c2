package db

import (
	"context"

	"github.com/akeil/podfetch/pkg/model"
)

type Version int

const (
	CurrentVersion = 1
)

// Storage is the persistence boundary for subscriptions, the
// per-subscription episode index and the feed cache tokens.
//
// Values are serialized as JSON, so records written by a newer version
// with extra fields remain readable.
type Storage interface {
	Close() error
	Version() (int, error)

	// AddSubscription inserts a new subscription.
	// Returns model.ErrAlreadyExists if the name is taken.
	AddSubscription(ctx context.Context, sub *model.Subscription) error

	// UpsertSubscription inserts or overwrites a subscription definition
	UpsertSubscription(ctx context.Context, sub *model.Subscription) error

	// GetSubscription gets a subscription by name
	GetSubscription(ctx context.Context, name string) (*model.Subscription, error)

	// UpdateSubscription applies cb to the stored subscription and saves it
	UpdateSubscription(ctx context.Context, name string, cb func(sub *model.Subscription) error) error

	// DeleteSubscription deletes the subscription, its episode index
	// and its cache token
	DeleteSubscription(ctx context.Context, name string) error

	// WalkSubscriptions iterates over subscriptions in name order
	WalkSubscriptions(ctx context.Context, cb func(sub *model.Subscription) error) error

	// AddEpisode records a downloaded episode, overwriting any
	// previous record with the same ID
	AddEpisode(ctx context.Context, name string, episode *model.Episode) error

	// GetEpisode gets an episode by identifier
	GetEpisode(ctx context.Context, name string, episodeID string) (*model.Episode, error)

	// UpdateEpisode applies cb to the stored episode and saves it
	UpdateEpisode(name string, episodeID string, cb func(episode *model.Episode) error) error

	// DeleteEpisode removes the episode record entirely.
	// The ID becomes eligible again if the feed re-publishes it.
	DeleteEpisode(name string, episodeID string) error

	// WalkEpisodes iterates over episodes that belong to the given subscription
	WalkEpisodes(ctx context.Context, name string, cb func(episode *model.Episode) error) error

	// KnownEpisodes returns the set of episode IDs recorded for the
	// given subscription
	KnownEpisodes(ctx context.Context, name string) (map[string]struct{}, error)

	// GetCacheToken returns the cached feed validators.
	// A zero token (not an error) is returned when none are cached yet.
	GetCacheToken(ctx context.Context, name string) (model.CacheToken, error)

	// SetCacheToken overwrites the cached feed validators
	SetCacheToken(ctx context.Context, name string, token model.CacheToken) error
}
