package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/dgraph-io/badger/options"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/akeil/podfetch/pkg/model"
)

const (
	versionPath        = "podfetch/version"
	subscriptionPrefix = "subscription/"
	subscriptionPath   = "subscription/%s"
	episodePrefix      = "episode/%s/"
	episodePath        = "episode/%s/%s" // subscription name + episode ID
	tokenPath          = "token/%s"
)

// BadgerConfig represents BadgerDB configuration parameters
// See https://github.com/dgraph-io/badger#memory-usage
type BadgerConfig struct {
	Truncate bool `toml:"truncate"`
	FileIO   bool `toml:"file_io"`
}

type Badger struct {
	db *badger.DB
}

var _ Storage = (*Badger)(nil)

func NewBadger(config *Config) (*Badger, error) {
	var (
		dir = config.Dir
	)

	log.Infof("opening database %q", dir)

	// Make sure database directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "could not mkdir database dir")
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(log.StandardLogger()).
		WithTruncate(true)

	if config.Badger != nil {
		opts.Truncate = config.Badger.Truncate
		if config.Badger.FileIO {
			opts.ValueLogLoadingMode = options.FileIO
		}
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	storage := &Badger{db: db}

	if err := db.Update(func(txn *badger.Txn) error {
		if err := storage.setObj(txn, []byte(versionPath), CurrentVersion, false); err != nil && err != model.ErrAlreadyExists {
			return err
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "failed to write database version")
	}

	return storage, nil
}

func (b *Badger) Close() error {
	log.Debug("closing database")
	return b.db.Close()
}

func (b *Badger) Version() (int, error) {
	var (
		version = -1
	)

	err := b.db.View(func(txn *badger.Txn) error {
		return b.getObj(txn, []byte(versionPath), &version)
	})

	return version, err
}

func (b *Badger) AddSubscription(_ context.Context, sub *model.Subscription) error {
	key := b.getKey(subscriptionPath, sub.Name)
	return b.db.Update(func(txn *badger.Txn) error {
		return b.setObj(txn, key, sub, false)
	})
}

func (b *Badger) UpsertSubscription(_ context.Context, sub *model.Subscription) error {
	key := b.getKey(subscriptionPath, sub.Name)
	return b.db.Update(func(txn *badger.Txn) error {
		return b.setObj(txn, key, sub, true)
	})
}

func (b *Badger) GetSubscription(_ context.Context, name string) (*model.Subscription, error) {
	var (
		sub model.Subscription
		key = b.getKey(subscriptionPath, name)
	)

	if err := b.db.View(func(txn *badger.Txn) error {
		return b.getObj(txn, key, &sub)
	}); err != nil {
		return nil, err
	}

	return &sub, nil
}

func (b *Badger) UpdateSubscription(_ context.Context, name string, cb func(sub *model.Subscription) error) error {
	var (
		key = b.getKey(subscriptionPath, name)
		sub model.Subscription
	)

	return b.db.Update(func(txn *badger.Txn) error {
		if err := b.getObj(txn, key, &sub); err != nil {
			return err
		}

		if err := cb(&sub); err != nil {
			return err
		}

		if sub.Name != name {
			return errors.New("can't change subscription name")
		}

		return b.setObj(txn, key, &sub, true)
	})
}

func (b *Badger) DeleteSubscription(_ context.Context, name string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		key := b.getKey(subscriptionPath, name)
		if err := txn.Delete(key); err != nil {
			return errors.Wrapf(err, "failed to delete subscription %q", name)
		}

		// Episode index
		opts := badger.DefaultIteratorOptions
		opts.Prefix = b.getKey(episodePrefix, name)
		opts.PrefetchValues = false
		if err := b.iterator(txn, opts, func(item *badger.Item) error {
			return txn.Delete(item.KeyCopy(nil))
		}); err != nil {
			return errors.Wrapf(err, "failed to delete episodes for %q", name)
		}

		// Cache token
		if err := txn.Delete(b.getKey(tokenPath, name)); err != nil {
			return errors.Wrapf(err, "failed to delete cache token for %q", name)
		}

		return nil
	})
}

func (b *Badger) WalkSubscriptions(_ context.Context, cb func(sub *model.Subscription) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = b.getKey(subscriptionPrefix)
		opts.PrefetchValues = true
		return b.iterator(txn, opts, func(item *badger.Item) error {
			sub := &model.Subscription{}
			if err := b.unmarshalObj(item, sub); err != nil {
				return err
			}

			return cb(sub)
		})
	})
}

func (b *Badger) AddEpisode(_ context.Context, name string, episode *model.Episode) error {
	key := b.getKey(episodePath, name, episode.ID)
	return b.db.Update(func(txn *badger.Txn) error {
		return b.setObj(txn, key, episode, true)
	})
}

func (b *Badger) GetEpisode(_ context.Context, name string, episodeID string) (*model.Episode, error) {
	var (
		episode model.Episode
		key     = b.getKey(episodePath, name, episodeID)
	)

	err := b.db.View(func(txn *badger.Txn) error {
		return b.getObj(txn, key, &episode)
	})
	if err != nil {
		return nil, err
	}

	return &episode, nil
}

func (b *Badger) UpdateEpisode(name string, episodeID string, cb func(episode *model.Episode) error) error {
	var (
		key     = b.getKey(episodePath, name, episodeID)
		episode model.Episode
	)

	return b.db.Update(func(txn *badger.Txn) error {
		if err := b.getObj(txn, key, &episode); err != nil {
			return err
		}

		if err := cb(&episode); err != nil {
			return err
		}

		if episode.ID != episodeID {
			return errors.New("can't change episode ID")
		}

		return b.setObj(txn, key, &episode, true)
	})
}

func (b *Badger) DeleteEpisode(name, episodeID string) error {
	key := b.getKey(episodePath, name, episodeID)
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *Badger) WalkEpisodes(_ context.Context, name string, cb func(episode *model.Episode) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		return b.walkEpisodes(txn, name, cb)
	})
}

func (b *Badger) KnownEpisodes(ctx context.Context, name string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	err := b.WalkEpisodes(ctx, name, func(episode *model.Episode) error {
		known[episode.ID] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return known, nil
}

func (b *Badger) GetCacheToken(_ context.Context, name string) (model.CacheToken, error) {
	var (
		token model.CacheToken
		key   = b.getKey(tokenPath, name)
	)

	err := b.db.View(func(txn *badger.Txn) error {
		return b.getObj(txn, key, &token)
	})
	if err == model.ErrNotFound {
		// First fetch of a subscription, no validators yet
		return model.CacheToken{}, nil
	}

	return token, err
}

func (b *Badger) SetCacheToken(_ context.Context, name string, token model.CacheToken) error {
	key := b.getKey(tokenPath, name)
	return b.db.Update(func(txn *badger.Txn) error {
		return b.setObj(txn, key, token, true)
	})
}

func (b *Badger) walkEpisodes(txn *badger.Txn, name string, cb func(episode *model.Episode) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = b.getKey(episodePrefix, name)
	opts.PrefetchValues = true
	return b.iterator(txn, opts, func(item *badger.Item) error {
		episode := &model.Episode{}
		if err := b.unmarshalObj(item, episode); err != nil {
			return err
		}

		return cb(episode)
	})
}

func (b *Badger) iterator(txn *badger.Txn, opts badger.IteratorOptions, callback func(item *badger.Item) error) error {
	iter := txn.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()

		if err := callback(item); err != nil {
			return err
		}
	}

	return nil
}

func (b *Badger) getKey(format string, a ...interface{}) []byte {
	resourcePath := fmt.Sprintf(format, a...)
	fullPath := fmt.Sprintf("podfetch/v%d/%s", CurrentVersion, resourcePath)

	return []byte(fullPath)
}

func (b *Badger) setObj(txn *badger.Txn, key []byte, obj interface{}, overwrite bool) error {
	if !overwrite {
		// Overwrites are not allowed, make sure there is no object with the given key
		_, err := txn.Get(key)
		if err == nil {
			return model.ErrAlreadyExists
		} else if err != badger.ErrKeyNotFound {
			return errors.Wrap(err, "failed to check whether key exists")
		}
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize object for key %q", key)
	}

	return txn.Set(key, data)
}

func (b *Badger) getObj(txn *badger.Txn, key []byte, out interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return model.ErrNotFound
		}

		return err
	}

	return b.unmarshalObj(item, out)
}

func (b *Badger) unmarshalObj(item *badger.Item, out interface{}) error {
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}
