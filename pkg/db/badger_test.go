package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeil/podfetch/pkg/model"
)

var testCtx = context.TODO()

func openTestDB(t *testing.T) *Badger {
	t.Helper()

	db, err := NewBadger(&Config{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func getSubscription() *model.Subscription {
	return &model.Subscription{
		Name:        "test",
		URL:         "http://example.com/feed.xml",
		ContentDir:  "/tmp/podcasts/test",
		MaxEpisodes: 3,
		Enabled:     true,
		CreatedAt:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func getEpisode(id string) *model.Episode {
	return &model.Episode{
		ID:               id,
		SubscriptionName: "test",
		Title:            "Episode " + id,
		PubDate:          time.Date(2020, 3, 29, 12, 0, 0, 0, time.UTC),
		Files:            []string{"/tmp/podcasts/test/" + id + ".mp3"},
		Size:             1024,
	}
}

func TestNewBadger(t *testing.T) {
	dir := t.TempDir()

	db, err := NewBadger(&Config{Dir: dir})
	require.NoError(t, err)

	err = db.Close()
	assert.NoError(t, err)
}

func TestBadger_Version(t *testing.T) {
	db := openTestDB(t)

	ver, err := db.Version()
	assert.NoError(t, err)
	assert.Equal(t, CurrentVersion, ver)
}

func TestBadger_AddSubscription(t *testing.T) {
	db := openTestDB(t)

	sub := getSubscription()
	err := db.AddSubscription(testCtx, sub)
	assert.NoError(t, err)

	// Names are unique
	err = db.AddSubscription(testCtx, sub)
	assert.Equal(t, model.ErrAlreadyExists, err)
}

func TestBadger_GetSubscription(t *testing.T) {
	db := openTestDB(t)

	sub := getSubscription()
	require.NoError(t, db.AddSubscription(testCtx, sub))

	actual, err := db.GetSubscription(testCtx, sub.Name)
	assert.NoError(t, err)
	assert.Equal(t, sub, actual)

	_, err = db.GetSubscription(testCtx, "unknown")
	assert.Equal(t, model.ErrNotFound, err)
}

func TestBadger_UpdateSubscription(t *testing.T) {
	db := openTestDB(t)

	sub := getSubscription()
	require.NoError(t, db.AddSubscription(testCtx, sub))

	err := db.UpdateSubscription(testCtx, sub.Name, func(s *model.Subscription) error {
		s.MaxEpisodes = 10
		return nil
	})
	assert.NoError(t, err)

	actual, err := db.GetSubscription(testCtx, sub.Name)
	require.NoError(t, err)
	assert.Equal(t, 10, actual.MaxEpisodes)

	// Renames are not allowed
	err = db.UpdateSubscription(testCtx, sub.Name, func(s *model.Subscription) error {
		s.Name = "other"
		return nil
	})
	assert.Error(t, err)
}

func TestBadger_WalkSubscriptions(t *testing.T) {
	db := openTestDB(t)

	sub := getSubscription()
	require.NoError(t, db.AddSubscription(testCtx, sub))

	called := 0
	err := db.WalkSubscriptions(testCtx, func(actual *model.Subscription) error {
		assert.Equal(t, sub, actual)
		called++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, called)
}

func TestBadger_DeleteSubscription(t *testing.T) {
	db := openTestDB(t)

	sub := getSubscription()
	require.NoError(t, db.AddSubscription(testCtx, sub))
	require.NoError(t, db.AddEpisode(testCtx, sub.Name, getEpisode("1")))
	require.NoError(t, db.SetCacheToken(testCtx, sub.Name, model.CacheToken{ETag: "xyz"}))

	err := db.DeleteSubscription(testCtx, sub.Name)
	assert.NoError(t, err)

	_, err = db.GetSubscription(testCtx, sub.Name)
	assert.Equal(t, model.ErrNotFound, err)

	// Episode index and cache token go with the subscription
	known, err := db.KnownEpisodes(testCtx, sub.Name)
	assert.NoError(t, err)
	assert.Empty(t, known)

	token, err := db.GetCacheToken(testCtx, sub.Name)
	assert.NoError(t, err)
	assert.True(t, token.Zero())
}

func TestBadger_AddEpisode(t *testing.T) {
	db := openTestDB(t)

	episode := getEpisode("1")
	require.NoError(t, db.AddEpisode(testCtx, "test", episode))

	actual, err := db.GetEpisode(testCtx, "test", "1")
	assert.NoError(t, err)
	assert.Equal(t, episode, actual)

	// Recording again overwrites
	episode.Size = 2048
	require.NoError(t, db.AddEpisode(testCtx, "test", episode))

	actual, err = db.GetEpisode(testCtx, "test", "1")
	assert.NoError(t, err)
	assert.EqualValues(t, 2048, actual.Size)
}

func TestBadger_UpdateEpisode(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.AddEpisode(testCtx, "test", getEpisode("1")))

	err := db.UpdateEpisode("test", "1", func(episode *model.Episode) error {
		episode.Read = true
		return nil
	})
	assert.NoError(t, err)

	actual, err := db.GetEpisode(testCtx, "test", "1")
	require.NoError(t, err)
	assert.True(t, actual.Read)

	err = db.UpdateEpisode("test", "1", func(episode *model.Episode) error {
		episode.ID = "2"
		return nil
	})
	assert.Error(t, err)
}

func TestBadger_DeleteEpisode(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.AddEpisode(testCtx, "test", getEpisode("1")))
	require.NoError(t, db.DeleteEpisode("test", "1"))

	_, err := db.GetEpisode(testCtx, "test", "1")
	assert.Equal(t, model.ErrNotFound, err)
}

func TestBadger_KnownEpisodes(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.AddEpisode(testCtx, "test", getEpisode("1")))
	require.NoError(t, db.AddEpisode(testCtx, "test", getEpisode("2")))
	require.NoError(t, db.AddEpisode(testCtx, "other", getEpisode("3")))

	known, err := db.KnownEpisodes(testCtx, "test")
	assert.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"1": {}, "2": {}}, known)
}

func TestBadger_CacheToken(t *testing.T) {
	db := openTestDB(t)

	// No token yet is not an error
	token, err := db.GetCacheToken(testCtx, "test")
	assert.NoError(t, err)
	assert.True(t, token.Zero())

	want := model.CacheToken{ETag: `"abc"`, LastModified: "Mon, 02 Jan 2006 15:04:05 GMT"}
	require.NoError(t, db.SetCacheToken(testCtx, "test", want))

	token, err = db.GetCacheToken(testCtx, "test")
	assert.NoError(t, err)
	assert.Equal(t, want, token)
}
