package model

import (
	"time"
)

// Kind of media in an enclosure
type Kind string

const (
	KindAudio = Kind("audio")
	KindVideo = Kind("video")
)

// Subscription is a single configured podcast feed.
type Subscription struct {
	// Name uniquely identifies the subscription and doubles as
	// a directory-safe label for content and index files.
	Name string
	// URL of the RSS/Atom feed
	URL string
	// Title is an optional display title (defaults to the feed title)
	Title string
	// ContentDir is the directory downloaded episodes are stored in
	ContentDir string
	// FilenameTemplate overrides the application wide template
	FilenameTemplate string
	// MaxEpisodes is the number of episodes to keep, 0 means unlimited
	MaxEpisodes int
	// Enabled controls whether the subscription is updated
	Enabled bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Episode is a single downloaded feed entry.
// An episode with a non-empty Files list counts as downloaded.
type Episode struct {
	// ID is the feed supplied guid or a content hash fallback
	ID string
	// SubscriptionName refers back to the owning subscription
	SubscriptionName string
	Title            string
	Description      string
	PubDate          time.Time
	// Files are the local paths of the downloaded enclosures, in
	// feed order. An entry may carry more than one enclosure.
	Files []string
	// Size is the total size of all files in bytes
	Size int64
	// DownloadedAt is when the download was committed
	DownloadedAt time.Time
	// Read is user-settable metadata, not used for syncing
	Read bool
}

// Enclosure is a single media attachment of a feed entry.
type Enclosure struct {
	URL         string
	ContentType string
}

// Entry is a normalized feed item as returned by the fetcher.
type Entry struct {
	GUID        string
	Link        string
	Title       string
	Description string
	PubDate     time.Time
	Enclosures  []Enclosure
}

// CacheToken holds the HTTP validators from the most recent successful
// feed fetch, used to make the next fetch conditional.
type CacheToken struct {
	ETag         string
	LastModified string
}

// Zero reports whether no validators have been cached yet.
func (t CacheToken) Zero() bool {
	return t.ETag == "" && t.LastModified == ""
}
