package feed

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"time"

	"github.com/akeil/podfetch/pkg/model"
)

// EntryID derives a stable identifier for a feed entry.
// The feed supplied guid wins; entries without one get a deterministic
// hash over link, title and publish date.
func EntryID(entry model.Entry) string {
	if entry.GUID != "" {
		return entry.GUID
	}

	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s", entry.Link, entry.Title, entry.PubDate.UTC().Format(time.RFC3339))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Diff returns the entries not yet present in the known ID set,
// sorted by publish date ascending so downloads and index writes
// happen in chronological order.
//
// Diff only reads; episodes are recorded by the download scheduler
// once their files are committed.
func Diff(entries []model.Entry, known map[string]struct{}) []model.Entry {
	var fresh []model.Entry
	for _, entry := range entries {
		if _, ok := known[EntryID(entry)]; ok {
			continue
		}
		fresh = append(fresh, entry)
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].PubDate.Before(fresh[j].PubDate)
	})

	return fresh
}
