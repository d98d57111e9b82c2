// Package feed fetches and diffs podcast feeds.
package feed

import (
	"context"
	"net/http"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/akeil/podfetch/pkg/model"
)

const userAgent = "podfetch"

// Result is a successful fetch: the normalized entries plus the fresh
// cache validators from the response headers.
type Result struct {
	Title   string
	Entries []model.Entry
	Token   model.CacheToken
}

// Fetcher downloads and parses feeds with conditional requests.
type Fetcher struct {
	client *http.Client
	parser *gofeed.Parser
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}

	return &Fetcher{
		client: client,
		parser: gofeed.NewParser(),
	}
}

// Fetch issues a conditional GET for the feed URL using the cached
// validators. Returns model.ErrNotModified if the server reports the
// feed unchanged since the last fetch. Pass a zero token to skip the
// conditional headers (first fetch, or force mode).
func (f *Fetcher) Fetch(ctx context.Context, url string, token model.CacheToken) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build request for %q", url)
	}

	req.Header.Set("User-Agent", userAgent)
	if token.ETag != "" {
		req.Header.Set("If-None-Match", token.ETag)
	}
	if token.LastModified != "" {
		req.Header.Set("If-Modified-Since", token.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch feed %q", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		log.Debugf("feed %q not modified", url)
		return nil, model.ErrNotModified
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("feed %q returned status %d", url, resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse feed %q", url)
	}

	result := &Result{
		Title: parsed.Title,
		Token: model.CacheToken{
			ETag:         resp.Header.Get("Etag"),
			LastModified: resp.Header.Get("Last-Modified"),
		},
	}

	for _, item := range parsed.Items {
		result.Entries = append(result.Entries, normalize(item))
	}

	log.Debugf("received %d entries for %q", len(result.Entries), url)
	return result, nil
}

func normalize(item *gofeed.Item) model.Entry {
	entry := model.Entry{
		GUID:        item.GUID,
		Link:        item.Link,
		Title:       item.Title,
		Description: item.Description,
	}

	if item.PublishedParsed != nil {
		entry.PubDate = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		entry.PubDate = *item.UpdatedParsed
	}

	for _, enc := range item.Enclosures {
		if enc.URL == "" {
			continue
		}
		entry.Enclosures = append(entry.Enclosures, model.Enclosure{
			URL:         enc.URL,
			ContentType: enc.Type,
		})
	}

	return entry
}
