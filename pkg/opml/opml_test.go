package opml

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeil/podfetch/pkg/db"
	"github.com/akeil/podfetch/pkg/model"
)

var testCtx = context.TODO()

func TestExport(t *testing.T) {
	storage, err := db.NewBadger(&db.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	defer storage.Close()

	require.NoError(t, storage.AddSubscription(testCtx, &model.Subscription{
		Name:  "gopod",
		Title: "Go Podcast",
		URL:   "http://example.com/feed.xml",
	}))
	require.NoError(t, storage.AddSubscription(testCtx, &model.Subscription{
		Name: "untitled",
		URL:  "http://example.org/rss",
	}))

	var buf bytes.Buffer
	require.NoError(t, Export(testCtx, storage, &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `xmlUrl="http://example.com/feed.xml"`)
	assert.Contains(t, out, `title="Go Podcast"`)
	// Falls back to the subscription name when no title is known
	assert.Contains(t, out, `title="untitled"`)

	// The export must round-trip through our own parser
	feeds, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, feeds, 2)
}

func TestParse(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<opml version="1.0">
  <head><title>Subscriptions</title></head>
  <body>
    <outline text="Go Podcast" title="Go Podcast" type="rss" xmlUrl="http://example.com/feed.xml"/>
    <outline text="Tech">
      <outline text="Nested Show" type="rss" xmlUrl="http://example.org/rss"/>
    </outline>
    <outline text="No URL here"/>
  </body>
</opml>`

	feeds, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	assert.Equal(t, "Go Podcast", feeds[0].Title)
	assert.Equal(t, "http://example.com/feed.xml", feeds[0].URL)

	// Found inside the folder, title taken from the text attribute
	assert.Equal(t, "Nested Show", feeds[1].Title)
	assert.Equal(t, "http://example.org/rss", feeds[1].URL)
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse(strings.NewReader("this is not XML"))
	assert.Error(t, err)
}
