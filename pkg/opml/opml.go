// Package opml imports and exports the subscription list as OPML.
package opml

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/pkg/errors"

	"github.com/akeil/podfetch/pkg/db"
	"github.com/akeil/podfetch/pkg/model"
)

type opml struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    head     `xml:"head"`
	Body    body     `xml:"body"`
}

type head struct {
	Title string `xml:"title"`
}

type body struct {
	Outlines []outline `xml:"outline"`
}

type outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	Outlines []outline `xml:"outline"`
}

// Export writes all stored subscriptions as an OPML document.
func Export(ctx context.Context, storage db.Storage, w io.Writer) error {
	outlines := make([]outline, 0)

	err := storage.WalkSubscriptions(ctx, func(sub *model.Subscription) error {
		title := sub.Title
		if title == "" {
			title = sub.Name
		}
		outlines = append(outlines, outline{
			Text:   title,
			Title:  title,
			Type:   "rss",
			XMLURL: sub.URL,
		})
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to list subscriptions")
	}

	doc := opml{
		Version: "1.0",
		Head:    head{Title: "Podfetch subscriptions"},
		Body:    body{Outlines: outlines},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal OPML")
	}

	if _, err := io.WriteString(w, xml.Header+string(out)+"\n"); err != nil {
		return errors.Wrap(err, "failed to write OPML")
	}

	return nil
}

// Feed is one importable entry from an OPML document.
type Feed struct {
	Title string
	URL   string
}

// Parse extracts the feed entries from an OPML document,
// descending into nested outlines (folders).
func Parse(r io.Reader) ([]Feed, error) {
	var doc opml
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse OPML")
	}

	var feeds []Feed
	var walk func(outlines []outline)
	walk = func(outlines []outline) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				title := o.Title
				if title == "" {
					title = o.Text
				}
				feeds = append(feeds, Feed{Title: title, URL: o.XMLURL})
			}
			walk(o.Outlines)
		}
	}
	walk(doc.Body.Outlines)

	return feeds, nil
}
