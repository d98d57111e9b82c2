// Package namer renders episode file names from template strings.
//
// Supported placeholders:
//
//	{pub_date}    publish date as yyyy-mm-dd
//	{year} {month} {day} {hour} {minute} {second}
//	{title}       sanitized episode title
//	{feed_title}  sanitized subscription title
//	{id}          episode ID
//	{ext}         file extension inferred from the enclosure
//	{kind}        "audio" or "video"
package namer

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/akeil/podfetch/pkg/model"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_]+)\}`)

// Render produces a file path for one enclosure of an episode,
// joined under the subscription's content directory.
//
// Unknown placeholders fail with model.ErrInvalidTemplate. If the
// rendered name carries no extension, the inferred one is appended.
func Render(template string, sub *model.Subscription, entry model.Entry, enc model.Enclosure, episodeID string) (string, error) {
	if template == "" {
		template = model.DefaultFilenameTemplate
	}

	var (
		ext    = Ext(enc)
		fields = map[string]string{
			"pub_date":   entry.PubDate.Format("2006-01-02"),
			"year":       entry.PubDate.Format("2006"),
			"month":      entry.PubDate.Format("01"),
			"day":        entry.PubDate.Format("02"),
			"hour":       entry.PubDate.Format("15"),
			"minute":     entry.PubDate.Format("04"),
			"second":     entry.PubDate.Format("05"),
			"title":      Sanitize(entry.Title),
			"feed_title": Sanitize(subTitle(sub)),
			"id":         Sanitize(episodeID),
			"ext":        ext,
			"kind":       string(KindOf(enc)),
		}
		unknown []string
	)

	name := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		value, ok := fields[key]
		if !ok {
			unknown = append(unknown, key)
			return match
		}
		return value
	})

	if len(unknown) > 0 {
		return "", errors.Wrapf(model.ErrInvalidTemplate,
			"unknown placeholder(s) %q in template %q", strings.Join(unknown, ", "), template)
	}

	if filepath.Ext(name) == "" {
		name = fmt.Sprintf("%s.%s", name, ext)
	}

	return filepath.Join(sub.ContentDir, name), nil
}

// Unique resolves filename collisions with a different episode's file
// by inserting a deterministic numeric suffix before the extension.
// exists reports whether a path is already taken.
func Unique(rendered string, exists func(path string) bool) string {
	if !exists(rendered) {
		return rendered
	}

	var (
		ext  = filepath.Ext(rendered)
		base = strings.TrimSuffix(rendered, ext)
	)

	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s-%d%s", base, counter, ext)
		if !exists(candidate) {
			return candidate
		}
	}
}

func subTitle(sub *model.Subscription) string {
	if sub.Title != "" {
		return sub.Title
	}
	return sub.Name
}

// extByType maps enclosure content types to file extensions.
// mime.ExtensionsByType is platform dependent, keep the common
// podcast types explicit.
var extByType = map[string]string{
	"audio/mpeg":  "mp3",
	"audio/mp3":   "mp3",
	"audio/mp4":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/aac":   "aac",
	"audio/ogg":   "ogg",
	"audio/opus":  "opus",
	"audio/flac":  "flac",
	"video/mp4":   "mp4",
	"video/x-m4v": "m4v",
	"video/webm":  "webm",
}

// Ext infers a file extension from the enclosure content type,
// falling back to the URL path.
func Ext(enc model.Enclosure) string {
	mediaType, _, err := mime.ParseMediaType(enc.ContentType)
	if err == nil {
		if ext, ok := extByType[mediaType]; ok {
			return ext
		}
	}

	if u, err := url.Parse(enc.URL); err == nil {
		if ext := strings.TrimPrefix(path.Ext(u.Path), "."); ext != "" {
			return strings.ToLower(ext)
		}
	}

	return "mp3"
}

// KindOf infers whether the enclosure is audio or video.
func KindOf(enc model.Enclosure) model.Kind {
	mediaType, _, err := mime.ParseMediaType(enc.ContentType)
	if err == nil && strings.HasPrefix(mediaType, "video/") {
		return model.KindVideo
	}

	switch Ext(enc) {
	case "mp4", "m4v", "webm", "mkv", "avi":
		return model.KindVideo
	default:
		return model.KindAudio
	}
}
