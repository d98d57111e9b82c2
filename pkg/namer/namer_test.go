package namer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeil/podfetch/pkg/model"
)

var (
	testSub = &model.Subscription{
		Name:       "testcast",
		Title:      "Test Cast",
		ContentDir: "/x",
	}
	testEntry = model.Entry{
		Title:   "Hello World",
		PubDate: time.Date(2015, 3, 29, 13, 5, 7, 0, time.UTC),
	}
	testEnc = model.Enclosure{
		URL:         "http://example.com/media/1.mp3",
		ContentType: "audio/mpeg",
	}
)

func TestRender_Default(t *testing.T) {
	path, err := Render("{pub_date}-{title}", testSub, testEntry, testEnc, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, "/x/2015-03-29-Hello World.mp3", path)
}

func TestRender_DateComponents(t *testing.T) {
	path, err := Render("{year}/{month}/{day} {hour}:{minute}:{second}", testSub, testEntry, testEnc, "ep-1")
	require.NoError(t, err)
	// The colon from the template is preserved, only field values are sanitized
	assert.Equal(t, "/x/2015/03/29 13:05:07.mp3", path)
}

func TestRender_FeedTitleAndID(t *testing.T) {
	path, err := Render("{feed_title}-{id}-{kind}.{ext}", testSub, testEntry, testEnc, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, "/x/Test Cast-ep-1-audio.mp3", path)
}

func TestRender_UnknownPlaceholder(t *testing.T) {
	_, err := Render("{bogus}-{title}", testSub, testEntry, testEnc, "ep-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidTemplate)
}

func TestRender_SanitizesTitle(t *testing.T) {
	entry := testEntry
	entry.Title = "a/b\\c:d\te"

	path, err := Render("{title}", testSub, entry, testEnc, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, "/x", filepath.Dir(path))
	assert.Equal(t, "a_b_c_de.mp3", filepath.Base(path))
}

func TestRender_EmptyTemplateUsesDefault(t *testing.T) {
	path, err := Render("", testSub, testEntry, testEnc, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, "/x/2015-03-29-Hello World.mp3", path)
}

func TestUnique(t *testing.T) {
	taken := map[string]bool{
		"/x/a.mp3":   true,
		"/x/a-1.mp3": true,
	}
	exists := func(path string) bool { return taken[path] }

	assert.Equal(t, "/x/b.mp3", Unique("/x/b.mp3", exists))
	assert.Equal(t, "/x/a-2.mp3", Unique("/x/a.mp3", exists))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "Hello World"},
		{"a/b", "a_b"},
		{"Café Münch", "Cafe Munch"},
		{"tab\tand\nnewline", "tabandnewline"},
		{"日本語", ""},
		{"  padded  ", "padded"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "input %q", tt.in)
	}
}

func TestExt(t *testing.T) {
	tests := []struct {
		enc  model.Enclosure
		want string
	}{
		{model.Enclosure{ContentType: "audio/mpeg"}, "mp3"},
		{model.Enclosure{ContentType: "audio/mp4"}, "m4a"},
		{model.Enclosure{ContentType: "video/mp4"}, "mp4"},
		{model.Enclosure{URL: "http://example.com/file.OGG"}, "ogg"},
		{model.Enclosure{URL: "http://example.com/file.ogg?session=1"}, "ogg"},
		{model.Enclosure{URL: "http://example.com/stream"}, "mp3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Ext(tt.enc), "enclosure %+v", tt.enc)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, model.KindAudio, KindOf(model.Enclosure{ContentType: "audio/mpeg"}))
	assert.Equal(t, model.KindVideo, KindOf(model.Enclosure{ContentType: "video/mp4"}))
	assert.Equal(t, model.KindVideo, KindOf(model.Enclosure{URL: "http://example.com/clip.m4v"}))
	assert.Equal(t, model.KindAudio, KindOf(model.Enclosure{URL: "http://example.com/show.mp3"}))
}
