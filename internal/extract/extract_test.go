package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "watch url", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "watch url with tracking", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", want: "dQw4w9WgXcQ"},
		{name: "short link", url: "https://youtu.be/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "shorts", url: "https://www.youtube.com/shorts/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "embed", url: "https://www.youtube.com/embed/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "v param only", url: "https://m.youtube.com/watch?app=m&v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VideoID(tt.url))
		})
	}
}

func TestVideoIDFallback(t *testing.T) {
	id := VideoID("https://www.youtube.com/somewhere-else")
	assert.True(t, strings.HasPrefix(id, "unknown-"))
	assert.Len(t, id, len("unknown-")+8)

	// fallback ids are unique, not stable
	assert.NotEqual(t, id, VideoID("https://www.youtube.com/somewhere-else"))
}

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "truncates at more marker",
			in:   "A video about things.…...more\nTranscript\nFollow along",
			want: "A video about things.",
		},
		{
			name: "truncates ascii marker",
			in:   "First line\nSecond line...more trailing junk",
			want: "First line\nSecond line",
		},
		{
			name: "collapses doubled newlines",
			in:   "one\n\ntwo\n\n\n\nthree",
			want: "one\ntwo\nthree",
		},
		{
			name: "trims whitespace",
			in:   "  text \n",
			want: "text",
		},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanDescription(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "\n\n")
		})
	}
}

func TestMergeTags(t *testing.T) {
	got := mergeTags(
		[]string{"go", "scraping", "go"},
		"scraping, browser automation , go,",
	)
	assert.Equal(t, []string{"go", "scraping", "browser automation"}, got)
}

func TestMergeTagsEmpty(t *testing.T) {
	assert.Nil(t, mergeTags(nil, ""))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
