package persist

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytgrab/internal/models"
)

func newTestSaver(t *testing.T) (*Saver, string, *http.Client) {
	t.Helper()
	dir := t.TempDir()
	client := &http.Client{Timeout: 5 * time.Second}
	s := NewSaver(dir, client, zerolog.Nop(), nil)
	require.NoError(t, s.EnsureLayout(true))
	return s, dir, client
}

func testMeta() *models.VideoMetadata {
	return &models.VideoMetadata{
		ID:         "dQw4w9WgXcQ",
		URL:        "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Title:      "Test Video",
		UploadDate: "2024-01-15",
		ScrapedAt:  "2026-09-01T00:00:00Z",
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		meta models.VideoMetadata
		want string
	}{
		{
			name: "upload date plus id",
			meta: models.VideoMetadata{ID: "abc123", UploadDate: "2024-01-15"},
			want: "24-01-15 abc123",
		},
		{
			name: "word date parses",
			meta: models.VideoMetadata{ID: "abc123", UploadDate: "Jan 2, 2006"},
			want: "06-01-02 abc123",
		},
		{
			name: "publish date fallback",
			meta: models.VideoMetadata{ID: "abc123", DatePublished: "2023-12-31"},
			want: "23-12-31 abc123",
		},
		{
			name: "unparseable date omitted",
			meta: models.VideoMetadata{ID: "abc123", UploadDate: "3 years ago"},
			want: "abc123",
		},
		{
			name: "no date",
			meta: models.VideoMetadata{ID: "abc123"},
			want: "abc123",
		},
		{
			name: "unsafe id characters replaced",
			meta: models.VideoMetadata{ID: "a/b:c"},
			want: "a_b_c",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(&tt.meta)
			assert.Equal(t, tt.want, got)
			// pure function: same input, same output
			assert.Equal(t, got, Filename(&tt.meta))
		})
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		want        string
	}{
		{name: "from url path", url: "https://i.ytimg.com/vi/x/maxresdefault.webp", want: "webp"},
		{name: "from content type", url: "https://i.ytimg.com/vi/x/thumb", contentType: "image/png", want: "png"},
		{name: "content type with params", url: "https://h/x", contentType: "image/jpeg; charset=binary", want: "jpg"},
		{name: "fallback", url: "https://h/x", contentType: "application/octet-stream", want: "jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extensionFor(tt.url, tt.contentType))
		})
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	require.NoError(t, atomicWriteFile(path, []byte("one")))
	require.NoError(t, atomicWriteFile(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveThumbnail(t *testing.T) {
	s, dir, client := newTestSaver(t)
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	png := []byte{0x89, 'P', 'N', 'G'}
	httpmock.RegisterResponder("GET", "https://i.ytimg.com/vi/x/thumb",
		httpmock.NewBytesResponder(200, png).HeaderSet(http.Header{"Content-Type": []string{"image/png"}}))

	path, n, err := s.saveThumbnail(context.Background(), "https://i.ytimg.com/vi/x/thumb", "24-01-15 abc")
	require.NoError(t, err)
	assert.Equal(t, len(png), n)
	assert.Equal(t, filepath.Join(dir, "image", "24-01-15 abc.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

// Losing the thumbnail must never lose the metadata JSON or the screenshot.
func TestSaveArtifactsThumbnailFailureIsolated(t *testing.T) {
	s, dir, client := newTestSaver(t)
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("GET", `=~.*`, httpmock.NewStringResponder(500, "nope"))

	meta := testMeta()
	meta.Thumbnail = "https://i.ytimg.com/vi/x/maxresdefault.jpg"
	shot := func() ([]byte, error) { return []byte("png-bytes"), nil }

	paths, err := s.saveArtifacts(context.Background(), meta, "<html><body>hi</body></html>", shot, Options{})
	require.NoError(t, err)

	assert.FileExists(t, paths.Metadata)
	assert.FileExists(t, paths.Screenshot)
	assert.FileExists(t, paths.HTML)
	assert.Empty(t, paths.Image)

	entries, err := os.ReadDir(filepath.Join(dir, "image"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveArtifactsSkipScreenshots(t *testing.T) {
	s, dir, _ := newTestSaver(t)

	meta := testMeta()
	paths, err := s.saveArtifacts(context.Background(), meta, "<html></html>", nil, Options{SkipScreenshot: true})
	require.NoError(t, err)

	assert.Empty(t, paths.Screenshot)
	assert.Empty(t, meta.ScreenshotPath)
	assert.FileExists(t, paths.Metadata)
	assert.FileExists(t, paths.HTML)
	assert.FileExists(t, paths.Markdown)

	entries, err := os.ReadDir(filepath.Join(dir, "screenshot"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// A page without a thumbnail meta tag persists image: "" and writes
// nothing under image/.
func TestSaveArtifactsNoThumbnail(t *testing.T) {
	s, dir, _ := newTestSaver(t)

	meta := testMeta()
	meta.Thumbnail = ""
	shot := func() ([]byte, error) { return []byte("png"), nil }

	paths, err := s.saveArtifacts(context.Background(), meta, "<html></html>", shot, Options{})
	require.NoError(t, err)
	assert.Empty(t, paths.Image)

	data, err := os.ReadFile(paths.Metadata)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"image": ""`)

	entries, err := os.ReadDir(filepath.Join(dir, "image"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuildCompleteHTML(t *testing.T) {
	s, dir, client := newTestSaver(t)
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://www.youtube.com/style.css",
		httpmock.NewStringResponder(200, "body { color: red; }"))
	httpmock.RegisterResponder("GET", "https://i.ytimg.com/vi/x/thumb.jpg",
		httpmock.NewBytesResponder(200, []byte{0xFF, 0xD8}).HeaderSet(http.Header{"Content-Type": []string{"image/jpeg"}}))

	html := `<html><head><link rel="stylesheet" href="/style.css"></head>` +
		`<body><img src="https://i.ytimg.com/vi/x/thumb.jpg"></body></html>`

	dest := filepath.Join(dir, "complete-html", "abc")
	err := s.buildCompleteHTML(context.Background(), html, "https://www.youtube.com/watch?v=abc", dest)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dest, "index.html"))
	assert.FileExists(t, filepath.Join(dest, "styles.css"))
	assert.FileExists(t, filepath.Join(dest, "images", "image_1.jpg"))

	complete, err := os.ReadFile(filepath.Join(dest, "complete.html"))
	require.NoError(t, err)
	assert.Contains(t, string(complete), "color: red")
	assert.Contains(t, string(complete), `src="images/image_1.jpg"`)
	assert.NotContains(t, string(complete), `rel="stylesheet"`)
}

func TestWriteResult(t *testing.T) {
	s, dir, _ := newTestSaver(t)

	result := &models.ScrapingResult{
		Success: []models.VideoMetadata{*testMeta()},
		Summary: models.Summary{TotalAttempted: 1, Successful: 1},
	}
	p, err := s.WriteResult(result)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "result.json"), p)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_attempted": 1`)
}
