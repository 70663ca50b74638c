// Package persist writes everything a scraped video produces: metadata
// JSON, thumbnail, screenshot, HTML snapshot, markdown rendering and an
// optional self-contained copy of the page.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"ytgrab/internal/metrics"
	"ytgrab/internal/models"
)

// Subdirectories of the output tree.
const (
	dirMetadata     = "metadata"
	dirImage        = "image"
	dirScreenshot   = "screenshot"
	dirHTML         = "html"
	dirMarkdown     = "markdown"
	dirCompleteHTML = "complete-html"
)

// screenshotSettle lets lazy content finish rendering before capture.
const screenshotSettle = 4 * time.Second

// Options selects the optional persistence steps per video.
type Options struct {
	SkipScreenshot   bool
	SaveCompleteHTML bool
}

// SavedPaths reports where each artifact landed; empty means skipped or failed.
type SavedPaths struct {
	Metadata     string
	Image        string
	Screenshot   string
	HTML         string
	Markdown     string
	CompleteHTML string
}

// Saver persists video artifacts under one output directory.
type Saver struct {
	dir     string
	client  *http.Client
	log     zerolog.Logger
	metrics *metrics.Bundle
}

// NewSaver builds a Saver. The HTTP client is used for thumbnail and
// asset downloads; nil selects a default with a sane timeout.
func NewSaver(outputDir string, client *http.Client, log zerolog.Logger, m *metrics.Bundle) *Saver {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Saver{
		dir:     outputDir,
		client:  client,
		log:     log.With().Str("component", "persist").Logger(),
		metrics: m,
	}
}

// EnsureLayout creates the output subdirectories.
func (s *Saver) EnsureLayout(completeHTML bool) error {
	dirs := []string{dirMetadata, dirImage, dirScreenshot, dirHTML, dirMarkdown}
	if completeHTML {
		dirs = append(dirs, dirCompleteHTML)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(s.dir, d), 0o755); err != nil {
			return fmt.Errorf("create output directory %s: %w", d, err)
		}
	}
	return nil
}

// SaveVideoData persists all artifacts for one video. The metadata JSON is
// the required write: its failure is returned. Every other artifact is
// best-effort and runs concurrently; failures are logged and the rest of
// the writes continue.
func (s *Saver) SaveVideoData(ctx context.Context, meta *models.VideoMetadata, page *rod.Page, opts Options) (SavedPaths, error) {
	html, err := page.HTML()
	if err != nil {
		s.log.Warn().Err(err).Str("video", meta.ID).Msg("could not read page HTML")
		html = ""
	}
	shot := func() ([]byte, error) {
		// let lazy content finish rendering before capture
		time.Sleep(screenshotSettle)
		return page.Screenshot(false, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
	}
	return s.saveArtifacts(ctx, meta, html, shot, opts)
}

// saveArtifacts is the page-free core of SaveVideoData.
func (s *Saver) saveArtifacts(ctx context.Context, meta *models.VideoMetadata, html string, shot func() ([]byte, error), opts Options) (SavedPaths, error) {
	name := Filename(meta)
	var paths SavedPaths

	if !opts.SkipScreenshot {
		meta.ScreenshotPath = filepath.Join(dirScreenshot, name+".png")
	}

	metaPath := filepath.Join(s.dir, dirMetadata, name+".json")
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return paths, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := atomicWriteFile(metaPath, data); err != nil {
		return paths, fmt.Errorf("write metadata: %w", err)
	}
	paths.Metadata = metaPath

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	set := func(fn func(p *SavedPaths)) {
		mu.Lock()
		fn(&paths)
		mu.Unlock()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if meta.Thumbnail == "" {
			return
		}
		p, n, err := s.saveThumbnail(ctx, meta.Thumbnail, name)
		if err != nil {
			s.log.Warn().Err(err).Str("video", meta.ID).Msg("thumbnail download failed")
			return
		}
		s.metrics.AddThumbnailBytes(n)
		set(func(sp *SavedPaths) { sp.Image = p })
	}()

	if !opts.SkipScreenshot {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.saveScreenshot(shot, name)
			if err != nil {
				s.log.Warn().Err(err).Str("video", meta.ID).Msg("screenshot failed")
				return
			}
			set(func(sp *SavedPaths) { sp.Screenshot = p })
		}()
	}

	if html != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			htmlPath := filepath.Join(s.dir, dirHTML, name+".html")
			if err := atomicWriteFile(htmlPath, []byte(html)); err != nil {
				s.log.Warn().Err(err).Str("video", meta.ID).Msg("html snapshot failed")
				return
			}
			set(func(sp *SavedPaths) { sp.HTML = htmlPath })
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.saveMarkdown(html, name)
			if err != nil {
				s.log.Warn().Err(err).Str("video", meta.ID).Msg("markdown rendering failed")
				return
			}
			set(func(sp *SavedPaths) { sp.Markdown = p })
		}()

		if opts.SaveCompleteHTML {
			wg.Add(1)
			go func() {
				defer wg.Done()
				dest := filepath.Join(s.dir, dirCompleteHTML, name)
				if err := s.buildCompleteHTML(ctx, html, meta.URL, dest); err != nil {
					s.log.Warn().Err(err).Str("video", meta.ID).Msg("complete-html build failed")
					return
				}
				set(func(sp *SavedPaths) { sp.CompleteHTML = dest })
			}()
		}
	}

	wg.Wait()
	return paths, nil
}

// saveThumbnail downloads the thumbnail and writes it with an extension
// inferred from the URL or the response content type.
func (s *Saver) saveThumbnail(ctx context.Context, thumbURL, name string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, thumbURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build thumbnail request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("fetch thumbnail: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read thumbnail body: %w", err)
	}

	ext := extensionFor(thumbURL, resp.Header.Get("Content-Type"))
	p := filepath.Join(s.dir, dirImage, name+"."+ext)
	if err := atomicWriteFile(p, body); err != nil {
		return "", 0, fmt.Errorf("write thumbnail: %w", err)
	}
	return p, len(body), nil
}

// saveScreenshot captures the current viewport as PNG. Not full-page, to
// keep file sizes bounded.
func (s *Saver) saveScreenshot(shot func() ([]byte, error), name string) (string, error) {
	img, err := shot()
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	p := filepath.Join(s.dir, dirScreenshot, name+".png")
	if err := atomicWriteFile(p, img); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return p, nil
}

// saveMarkdown renders the page HTML to markdown.
func (s *Saver) saveMarkdown(html, name string) (string, error) {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	p := filepath.Join(s.dir, dirMarkdown, name+".md")
	if err := atomicWriteFile(p, []byte(markdown)); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}
	return p, nil
}

// WriteResult persists the aggregate run result JSON at the output root.
func (s *Saver) WriteResult(result *models.ScrapingResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	p := filepath.Join(s.dir, "result.json")
	if err := atomicWriteFile(p, data); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return p, nil
}

// extensionFor infers an image extension from the URL path, then the
// response content type, falling back to jpg.
func extensionFor(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.TrimPrefix(path.Ext(u.Path), "."); ext != "" {
			return strings.ToLower(ext)
		}
	}
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mt {
			case "image/jpeg":
				return "jpg"
			case "image/png":
				return "png"
			case "image/webp":
				return "webp"
			case "image/gif":
				return "gif"
			}
		}
	}
	return "jpg"
}
