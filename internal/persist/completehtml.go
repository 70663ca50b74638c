package persist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// buildCompleteHTML writes a per-video folder containing the page as
// fetched (index.html) and a self-contained variant (complete.html) with
// stylesheet links inlined into a <style> tag and image sources
// downloaded into images/ and rewritten to local paths.
func (s *Saver) buildCompleteHTML(ctx context.Context, html, pageURL, destDir string) error {
	if err := os.MkdirAll(filepath.Join(destDir, "images"), 0o755); err != nil {
		return fmt.Errorf("create complete-html directory: %w", err)
	}
	if err := atomicWriteFile(filepath.Join(destDir, "index.html"), []byte(html)); err != nil {
		return fmt.Errorf("write index.html: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parse page HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	css := s.inlineStylesheets(ctx, doc, base)
	if css != "" {
		if err := atomicWriteFile(filepath.Join(destDir, "styles.css"), []byte(css)); err != nil {
			s.log.Warn().Err(err).Msg("could not write styles.css")
		}
		doc.Find("head").AppendHtml("<style>\n" + css + "\n</style>")
	}

	s.localizeImages(ctx, doc, base, destDir)

	complete, err := doc.Html()
	if err != nil {
		return fmt.Errorf("serialize complete page: %w", err)
	}
	if err := atomicWriteFile(filepath.Join(destDir, "complete.html"), []byte(complete)); err != nil {
		return fmt.Errorf("write complete.html: %w", err)
	}
	return nil
}

// inlineStylesheets fetches every same-origin stylesheet link, removes the
// link elements and returns the concatenated CSS.
func (s *Saver) inlineStylesheets(ctx context.Context, doc *goquery.Document, base *url.URL) string {
	var sb strings.Builder
	doc.Find(`link[rel="stylesheet"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved := resolveRef(base, href)
		if resolved == "" {
			return
		}
		if base != nil {
			if u, err := url.Parse(resolved); err != nil || u.Host != base.Host {
				return
			}
		}
		body, _, err := s.fetchAsset(ctx, resolved)
		if err != nil {
			s.log.Debug().Err(err).Str("href", resolved).Msg("stylesheet fetch failed")
			return
		}
		sb.Write(body)
		sb.WriteString("\n")
		sel.Remove()
	})
	return sb.String()
}

// localizeImages downloads every referenced image into destDir/images and
// rewrites the src attributes to the local copies.
func (s *Saver) localizeImages(ctx context.Context, doc *goquery.Document, base *url.URL, destDir string) {
	n := 0
	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		resolved := resolveRef(base, src)
		if resolved == "" {
			return
		}
		body, contentType, err := s.fetchAsset(ctx, resolved)
		if err != nil {
			s.log.Debug().Err(err).Str("src", resolved).Msg("image fetch failed")
			return
		}
		n++
		local := fmt.Sprintf("image_%d.%s", n, extensionFor(resolved, contentType))
		if err := atomicWriteFile(filepath.Join(destDir, "images", local), body); err != nil {
			s.log.Debug().Err(err).Str("src", resolved).Msg("image write failed")
			return
		}
		sel.SetAttr("src", path.Join("images", local))
	})
}

func (s *Saver) fetchAsset(ctx context.Context, assetURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func resolveRef(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
