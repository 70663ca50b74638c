// Package extract reads structured video metadata from a rendered watch
// page. It uses the meta-tag strategy: one DOM pass collects every meta
// key/content pair, which is more stable across UI redesigns than visible
// element selectors.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"

	"ytgrab/internal/models"
)

// ErrMetadataExtraction indicates the page structure was unrecognizable:
// a metadata-less record is worthless, so this one failure propagates.
var ErrMetadataExtraction = errors.New("metadata extraction failed")

var watchIDPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`)

// VideoID derives the video identifier from a URL: the 11-character id in
// any of the known URL shapes, then the v query parameter, then a
// synthesized fallback so persistence always has a stable name.
func VideoID(rawURL string) string {
	if m := watchIDPattern.FindStringSubmatch(rawURL); len(m) > 1 {
		return m[1]
	}
	if u, err := url.Parse(rawURL); err == nil {
		if v := u.Query().Get("v"); v != "" {
			return v
		}
	}
	return "unknown-" + uuid.NewString()[:8]
}

// description truncation markers as they appear in the rendered text.
var moreMarkers = []string{"…...more", "...more", "…more", "\nShow more"}

// CleanDescription trims the trailing "show more" marker and everything
// after it, then collapses doubled newlines.
func CleanDescription(s string) string {
	for _, marker := range moreMarkers {
		if i := strings.Index(s, marker); i >= 0 {
			s = s[:i]
		}
	}
	for strings.Contains(s, "\n\n") {
		s = strings.ReplaceAll(s, "\n\n", "\n")
	}
	return strings.TrimSpace(s)
}

// pageData is the shape returned by the single extraction Eval pass.
type pageData struct {
	Meta       map[string]string `json:"meta"`
	Tags       []string          `json:"tags"`
	Expanded   string            `json:"expanded"`
	Likes      string            `json:"likes"`
	Author     string            `json:"author"`
	ChannelURL string            `json:"channelUrl"`
}

const extractScript = `() => {
	const meta = {};
	const tags = [];
	for (const m of document.querySelectorAll('meta')) {
		const key = m.getAttribute('property') || m.getAttribute('name') || m.getAttribute('itemprop');
		if (!key) continue;
		const content = m.getAttribute('content') || '';
		if (key === 'og:video:tag') { tags.push(content); continue; }
		if (!(key in meta)) meta[key] = content;
	}

	let author = '', channelUrl = '';
	const authorName = document.querySelector('span[itemprop="author"] link[itemprop="name"]');
	if (authorName) author = authorName.getAttribute('content') || '';
	const authorLink = document.querySelector('span[itemprop="author"] link[itemprop="url"]');
	if (authorLink) channelUrl = authorLink.href || '';

	let expanded = '';
	const exp = document.querySelector('#description-inline-expander, ytd-text-inline-expander, #description');
	if (exp) expanded = exp.innerText || '';

	let likes = '';
	const likeBtn = document.querySelector('like-button-view-model button, segmented-like-dislike-button-view-model button');
	if (likeBtn) likes = likeBtn.getAttribute('aria-label') || (likeBtn.textContent || '').trim();

	return JSON.stringify({meta, tags, expanded, likes, author, channelUrl});
}`

// ExtractVideoMetadata reads the watch page into a VideoMetadata record.
// Individual missing fields become empty strings; a page yielding nothing
// at all returns ErrMetadataExtraction.
func ExtractVideoMetadata(page *rod.Page, rawURL string) (*models.VideoMetadata, error) {
	res, err := page.Timeout(10 * time.Second).Eval(extractScript)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataExtraction, err)
	}

	var data pageData
	if err := json.Unmarshal([]byte(page.MustObjectToJSON(res).String()), &data); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMetadataExtraction, err)
	}

	meta := data.Meta
	if meta == nil {
		meta = map[string]string{}
	}

	m := &models.VideoMetadata{
		ID:                  firstNonEmpty(meta["identifier"], VideoID(rawURL)),
		URL:                 firstNonEmpty(meta["og:url"], rawURL),
		Title:               firstNonEmpty(meta["og:title"], meta["title"]),
		Description:         firstNonEmpty(meta["og:description"], meta["description"]),
		ExpandedDescription: CleanDescription(data.Expanded),
		Author:              data.Author,
		ChannelURL:          data.ChannelURL,
		Views:               meta["userInteractionCount"],
		Likes:               data.Likes,
		Thumbnail:           meta["og:image"],
		Duration:            meta["duration"],
		Width:               meta["width"],
		Height:              meta["height"],
		Tags:                mergeTags(data.Tags, meta["keywords"]),
		Category:            meta["genre"],
		Language:            meta["inLanguage"],
		DatePublished:       meta["datePublished"],
		UploadDate:          meta["uploadDate"],
		ScrapedAt:           time.Now().UTC().Format(time.RFC3339),
	}

	if m.Title == "" && m.Description == "" && m.Author == "" && m.Thumbnail == "" {
		return nil, fmt.Errorf("%w: no recognizable fields on %s", ErrMetadataExtraction, rawURL)
	}
	return m, nil
}

// mergeTags combines og:video:tag entries with the keywords meta list,
// preserving first-seen order and dropping duplicates.
func mergeTags(videoTags []string, keywords string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	for _, t := range videoTags {
		add(t)
	}
	if keywords != "" {
		for _, t := range strings.Split(keywords, ",") {
			add(t)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
