// Package discover enumerates the video URLs listed on a channel page.
package discover

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"ytgrab/internal/browser"
	"ytgrab/internal/interact"
)

// Request scopes one discovery pass.
type Request struct {
	ChannelURL string
	MaxVideos  int
	Offset     int
}

var watchHrefPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`)

// watchVideoID extracts the video id from an anchor href, reporting false
// for anchors that do not point at a watch page.
func watchVideoID(href string) (string, bool) {
	if m := watchHrefPattern.FindStringSubmatch(href); len(m) > 1 {
		return m[1], true
	}
	if !strings.Contains(href, "/watch") {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if v := u.Query().Get("v"); v != "" {
		return v, true
	}
	return "", false
}

// FilterWatchURLs canonicalizes anchor hrefs to watch URLs stripped of
// tracking parameters, de-duplicated by video id in first-seen order.
func FilterWatchURLs(hrefs []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, href := range hrefs {
		id, ok := watchVideoID(href)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, "https://www.youtube.com/watch?v="+id)
	}
	return out
}

// SliceWindow returns urls[offset : offset+max], clamped to what exists.
func SliceWindow(urls []string, offset, max int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(urls) {
		return nil
	}
	end := offset + max
	if max <= 0 || end > len(urls) {
		end = len(urls)
	}
	return urls[offset:end]
}

// Discoverer walks a channel's video listing.
type Discoverer struct {
	session *browser.Session
	helper  *interact.Helper
	log     zerolog.Logger
	timeout time.Duration
}

// New builds a Discoverer.
func New(session *browser.Session, helper *interact.Helper, log zerolog.Logger, timeout time.Duration) *Discoverer {
	return &Discoverer{
		session: session,
		helper:  helper,
		log:     log.With().Str("component", "discover").Logger(),
		timeout: timeout,
	}
}

// VideoURLs opens the channel's /videos listing, triggers lazy loading and
// returns the requested window of de-duplicated watch URLs. An empty
// result is "nothing to do", not an error. The page is always closed.
func (d *Discoverer) VideoURLs(req Request) ([]string, error) {
	page, err := d.session.Page()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	target := videosURL(req.ChannelURL)
	d.log.Info().Str("url", target).Msg("discovering channel videos")

	if err := page.Timeout(d.timeout).Navigate(target); err != nil {
		return nil, fmt.Errorf("failed to navigate to channel: %w", err)
	}
	if err := page.Timeout(d.timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("channel page did not load: %w", err)
	}
	wait := page.Timeout(d.timeout).WaitRequestIdle(
		500*time.Millisecond, nil, nil,
		[]proto.NetworkResourceType{proto.NetworkResourceTypeImage, proto.NetworkResourceTypeMedia},
	)
	wait()

	d.helper.HandleConsentDialog(page)
	d.helper.DismissPopups(page)
	d.helper.ScrollToLoadVideos(page)

	res, err := page.Timeout(d.timeout).Eval(`() => {
		const hrefs = [];
		for (const a of document.querySelectorAll('a[href]')) {
			if (a.href.includes('/watch') || a.href.includes('/shorts/')) hrefs.push(a.href);
		}
		return JSON.stringify(hrefs);
	}`)
	if err != nil {
		return nil, fmt.Errorf("failed to collect video anchors: %w", err)
	}

	var hrefs []string
	if err := json.Unmarshal([]byte(page.MustObjectToJSON(res).String()), &hrefs); err != nil {
		return nil, fmt.Errorf("failed to decode anchor list: %w", err)
	}

	urls := SliceWindow(FilterWatchURLs(hrefs), req.Offset, req.MaxVideos)
	d.log.Info().Int("anchors", len(hrefs)).Int("videos", len(urls)).Msg("discovery complete")
	return urls, nil
}

func videosURL(channelURL string) string {
	trimmed := strings.TrimRight(channelURL, "/")
	if strings.HasSuffix(trimmed, "/videos") {
		return trimmed
	}
	return trimmed + "/videos"
}
