// Package interact implements best-effort page hygiene: consent dialogs,
// popups, description expansion, playback pausing and cosmetic toggles.
// Every operation tries a short list of candidates and returns without
// error when none match; the DOM is a moving target and a failed cosmetic
// action must never abort extraction.
package interact

import (
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog"
)

const (
	candidateTimeout = 3 * time.Second
	scrollIterations = 5
	scrollPause      = 1500 * time.Millisecond
)

// Helper runs interaction steps against pages.
type Helper struct {
	log zerolog.Logger
}

// New builds a Helper logging each step's outcome at debug level.
func New(log zerolog.Logger) *Helper {
	return &Helper{log: log.With().Str("component", "interact").Logger()}
}

// candidate is one technique for accomplishing a step.
type candidate struct {
	name string
	run  func() error
}

// tryFirst attempts candidates in order and stops at the first success.
// A total miss is reported as false, never as an error.
func (h *Helper) tryFirst(step string, cands []candidate) bool {
	for _, c := range cands {
		var runErr error
		err := rod.Try(func() { runErr = c.run() })
		if err == nil {
			err = runErr
		}
		if err == nil {
			h.log.Debug().Str("step", step).Str("via", c.name).Msg("interaction applied")
			return true
		}
		h.log.Debug().Str("step", step).Str("via", c.name).Err(err).Msg("candidate missed")
	}
	return false
}

// clickEval returns a candidate that clicks the first visible element
// matching selector, entirely inside the page to avoid stale handles.
func clickEval(page *rod.Page, name, selector string) candidate {
	return candidate{name: name, run: func() error {
		_, err := page.Timeout(candidateTimeout).Eval(`(sel) => {
			const els = document.querySelectorAll(sel);
			for (const el of els) {
				const r = el.getBoundingClientRect();
				if (r.width > 0 && r.height > 0) { el.click(); return true; }
			}
			throw new Error('no visible match');
		}`, selector)
		return err
	}}
}

// clickByText returns a candidate that clicks the first visible element of
// the given tag whose text matches one of the labels.
func clickByText(page *rod.Page, name, tag string, labels []string) candidate {
	return candidate{name: name, run: func() error {
		_, err := page.Timeout(candidateTimeout).Eval(`(tag, labels) => {
			const els = document.querySelectorAll(tag);
			for (const el of els) {
				const text = (el.textContent || '').trim().toLowerCase();
				const aria = (el.getAttribute('aria-label') || '').toLowerCase();
				for (const label of labels) {
					if (text === label || aria.includes(label)) {
						const r = el.getBoundingClientRect();
						if (r.width > 0 && r.height > 0) { el.click(); return true; }
					}
				}
			}
			throw new Error('no labelled match');
		}`, tag, labels)
		return err
	}}
}

// HandleConsentDialog accepts the cookie/privacy dialog shown on first visit.
func (h *Helper) HandleConsentDialog(page *rod.Page) {
	h.tryFirst("consent", []candidate{
		clickByText(page, "accept-label", "button", []string{"accept all", "i agree", "agree to all", "accept the use of cookies"}),
		clickEval(page, "consent-aria", `button[aria-label*="Accept"]`),
		clickEval(page, "consent-form", `form[action*="consent"] button`),
	})
}

// DismissPopups closes generic dialogs, upsell banners and skippable overlays.
func (h *Helper) DismissPopups(page *rod.Page) {
	h.tryFirst("popups", []candidate{
		clickEval(page, "dismiss-button", `#dismiss-button, tp-yt-paper-dialog #dismiss-button`),
		clickEval(page, "close-aria", `button[aria-label="Close"], button[aria-label="Dismiss"]`),
		clickByText(page, "skip-label", "button", []string{"skip", "no thanks", "dismiss", "not now"}),
	})
}

// ExpandDescription clicks the "show more" affordance so the full
// description is present in the DOM before extraction reads it.
func (h *Helper) ExpandDescription(page *rod.Page) {
	h.tryFirst("expand-description", []candidate{
		clickEval(page, "inline-expander", `#description-inline-expander tp-yt-paper-button#expand, tp-yt-paper-button#expand`),
		clickEval(page, "more-button", `#more, #description #expand`),
		clickByText(page, "more-label", "tp-yt-paper-button, button", []string{"...more", "…more", "show more"}),
	})
}

// PauseVideo waits for the player element and pauses playback if playing.
func (h *Helper) PauseVideo(page *rod.Page) {
	h.tryFirst("pause-video", []candidate{
		{name: "media-api", run: func() error {
			_, err := page.Timeout(candidateTimeout).Eval(`() => {
				const v = document.querySelector('video');
				if (!v) throw new Error('no video element');
				if (!v.paused) v.pause();
				return true;
			}`)
			return err
		}},
	})
}

// EnableDarkMode flips the page into its dark theme.
func (h *Helper) EnableDarkMode(page *rod.Page) {
	h.tryFirst("dark-mode", []candidate{
		{name: "html-attribute", run: func() error {
			_, err := page.Timeout(candidateTimeout).Eval(`() => {
				document.documentElement.setAttribute('dark', '');
				return true;
			}`)
			return err
		}},
	})
}

// EnableTheaterMode widens the player layout.
func (h *Helper) EnableTheaterMode(page *rod.Page) {
	h.tryFirst("theater-mode", []candidate{
		clickEval(page, "size-button", `.ytp-size-button`),
	})
}

// HideSuggestedContent hides the suggested-videos sidebar and end-screen
// grid via injected style rules.
func (h *Helper) HideSuggestedContent(page *rod.Page) {
	h.tryFirst("hide-suggested", []candidate{
		{name: "injected-style", run: func() error {
			_, err := page.Timeout(candidateTimeout).Eval(`() => {
				const style = document.createElement('style');
				style.textContent = '#secondary, #related, ytd-watch-next-secondary-results-renderer, .ytp-endscreen-content { display: none !important; }';
				document.head.appendChild(style);
				return true;
			}`)
			return err
		}},
	})
}

// ScrollToLoadVideos scrolls to the bottom of the page a fixed number of
// times to trigger infinite-scroll loading of additional channel videos.
func (h *Helper) ScrollToLoadVideos(page *rod.Page) {
	for i := 0; i < scrollIterations; i++ {
		var evalErr error
		err := rod.Try(func() {
			_, evalErr = page.Timeout(candidateTimeout).Eval(`() => {
				window.scrollTo(0, document.documentElement.scrollHeight);
				return true;
			}`)
		})
		if err == nil {
			err = evalErr
		}
		if err != nil {
			h.log.Debug().Int("iteration", i).Err(err).Msg("scroll failed")
			return
		}
		time.Sleep(scrollPause)
	}
}

// Options selects the optional cosmetic steps of SetupVideoPage.
type Options struct {
	DarkMode      bool
	TheaterMode   bool
	HideSuggested bool
}

// SetupVideoPage fans out the independent hygiene steps concurrently and
// waits for all of them to settle, then applies the optional cosmetic
// toggles. One failed step never cancels the others.
func (h *Helper) SetupVideoPage(page *rod.Page, opts Options) {
	steps := []func(*rod.Page){
		h.HandleConsentDialog,
		h.DismissPopups,
		h.PauseVideo,
		h.ExpandDescription,
	}

	var wg sync.WaitGroup
	for _, step := range steps {
		wg.Add(1)
		go func(fn func(*rod.Page)) {
			defer wg.Done()
			fn(page)
		}(step)
	}
	wg.Wait()

	if opts.DarkMode {
		h.EnableDarkMode(page)
	}
	if opts.TheaterMode {
		h.EnableTheaterMode(page)
	}
	if opts.HideSuggested {
		h.HideSuggestedContent(page)
	}
}
