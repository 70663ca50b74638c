// Package scrape drives the per-video pipeline: discover URLs, then for
// each one navigate, interact, extract and persist, strictly one video at
// a time, aggregating the outcome into a ScrapingResult.
package scrape

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"ytgrab/internal/backoff"
	"ytgrab/internal/browser"
	"ytgrab/internal/config"
	"ytgrab/internal/discover"
	"ytgrab/internal/extract"
	"ytgrab/internal/interact"
	"ytgrab/internal/metrics"
	"ytgrab/internal/models"
	"ytgrab/internal/persist"
)

// titleWaitTimeout bounds the wait for the primary title selector before
// falling back to the document title.
const titleWaitTimeout = 10 * time.Second

// pipelineFunc runs the full pipeline for one URL and returns the record
// plus a closer for the page it left open.
type pipelineFunc func(ctx context.Context, url string) (*models.VideoMetadata, func(), error)

// Runner owns one scraping run.
type Runner struct {
	cfg        config.Config
	session    *browser.Session
	helper     *interact.Helper
	discoverer *discover.Discoverer
	saver      *persist.Saver
	delayer    backoff.Delayer
	log        zerolog.Logger
	metrics    *metrics.Bundle

	promptIn  *bufio.Reader
	promptOut io.Writer

	// pipeline and targets are swapped out in tests.
	pipeline pipelineFunc
	targets  func() ([]string, error)
}

// NewRunner wires a Runner from its collaborators. promptIn/promptOut
// carry the interactive step-through dialogue.
func NewRunner(cfg config.Config, session *browser.Session, helper *interact.Helper,
	discoverer *discover.Discoverer, saver *persist.Saver, delayer backoff.Delayer,
	log zerolog.Logger, m *metrics.Bundle, promptIn io.Reader, promptOut io.Writer) *Runner {

	r := &Runner{
		cfg:        cfg,
		session:    session,
		helper:     helper,
		discoverer: discoverer,
		saver:      saver,
		delayer:    delayer,
		log:        log.With().Str("component", "scrape").Logger(),
		metrics:    m,
		promptIn:   bufio.NewReader(promptIn),
		promptOut:  promptOut,
	}
	r.pipeline = r.processVideo
	r.targets = r.targetURLs
	return r
}

// Run executes the whole scraping run and returns the aggregate result.
// Per-video failures are recorded and never abort the run.
func (r *Runner) Run(ctx context.Context) (*models.ScrapingResult, error) {
	start := time.Now()

	urls, err := r.targets()
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		r.log.Info().Msg("no videos to scrape")
		return &models.ScrapingResult{
			Summary: models.NewSummary(0, nil, nil, time.Since(start)),
		}, nil
	}

	var (
		success []models.VideoMetadata
		failed  []models.FailedVideo
	)

loop:
	for i, url := range urls {
		videoStart := time.Now()
		r.log.Info().Int("video", i+1).Int("of", len(urls)).Str("url", url).Msg("scraping")

		var (
			meta      *models.VideoMetadata
			closePage func()
		)
		retries, err := r.delayer.Execute(ctx, func() error {
			m, closer, perr := r.pipeline(ctx, url)
			if perr != nil {
				return perr
			}
			meta, closePage = m, closer
			return nil
		}, r.cfg.MaxRetries)
		r.metrics.AddRetries(retries)

		if err != nil {
			failed = append(failed, models.FailedVideo{
				URL:              url,
				Error:            err.Error(),
				RetriesAttempted: retries,
			})
			r.metrics.IncFailed()
			r.log.Error().Err(err).Str("url", url).Int("retries", retries).
				Dur("elapsed", time.Since(videoStart)).Msg("video failed")
		} else {
			success = append(success, *meta)
			r.metrics.IncScraped()
			r.log.Info().Str("url", url).Str("title", meta.Title).
				Dur("elapsed", time.Since(videoStart)).Msg("video scraped")
		}

		if r.cfg.Interactive {
			quit := r.promptOperator()
			if closePage != nil {
				closePage()
			}
			if quit {
				r.log.Info().Msg("operator quit; remaining videos not attempted")
				break loop
			}
			continue
		}

		if closePage != nil {
			closePage()
		}
		if i < len(urls)-1 {
			if err := r.delayer.Delay(ctx); err != nil {
				return nil, err
			}
		}
	}

	result := &models.ScrapingResult{
		Success: success,
		Failed:  failed,
		Summary: models.NewSummary(len(urls), success, failed, time.Since(start)),
	}

	if r.saver != nil {
		if p, err := r.saver.WriteResult(result); err != nil {
			r.log.Warn().Err(err).Msg("could not write run result")
		} else {
			r.log.Info().Str("path", p).Msg("run result written")
		}
	}
	return result, nil
}

// targetURLs resolves the run's work list: a channel discovery pass, or
// the single configured watch URL.
func (r *Runner) targetURLs() ([]string, error) {
	if !r.cfg.IsChannel() {
		return []string{r.cfg.URL}, nil
	}
	return r.discoverer.VideoURLs(discover.Request{
		ChannelURL: r.cfg.URL,
		MaxVideos:  r.cfg.MaxVideos,
		Offset:     r.cfg.Offset,
	})
}

// processVideo runs one URL through navigate -> interact -> extract ->
// persist. The returned closer is invoked by the loop so interactive mode
// can defer it until the operator advances.
func (r *Runner) processVideo(ctx context.Context, url string) (*models.VideoMetadata, func(), error) {
	page, err := r.session.Page()
	if err != nil {
		return nil, nil, err
	}
	closePage := func() { page.Close() }

	if err := r.navigate(page, url); err != nil {
		closePage()
		return nil, nil, err
	}

	r.helper.SetupVideoPage(page, interact.Options{
		DarkMode:      r.cfg.DarkMode,
		TheaterMode:   r.cfg.TheaterMode,
		HideSuggested: r.cfg.HideSuggested,
	})
	r.waitForTitle(page)

	meta, err := extract.ExtractVideoMetadata(page, url)
	if err != nil {
		closePage()
		return nil, nil, err
	}

	if _, err := r.saver.SaveVideoData(ctx, meta, page, persist.Options{
		SkipScreenshot:   r.cfg.SkipScreenshots,
		SaveCompleteHTML: r.cfg.SaveCompleteHTML,
	}); err != nil {
		closePage()
		return nil, nil, err
	}

	return meta, closePage, nil
}

// navigate loads the watch page and waits for network idle.
func (r *Runner) navigate(page *rod.Page, url string) error {
	if err := page.Timeout(r.cfg.Timeout).Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.Timeout(r.cfg.Timeout).WaitLoad(); err != nil {
		return fmt.Errorf("page did not load: %w", err)
	}
	wait := page.Timeout(r.cfg.Timeout).WaitRequestIdle(
		500*time.Millisecond, nil, nil,
		[]proto.NetworkResourceType{proto.NetworkResourceTypeImage, proto.NetworkResourceTypeMedia},
	)
	wait()
	return nil
}

// waitForTitle blocks until the watch-page title renders, falling back to
// any document title. Both misses are tolerated; extraction decides
// whether the page is usable.
func (r *Runner) waitForTitle(page *rod.Page) {
	err := rod.Try(func() {
		page.Timeout(titleWaitTimeout).MustElement("h1.ytd-watch-metadata, #title h1, h1.title")
	})
	if err == nil {
		return
	}
	r.log.Debug().Msg("primary title selector timed out; waiting for document title")
	_ = rod.Try(func() {
		page.Timeout(titleWaitTimeout / 2).MustElement("title")
	})
}

// promptOperator asks the interactive operator to continue or quit.
// Returns true on quit.
func (r *Runner) promptOperator() bool {
	fmt.Fprint(r.promptOut, "press n to continue, q to quit: ")
	line, err := r.promptIn.ReadString('\n')
	if err != nil && line == "" {
		// stdin closed: stop rather than loop forever
		return true
	}
	return strings.EqualFold(strings.TrimSpace(line), "q")
}
