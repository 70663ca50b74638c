// Package metrics bundles Prometheus collectors for the scraper on a
// dedicated registry. All helpers are nil-safe so components can run
// without a bundle wired in (tests, library use).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Bundle holds the scraper's collectors.
type Bundle struct {
	Registry            *prometheus.Registry
	VideosScrapedTotal  prometheus.Counter
	VideosFailedTotal   prometheus.Counter
	RetriesTotal        prometheus.Counter
	ThumbnailBytesTotal prometheus.Counter
}

// New constructs and registers all collectors on a private registry.
func New() *Bundle {
	registry := prometheus.NewRegistry()

	scraped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytgrab_videos_scraped_total",
		Help: "Total videos scraped and persisted successfully.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytgrab_videos_failed_total",
		Help: "Total videos whose pipeline failed after retries.",
	})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytgrab_retries_total",
		Help: "Total per-video retry attempts performed.",
	})
	thumbBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytgrab_thumbnail_bytes_total",
		Help: "Total thumbnail bytes written to disk.",
	})

	registry.MustRegister(scraped, failed, retries, thumbBytes)

	return &Bundle{
		Registry:            registry,
		VideosScrapedTotal:  scraped,
		VideosFailedTotal:   failed,
		RetriesTotal:        retries,
		ThumbnailBytesTotal: thumbBytes,
	}
}

// IncScraped increments the scraped-videos counter.
func (b *Bundle) IncScraped() {
	if b == nil {
		return
	}
	b.VideosScrapedTotal.Inc()
}

// IncFailed increments the failed-videos counter.
func (b *Bundle) IncFailed() {
	if b == nil {
		return
	}
	b.VideosFailedTotal.Inc()
}

// AddRetries adds n to the retry counter.
func (b *Bundle) AddRetries(n int) {
	if b == nil || n <= 0 {
		return
	}
	b.RetriesTotal.Add(float64(n))
}

// AddThumbnailBytes records thumbnail bytes written to disk.
func (b *Bundle) AddThumbnailBytes(n int) {
	if b == nil || n <= 0 {
		return
	}
	b.ThumbnailBytesTotal.Add(float64(n))
}
