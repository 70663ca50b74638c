// Package models holds the flat records exchanged between the scraping
// pipeline and the persisters. Records are created once and never mutated.
package models

import "time"

// VideoMetadata is everything extracted from one watch page. Counts and
// dates keep the site's display formatting; only ScrapedAt is normalized.
type VideoMetadata struct {
	ID                  string   `json:"id"`
	URL                 string   `json:"url"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	ExpandedDescription string   `json:"expanded_description,omitempty"`
	Author              string   `json:"author"`
	ChannelURL          string   `json:"channel_url"`
	Views               string   `json:"views"`
	Likes               string   `json:"likes"`
	Thumbnail           string   `json:"image"`
	Duration            string   `json:"duration"`
	Width               string   `json:"width,omitempty"`
	Height              string   `json:"height,omitempty"`
	Tags                []string `json:"tags"`
	Category            string   `json:"category"`
	Language            string   `json:"language"`
	DatePublished       string   `json:"date_published"`
	UploadDate          string   `json:"upload_date"`
	ScrapedAt           string   `json:"scraped_at"`
	ScreenshotPath      string   `json:"screenshot_path,omitempty"`
}

// FailedVideo records a video whose pipeline failed after retries.
type FailedVideo struct {
	URL              string `json:"url"`
	Error            string `json:"error"`
	RetriesAttempted int    `json:"retries_attempted"`
}

// Summary aggregates the outcome of one run.
type Summary struct {
	TotalAttempted int   `json:"total_attempted"`
	Successful     int   `json:"successful"`
	Failed         int   `json:"failed"`
	DurationMS     int64 `json:"duration_ms"`
}

// ScrapingResult is assembled once at the end of a run. Success and
// failed partitions are disjoint; on an interactive early quit the
// remainder of the offered URLs appears in neither.
type ScrapingResult struct {
	Success []VideoMetadata `json:"success"`
	Failed  []FailedVideo   `json:"failed"`
	Summary Summary         `json:"summary"`
}

// NewSummary derives the summary counts from the partitions.
func NewSummary(totalOffered int, success []VideoMetadata, failed []FailedVideo, elapsed time.Duration) Summary {
	return Summary{
		TotalAttempted: totalOffered,
		Successful:     len(success),
		Failed:         len(failed),
		DurationMS:     elapsed.Milliseconds(),
	}
}
