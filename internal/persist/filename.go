package persist

import (
	"strings"

	"github.com/araddon/dateparse"

	"ytgrab/internal/models"
)

// Filename derives the stable on-disk base name for a video: the upload
// or publish date as "yy-MM-dd" followed by the video id, or just the id
// when no date parses. Pure function of (UploadDate|DatePublished, ID).
func Filename(meta *models.VideoMetadata) string {
	id := sanitize(meta.ID)
	date := meta.UploadDate
	if date == "" {
		date = meta.DatePublished
	}
	if date == "" {
		return id
	}
	t, err := dateparse.ParseAny(date)
	if err != nil {
		return id
	}
	return t.Format("06-01-02") + " " + id
}

// sanitize strips path separators and other characters that are unsafe in
// file names across platforms.
func sanitize(s string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	)
	return replacer.Replace(s)
}
