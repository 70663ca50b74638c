// Package config holds the run configuration. It is constructed once at
// startup from CLI flags and consumed read-only everywhere else.
package config

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// Config is the immutable configuration record for one run.
type Config struct {
	URL              string        // channel or single-video URL
	MaxVideos        int           // max videos to scrape from a channel
	Offset           int           // pagination offset into the discovered list
	Delay            time.Duration // base delay between videos
	MaxRetries       int           // retries per video pipeline
	Timeout          time.Duration // navigation timeout
	Headless         bool
	SkipScreenshots  bool
	Verbose          bool
	OutputDir        string
	DarkMode         bool
	TheaterMode      bool
	HideSuggested    bool
	Interactive      bool
	SaveCompleteHTML bool
}

// Default returns conservative defaults; the CLI overrides them per flag.
func Default() Config {
	return Config{
		MaxVideos:  10,
		Delay:      2 * time.Second,
		MaxRetries: 3,
		Timeout:    30 * time.Second,
		Headless:   true,
	}
}

// Validate ensures the configuration is coherent.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("url must include a host")
	}
	if c.MaxVideos <= 0 {
		return fmt.Errorf("max videos must be positive")
	}
	if c.Offset < 0 {
		return fmt.Errorf("offset cannot be negative")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// IsChannel reports whether the target URL points at a channel rather
// than a single watch page.
func (c Config) IsChannel() bool {
	return !strings.Contains(c.URL, "/watch")
}

// DeriveOutputDir returns the configured output directory, or one derived
// from the channel handle / video id when none was given.
func (c Config) DeriveOutputDir() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return "output"
	}
	if v := u.Query().Get("v"); v != "" {
		return path.Join("output", v)
	}
	seg := strings.Trim(u.Path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	seg = strings.TrimPrefix(seg, "@")
	if seg == "" {
		return "output"
	}
	return path.Join("output", seg)
}
