package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ytgrab/internal/backoff"
	"ytgrab/internal/browser"
	"ytgrab/internal/config"
	"ytgrab/internal/discover"
	"ytgrab/internal/interact"
	"ytgrab/internal/metrics"
	"ytgrab/internal/persist"
	"ytgrab/internal/scrape"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "ytgrab [URL]",
		Short:   "Scrape YouTube channel/video pages with a real browser",
		Version: version,
		Long: `ytgrab drives a headless browser to enumerate the videos on a channel
page and, for each video, extract structured metadata from the rendered
DOM, capture a screenshot, download the thumbnail and persist HTML and
markdown snapshots of the watch page.`,
		Example: `  # Scrape the 10 newest videos of a channel
  ytgrab https://www.youtube.com/@somechannel

  # Scrape one video, dark theater layout, no screenshot
  ytgrab --dark-mode --theater-mode --skip-screenshots "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

  # Page through a channel interactively with a visible browser
  ytgrab -i --offset 20 --max-videos 20 https://www.youtube.com/@somechannel`,
		Args:         cobra.ExactArgs(1),
		RunE:         run,
		SilenceUsage: true,
	}

	f := rootCmd.Flags()
	f.IntP("max-videos", "n", 10, "Maximum number of channel videos to scrape")
	f.Int("offset", 0, "Pagination offset into the discovered video list")
	f.Int("delay", 2000, "Base delay between videos in milliseconds")
	f.Int("max-retries", 3, "Retries per video before recording a failure")
	f.Duration("timeout", 30*time.Second, "Navigation timeout")
	f.Bool("headless", true, "Run the browser without a visible window")
	f.Bool("skip-screenshots", false, "Do not capture screenshots")
	f.BoolP("verbose", "v", false, "Enable debug logging")
	f.StringP("output", "o", "", "Output directory (derived from channel/video when empty)")
	f.Bool("dark-mode", false, "Emulate the dark color scheme")
	f.Bool("theater-mode", false, "Switch the player to theater layout")
	f.Bool("hide-suggested", false, "Hide the suggested-videos panels")
	f.BoolP("interactive", "i", false, "Pause after each video until the operator advances")
	f.Bool("complete-html", false, "Also save a self-contained copy of each watch page")
	f.StringP("proxy", "p", os.Getenv("YTGRAB_PROXY"), "Proxy URL, defaults to YTGRAB_PROXY env var")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	viper.SetEnvPrefix("YTGRAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	cfg := config.Config{
		URL:              args[0],
		MaxVideos:        viper.GetInt("max-videos"),
		Offset:           viper.GetInt("offset"),
		Delay:            time.Duration(viper.GetInt("delay")) * time.Millisecond,
		MaxRetries:       viper.GetInt("max-retries"),
		Timeout:          viper.GetDuration("timeout"),
		Headless:         viper.GetBool("headless"),
		SkipScreenshots:  viper.GetBool("skip-screenshots"),
		Verbose:          viper.GetBool("verbose"),
		OutputDir:        viper.GetString("output"),
		DarkMode:         viper.GetBool("dark-mode"),
		TheaterMode:      viper.GetBool("theater-mode"),
		HideSuggested:    viper.GetBool("hide-suggested"),
		Interactive:      viper.GetBool("interactive"),
		SaveCompleteHTML: viper.GetBool("complete-html"),
	}
	if cfg.Interactive {
		// The operator needs to see the pages they are stepping through.
		cfg.Headless = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	outputDir := cfg.DeriveOutputDir()
	cfg.OutputDir = outputDir

	session := browser.NewSession(browser.Config{
		Headless: cfg.Headless,
		DarkMode: cfg.DarkMode,
		ProxyURL: viper.GetString("proxy"),
	}, log)
	if err := session.Initialize(); err != nil {
		return err
	}
	defer session.Cleanup()

	m := metrics.New()
	helper := interact.New(log)
	discoverer := discover.New(session, helper, log, cfg.Timeout)
	saver := persist.NewSaver(outputDir, nil, log, m)
	if err := saver.EnsureLayout(cfg.SaveCompleteHTML); err != nil {
		return err
	}
	delayer := backoff.NewDelayer(cfg.Delay)

	runner := scrape.NewRunner(cfg, session, helper, discoverer, saver, delayer,
		log, m, os.Stdin, os.Stdout)

	result, err := runner.Run(context.Background())
	if err != nil {
		return err
	}

	s := result.Summary
	fmt.Printf("scraped %d/%d videos (%d failed) in %s, output in %s\n",
		s.Successful, s.TotalAttempted, s.Failed,
		(time.Duration(s.DurationMS) * time.Millisecond).Round(time.Millisecond), outputDir)

	// Per-video failures do not fail the run; only session-level errors do.
	return nil
}
