// Package browser owns the lifecycle of the single browser process used
// by a run: launch, page creation with a consistent environment, and
// idempotent teardown.
package browser

import (
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// Session state transitions: Uninitialized -> Ready -> Closed.
type state int

const (
	stateUninitialized state = iota
	stateReady
	stateClosed
)

var (
	// ErrNotInitialized is returned when a page is requested before Initialize.
	ErrNotInitialized = errors.New("browser session not initialized")
	// ErrLaunch wraps failures to start or connect to the browser process.
	ErrLaunch = errors.New("browser launch failed")
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	viewportWidth  = 1920
	viewportHeight = 1080
	devicePixels   = 2.0
)

// Config controls how the session launches its browser.
type Config struct {
	Headless bool
	DarkMode bool
	ProxyURL string
}

// Session wraps one browser process. All pages created through it share
// the same cookie jar, viewport, user agent and color scheme.
type Session struct {
	cfg      Config
	log      zerolog.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	state    state
}

// NewSession builds an uninitialized session.
func NewSession(cfg Config, log zerolog.Logger) *Session {
	return &Session{cfg: cfg, log: log.With().Str("component", "browser").Logger()}
}

// Initialize launches the browser process and connects to it.
func (s *Session) Initialize() error {
	if s.state == stateReady {
		return nil
	}
	if s.state == stateClosed {
		return ErrNotInitialized
	}

	l := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.ProxyURL != "" {
		l = l.Proxy(s.cfg.ProxyURL)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: connect: %v", ErrLaunch, err)
	}

	s.launcher = l
	s.browser = b
	s.state = stateReady
	s.log.Debug().Bool("headless", s.cfg.Headless).Msg("browser session ready")
	return nil
}

// IsInitialized reports whether the session is ready for page creation.
func (s *Session) IsInitialized() bool {
	return s.state == stateReady
}

// Page creates a new page and applies the session's viewport, user agent
// and color scheme. The caller owns closing it.
func (s *Session) Page() (*rod.Page, error) {
	if s.state != stateReady {
		return nil, ErrNotInitialized
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: devicePixels,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to set user agent: %w", err)
	}

	scheme := "light"
	if s.cfg.DarkMode {
		scheme = "dark"
	}
	err = proto.EmulationSetEmulatedMedia{
		Features: []*proto.EmulationMediaFeature{{Name: "prefers-color-scheme", Value: scheme}},
	}.Call(page)
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to emulate color scheme: %w", err)
	}

	// Report like a human-driven browser.
	_, _ = page.EvalOnNewDocument(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`)

	return page, nil
}

// Cleanup closes the browser and kills the launcher process. Safe to call
// multiple times; close errors are logged, never returned, so a hung
// browser cannot mask the primary result.
func (s *Session) Cleanup() {
	if s.state != stateReady {
		s.state = stateClosed
		return
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.log.Warn().Err(err).Msg("browser close failed")
		}
	}
	if s.launcher != nil {
		s.launcher.Kill()
	}
	s.browser = nil
	s.launcher = nil
	s.state = stateClosed
	s.log.Debug().Msg("browser session closed")
}
