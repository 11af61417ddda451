// Package browser renders and scrapes the HerKey job and event listings.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"asha/internal/logging"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
)

// Renderer fetches the HTML of a page once waitSelector (if any) is present.
type Renderer interface {
	Render(ctx context.Context, url, waitSelector string) (string, error)
	Name() string
}

// Session describes one in-flight page render.
type Session struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Config holds browser configuration.
type Config struct {
	DebuggerURL    string        `json:"debugger_url"`
	ChromeBin      string        `json:"chrome_bin"`
	Flags          []string      `json:"flags"`
	Headless       bool          `json:"headless"`
	ViewportWidth  int           `json:"viewport_width"`
	ViewportHeight int           `json:"viewport_height"`
	WaitTimeout    time.Duration `json:"wait_timeout"`
	SettleDelay    time.Duration `json:"settle_delay"`
}

// DefaultConfig returns the settings used for HerKey scraping.
func DefaultConfig() Config {
	return Config{
		Headless:       true,
		Flags:          []string{"--no-sandbox", "--disable-dev-shm-usage", "--window-size=1920,1080"},
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		WaitTimeout:    60 * time.Second,
		SettleDelay:    3 * time.Second,
	}
}

// GetViewportWidth returns viewport width.
func (c Config) GetViewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1920
	}
	return c.ViewportWidth
}

// GetViewportHeight returns viewport height.
func (c Config) GetViewportHeight() int {
	if c.ViewportHeight == 0 {
		return 1080
	}
	return c.ViewportHeight
}

// GetWaitTimeout returns how long to wait for the page and selector.
func (c Config) GetWaitTimeout() time.Duration {
	if c.WaitTimeout <= 0 {
		return 60 * time.Second
	}
	return c.WaitTimeout
}

// SessionManager owns a Chrome instance and renders pages in isolated
// incognito contexts.
type SessionManager struct {
	cfg        Config
	mu         sync.RWMutex
	browser    *rod.Browser
	sessions   map[string]Session
	controlURL string // WebSocket URL for DevTools
}

// NewSessionManager creates a new session manager. Chrome is started lazily.
func NewSessionManager(cfg Config) *SessionManager {
	return &SessionManager{
		cfg:      cfg,
		sessions: make(map[string]Session),
	}
}

// Start connects to an existing Chrome or launches a new one.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// If we already have a browser, verify it's still alive
	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("Stale browser connection detected, reconnecting")
		_ = m.browser.Close()
		m.browser = nil
		m.controlURL = ""
	}

	controlURL := m.cfg.DebuggerURL
	if controlURL == "" {
		launch := launcher.New().Headless(m.cfg.Headless)
		if m.cfg.ChromeBin != "" {
			launch = launch.Bin(m.cfg.ChromeBin)
		}
		for _, rawFlag := range m.cfg.Flags {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if name == "headless" {
				continue // controlled by Headless
			}
			if hasVal {
				launch = launch.Set(flags.Flag(name), val)
			} else {
				launch = launch.Set(flags.Flag(name))
			}
		}
		u, err := launch.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.browser = browser
	m.controlURL = controlURL
	logging.Browser("Connected to Chrome at %s", controlURL)
	return nil
}

func (m *SessionManager) ensureStarted(ctx context.Context) error {
	m.mu.RLock()
	if m.browser != nil {
		m.mu.RUnlock()
		return nil
	}
	m.mu.RUnlock()
	// The browser outlives the request that happened to start it.
	return m.Start(context.WithoutCancel(ctx))
}

// ControlURL returns the WebSocket debugger URL.
func (m *SessionManager) ControlURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlURL
}

// IsConnected returns whether the browser is connected.
func (m *SessionManager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// List returns the renders currently in flight.
func (m *SessionManager) List() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Shutdown closes the browser.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	m.controlURL = ""
	m.sessions = make(map[string]Session)
	return err
}

// Render opens url in a fresh incognito page, waits for the document to load
// and for waitSelector to appear, lets scripts settle, and returns the HTML.
// A selector that never appears is not an error: the page is returned as-is
// and the caller finds no cards.
func (m *SessionManager) Render(ctx context.Context, url, waitSelector string) (string, error) {
	if err := m.ensureStarted(ctx); err != nil {
		return "", err
	}
	m.mu.RLock()
	browser := m.browser
	m.mu.RUnlock()
	if browser == nil {
		return "", errors.New("browser not connected")
	}

	sess := m.track(url)
	defer m.untrack(sess.ID)

	timer := logging.StartTimer(logging.CategoryBrowser, "Render")
	defer timer.Stop()

	incognito, err := browser.Incognito()
	if err != nil {
		return "", fmt.Errorf("incognito context: %w", err)
	}
	defer incognito.Close()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.GetViewportWidth(),
		Height:            m.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		logging.BrowserDebug("Failed to set viewport: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.GetWaitTimeout())
	defer cancel()
	p := page.Context(waitCtx)

	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		logging.BrowserWarn("Page %s did not finish loading: %v", url, err)
	}
	if waitSelector != "" {
		if _, err := p.Element(waitSelector); err != nil {
			logging.BrowserWarn("Timeout: %q did not load on %s: %v", waitSelector, url, err)
		} else {
			logging.BrowserDebug("%q loaded on %s", waitSelector, url)
		}
	}

	if m.cfg.SettleDelay > 0 {
		select {
		case <-time.After(m.cfg.SettleDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// Name returns "browser".
func (m *SessionManager) Name() string {
	return "browser"
}

func (m *SessionManager) track(url string) Session {
	s := Session{ID: uuid.NewString(), URL: url, Status: "rendering", CreatedAt: time.Now()}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *SessionManager) untrack(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
