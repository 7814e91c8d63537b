// Package driver defines the browser capability set the page objects consume
// and the implementations that provide it.
package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errors surfaced unmodified to callers
var (
	ErrElementNotFound   = errors.New("element not found")
	ErrStaleElement      = errors.New("stale element reference")
	ErrUnsupportedScript = errors.New("script not supported by driver")
)

// XPathPrefix marks a selector as XPath rather than CSS
const XPathPrefix = "xpath="

// IsXPath reports whether selector uses the XPath prefix
func IsXPath(selector string) bool {
	return strings.HasPrefix(selector, XPathPrefix)
}

// Size is a viewport size in CSS pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NetworkProfile describes emulated network conditions.
// Throughputs are in bytes per second.
type NetworkProfile struct {
	Offline            bool
	DownloadThroughput float64
	UploadThroughput   float64
	Latency            time.Duration
}

// Driver is one browser session
type Driver interface {
	Name() string
	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)
	// Query returns the first match or ErrElementNotFound
	Query(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	Execute(ctx context.Context, script string) (any, error)
	WindowSize(ctx context.Context) (Size, error)
	Throttle(ctx context.Context, profile NetworkProfile) error
	SaveScreenshot(ctx context.Context, path string) error
	Close() error
}

// Element is a handle to one DOM node. Handles go stale when the DOM is
// re-rendered; callers re-query instead of caching them.
type Element interface {
	Click(ctx context.Context) error
	SetValue(ctx context.Context, value string) error
	Clear(ctx context.Context) error
	Select(ctx context.Context, value string) error
	Text(ctx context.Context) (string, error)
	Value(ctx context.Context) (string, error)
	// Attribute reports the attribute value and whether it is present
	Attribute(ctx context.Context, name string) (string, bool, error)
	TagName(ctx context.Context) (string, error)
	IsDisplayed(ctx context.Context) (bool, error)
	IsSelected(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	ScrollIntoView(ctx context.Context) error
	Query(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	Parent(ctx context.Context) (Element, error)
}

// LaunchOptions configures the browser behind a Launcher
type LaunchOptions struct {
	Headless bool
	Viewport Size
}

// Launcher starts isolated driver sessions against one browser process.
// Sessions are never shared between workers.
type Launcher interface {
	NewSession(ctx context.Context) (Driver, error)
	Close() error
}

// LauncherFunc adapts a function into a Launcher with a no-op Close
type LauncherFunc func(ctx context.Context) (Driver, error)

func (f LauncherFunc) NewSession(ctx context.Context) (Driver, error) {
	return f(ctx)
}

func (f LauncherFunc) Close() error {
	return nil
}

// Launch starts the named browser backend
func Launch(ctx context.Context, name string, opts LaunchOptions) (Launcher, error) {
	switch name {
	case "playwright":
		return NewPlaywrightLauncher(opts)
	case "rod":
		return NewRodLauncher(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown driver %q", name)
	}
}

// Scripts understood by every driver, including the static Document driver
const (
	ScriptReadyState = `() => document.readyState`

	ScriptBodyText = `() => document.body ? document.body.innerText : ""`

	ScriptBodyHTMLLength = `() => document.body ? document.body.innerHTML.length : 0`

	ScriptScrollToBottom = `() => { window.scrollTo(0, document.body.scrollHeight); return true; }`

	ScriptPerformance = `() => {
	const nav = performance.getEntriesByType('navigation')[0] || {};
	const paint = performance.getEntriesByType('paint');
	return {
		domContentLoaded: (nav.domContentLoadedEventEnd || 0) - (nav.domContentLoadedEventStart || 0),
		loadComplete: (nav.loadEventEnd || 0) - (nav.loadEventStart || 0),
		firstPaint: paint[0] ? paint[0].startTime : 0,
		firstContentfulPaint: paint[1] ? paint[1].startTime : 0
	};
}`

	ScriptStructure = `() => {
	const count = (sel) => document.querySelectorAll(sel).length;
	const classes = new Set();
	document.querySelectorAll('*').forEach((el) => {
		if (el.className && typeof el.className === 'string') {
			el.className.split(' ').forEach((c) => { if (c.trim()) classes.add(c.trim()); });
		}
	});
	return {
		divs: count('div'), spans: count('span'), buttons: count('button'),
		inputs: count('input'), images: count('img'), links: count('a'),
		forms: count('form'), articles: count('article'), sections: count('section'),
		uniqueClasses: Array.from(classes).slice(0, 50)
	};
}`

	ScriptWindowSize = `() => ({ width: window.innerWidth, height: window.innerHeight })`
)

// Decode converts a script result into out via its JSON form
func Decode(result any, out any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode script result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

// First returns the first element or ErrElementNotFound
func First(elements []Element, selector string) (Element, error) {
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return elements[0], nil
}
