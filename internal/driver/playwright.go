package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher owns one Chromium process; each session gets its own
// browser context so cookies and storage never leak between workers.
type PlaywrightLauncher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    LaunchOptions
}

// NewPlaywrightLauncher starts Playwright and launches Chromium.
// Browsers must be installed beforehand with the playwright CLI.
func NewPlaywrightLauncher(opts LaunchOptions) (*PlaywrightLauncher, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	return &PlaywrightLauncher{pw: pw, browser: browser, opts: opts}, nil
}

func (l *PlaywrightLauncher) NewSession(ctx context.Context) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if l.opts.Viewport.Width > 0 && l.opts.Viewport.Height > 0 {
		contextOpts.Viewport = &playwright.Size{
			Width:  l.opts.Viewport.Width,
			Height: l.opts.Viewport.Height,
		}
	}

	bctx, err := l.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return NewPlaywright(bctx, page), nil
}

func (l *PlaywrightLauncher) Close() error {
	if err := l.browser.Close(); err != nil {
		l.pw.Stop()
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return l.pw.Stop()
}

// Playwright drives one page through playwright-go
type Playwright struct {
	bctx playwright.BrowserContext
	page playwright.Page
}

// NewPlaywright wraps an open page. Close releases the browser context.
func NewPlaywright(bctx playwright.BrowserContext, page playwright.Page) *Playwright {
	return &Playwright{bctx: bctx, page: page}
}

func (p *Playwright) Name() string {
	return "playwright"
}

func (p *Playwright) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Goto(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *Playwright) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Reload(); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	return nil
}

func (p *Playwright) URL(ctx context.Context) (string, error) {
	return p.page.URL(), ctx.Err()
}

func (p *Playwright) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Title()
}

func (p *Playwright) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

func (p *Playwright) Query(ctx context.Context, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handle, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, translatePlaywright(err)
	}
	if handle == nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return &pwElement{handle: handle}, nil
}

func (p *Playwright) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, translatePlaywright(err)
	}
	return wrapHandles(handles), nil
}

func (p *Playwright) Execute(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.page.Evaluate(script)
}

func (p *Playwright) WindowSize(ctx context.Context) (Size, error) {
	if err := ctx.Err(); err != nil {
		return Size{}, err
	}
	if vp := p.page.ViewportSize(); vp != nil {
		return Size{Width: vp.Width, Height: vp.Height}, nil
	}

	var size Size
	result, err := p.page.Evaluate(ScriptWindowSize)
	if err != nil {
		return Size{}, err
	}
	return size, Decode(result, &size)
}

// Throttle applies the profile through a CDP session (Chromium only)
func (p *Playwright) Throttle(ctx context.Context, profile NetworkProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	session, err := p.bctx.NewCDPSession(p.page)
	if err != nil {
		return fmt.Errorf("failed to open CDP session: %w", err)
	}
	defer session.Detach()

	if _, err := session.Send("Network.enable", map[string]interface{}{}); err != nil {
		return fmt.Errorf("failed to enable network domain: %w", err)
	}
	_, err = session.Send("Network.emulateNetworkConditions", map[string]interface{}{
		"offline":            profile.Offline,
		"latency":            profile.Latency.Milliseconds(),
		"downloadThroughput": profile.DownloadThroughput,
		"uploadThroughput":   profile.UploadThroughput,
	})
	if err != nil {
		return fmt.Errorf("failed to emulate network conditions: %w", err)
	}
	return nil
}

func (p *Playwright) SaveScreenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *Playwright) Close() error {
	return p.bctx.Close()
}

func wrapHandles(handles []playwright.ElementHandle) []Element {
	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &pwElement{handle: h})
	}
	return elements
}

// translatePlaywright maps detached-node failures onto ErrStaleElement
func translatePlaywright(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "not attached to the DOM") {
		return fmt.Errorf("%w: %v", ErrStaleElement, err)
	}
	return err
}

type pwElement struct {
	handle playwright.ElementHandle
}

func (e *pwElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translatePlaywright(e.handle.Click())
}

func (e *pwElement) SetValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translatePlaywright(e.handle.Fill(value))
}

func (e *pwElement) Clear(ctx context.Context) error {
	return e.SetValue(ctx, "")
}

func (e *pwElement) Select(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	selected, err := e.handle.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}})
	if err != nil {
		return translatePlaywright(err)
	}
	if len(selected) == 0 {
		return fmt.Errorf("%w: option %q", ErrElementNotFound, value)
	}
	return nil
}

func (e *pwElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.handle.InnerText()
	return strings.TrimSpace(text), translatePlaywright(err)
}

func (e *pwElement) Value(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	value, err := e.handle.InputValue()
	return value, translatePlaywright(err)
}

func (e *pwElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	result, err := e.handle.Evaluate(`(el, name) => el.getAttribute(name)`, name)
	if err != nil {
		return "", false, translatePlaywright(err)
	}
	value, ok := result.(string)
	return value, ok, nil
}

func (e *pwElement) TagName(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result, err := e.handle.Evaluate(`(el) => el.tagName.toLowerCase()`)
	if err != nil {
		return "", translatePlaywright(err)
	}
	tag, _ := result.(string)
	return tag, nil
}

func (e *pwElement) IsDisplayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	visible, err := e.handle.IsVisible()
	return visible, translatePlaywright(err)
}

func (e *pwElement) IsSelected(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	result, err := e.handle.Evaluate(`(el) => Boolean(el.checked || el.selected)`)
	if err != nil {
		return false, translatePlaywright(err)
	}
	selected, _ := result.(bool)
	return selected, nil
}

func (e *pwElement) IsEnabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	enabled, err := e.handle.IsEnabled()
	return enabled, translatePlaywright(err)
}

func (e *pwElement) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translatePlaywright(e.handle.ScrollIntoViewIfNeeded())
}

func (e *pwElement) Query(ctx context.Context, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handle, err := e.handle.QuerySelector(selector)
	if err != nil {
		return nil, translatePlaywright(err)
	}
	if handle == nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return &pwElement{handle: handle}, nil
}

func (e *pwElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, translatePlaywright(err)
	}
	return wrapHandles(handles), nil
}

func (e *pwElement) Parent(ctx context.Context) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	js, err := e.handle.EvaluateHandle(`(el) => el.parentElement`)
	if err != nil {
		return nil, translatePlaywright(err)
	}
	parent := js.AsElement()
	if parent == nil {
		return nil, fmt.Errorf("%w: parent", ErrElementNotFound)
	}
	return &pwElement{handle: parent}, nil
}
