package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// RodLauncher owns one Chrome process started by the rod launcher.
// Every session is an incognito context.
type RodLauncher struct {
	launch  *launcher.Launcher
	browser *rod.Browser
	opts    LaunchOptions
}

// NewRodLauncher starts Chrome and connects over the DevTools protocol
func NewRodLauncher(ctx context.Context, opts LaunchOptions) (*RodLauncher, error) {
	l := launcher.New().Headless(opts.Headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to chrome: %w", err)
	}

	return &RodLauncher{launch: l, browser: browser, opts: opts}, nil
}

func (l *RodLauncher) NewSession(ctx context.Context) (Driver, error) {
	incognito, err := l.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		incognito.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if l.opts.Viewport.Width > 0 && l.opts.Viewport.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             l.opts.Viewport.Width,
			Height:            l.opts.Viewport.Height,
			DeviceScaleFactor: 1.0,
		}); err != nil {
			closeAll(page, incognito)
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	return NewRod(page, incognito, l.opts.Viewport), nil
}

func (l *RodLauncher) Close() error {
	err := l.browser.Close()
	l.launch.Kill()
	return err
}

// Rod drives one page through go-rod
type Rod struct {
	page      *rod.Page
	incognito *rod.Browser
	viewport  Size
}

// NewRod wraps an open page. incognito is the browser context the page was
// created in; Close disposes of it. It may be nil for a page of the default context.
func NewRod(page *rod.Page, incognito *rod.Browser, viewport Size) *Rod {
	return &Rod{page: page, incognito: incognito, viewport: viewport}
}

func (r *Rod) Name() string {
	return "rod"
}

func (r *Rod) Navigate(ctx context.Context, url string) error {
	page := r.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return page.WaitLoad()
}

func (r *Rod) Refresh(ctx context.Context) error {
	page := r.page.Context(ctx)
	if err := page.Reload(); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	return page.WaitLoad()
}

func (r *Rod) URL(ctx context.Context) (string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (r *Rod) Title(ctx context.Context) (string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (r *Rod) PageSource(ctx context.Context) (string, error) {
	return r.page.Context(ctx).HTML()
}

func (r *Rod) Query(ctx context.Context, selector string) (Element, error) {
	elements, err := r.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	return First(elements, selector)
}

func (r *Rod) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	page := r.page.Context(ctx)

	var (
		found rod.Elements
		err   error
	)
	if IsXPath(selector) {
		found, err = page.ElementsX(strings.TrimPrefix(selector, XPathPrefix))
	} else {
		found, err = page.Elements(selector)
	}
	if err != nil {
		return nil, translateRod(err)
	}
	return wrapRod(found), nil
}

func (r *Rod) Execute(ctx context.Context, script string) (any, error) {
	res, err := r.page.Context(ctx).Eval(script)
	if err != nil {
		return nil, err
	}
	return jsonValue(res.Value), nil
}

func (r *Rod) WindowSize(ctx context.Context) (Size, error) {
	res, err := r.page.Context(ctx).Eval(ScriptWindowSize)
	if err != nil {
		return r.viewport, nil
	}
	var size Size
	if err := Decode(jsonValue(res.Value), &size); err != nil {
		return Size{}, err
	}
	return size, nil
}

func (r *Rod) Throttle(ctx context.Context, profile NetworkProfile) error {
	page := r.page.Context(ctx)
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return fmt.Errorf("failed to enable network domain: %w", err)
	}
	err := proto.NetworkEmulateNetworkConditions{
		Offline:            profile.Offline,
		Latency:            float64(profile.Latency.Milliseconds()),
		DownloadThroughput: profile.DownloadThroughput,
		UploadThroughput:   profile.UploadThroughput,
	}.Call(page)
	if err != nil {
		return fmt.Errorf("failed to emulate network conditions: %w", err)
	}
	return nil
}

func (r *Rod) SaveScreenshot(ctx context.Context, path string) error {
	data, err := r.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (r *Rod) Close() error {
	if r.incognito == nil {
		return r.page.Close()
	}
	return closeAll(r.page, r.incognito)
}

// closeAll closes every closer in order, even after a failure
func closeAll(closers ...io.Closer) error {
	var errs []error
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func wrapRod(found rod.Elements) []Element {
	elements := make([]Element, 0, len(found))
	for _, el := range found {
		elements = append(elements, &rodElement{el: el})
	}
	return elements
}

func jsonValue(v gson.JSON) any {
	if v.Nil() {
		return nil
	}
	return v.Val()
}

// translateRod maps CDP errors about detached nodes onto ErrStaleElement
func translateRod(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "Could not find node") || strings.Contains(msg, "Cannot find context") {
		return fmt.Errorf("%w: %v", ErrStaleElement, err)
	}
	return err
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) eval(ctx context.Context, js string, args ...interface{}) (gson.JSON, error) {
	res, err := e.el.Context(ctx).Eval(js, args...)
	if err != nil {
		return gson.JSON{}, translateRod(err)
	}
	return res.Value, nil
}

func (e *rodElement) Click(ctx context.Context) error {
	return translateRod(e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

func (e *rodElement) SetValue(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return translateRod(err)
	}
	return translateRod(el.Input(value))
}

func (e *rodElement) Clear(ctx context.Context) error {
	return e.SetValue(ctx, "")
}

func (e *rodElement) Select(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	err := el.Select([]string{fmt.Sprintf("option[value=%q]", value)}, true, rod.SelectorTypeCSSSector)
	if err == nil {
		return nil
	}
	if err := el.Select([]string{value}, true, rod.SelectorTypeText); err != nil {
		return fmt.Errorf("%w: option %q", ErrElementNotFound, value)
	}
	return nil
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	text, err := e.el.Context(ctx).Text()
	return strings.TrimSpace(text), translateRod(err)
}

func (e *rodElement) Value(ctx context.Context) (string, error) {
	v, err := e.eval(ctx, `() => this.value === undefined ? "" : String(this.value)`)
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, translateRod(err)
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (e *rodElement) TagName(ctx context.Context) (string, error) {
	v, err := e.eval(ctx, `() => this.tagName.toLowerCase()`)
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (e *rodElement) IsDisplayed(ctx context.Context) (bool, error) {
	visible, err := e.el.Context(ctx).Visible()
	return visible, translateRod(err)
}

func (e *rodElement) IsSelected(ctx context.Context) (bool, error) {
	v, err := e.eval(ctx, `() => Boolean(this.checked || this.selected)`)
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func (e *rodElement) IsEnabled(ctx context.Context) (bool, error) {
	disabled, err := e.el.Context(ctx).Disabled()
	return !disabled, translateRod(err)
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	return translateRod(e.el.Context(ctx).ScrollIntoView())
}

func (e *rodElement) Query(ctx context.Context, selector string) (Element, error) {
	elements, err := e.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	return First(elements, selector)
}

func (e *rodElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	el := e.el.Context(ctx)

	var (
		found rod.Elements
		err   error
	)
	if IsXPath(selector) {
		found, err = el.ElementsX(strings.TrimPrefix(selector, XPathPrefix))
	} else {
		found, err = el.Elements(selector)
	}
	if err != nil {
		return nil, translateRod(err)
	}
	return wrapRod(found), nil
}

func (e *rodElement) Parent(ctx context.Context) (Element, error) {
	parent, err := e.el.Context(ctx).Parent()
	if err != nil {
		return nil, fmt.Errorf("%w: parent: %v", ErrElementNotFound, translateRod(err))
	}
	return &rodElement{el: parent}, nil
}
