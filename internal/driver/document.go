package driver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// AnyPath registers a Document page served for every path without its own entry
const AnyPath = "*"

// ClickHook lets a Document emulate client-side behavior after a click or a
// select change. It runs with the document lock held and must not call back
// into the driver.
type ClickHook func(doc *goquery.Document, target *goquery.Selection)

// Document is an in-memory driver over static HTML. It understands CSS and
// XPath selectors, form state (checked, selected, value) and the shared
// scripts, which is enough to exercise page objects without a browser.
type Document struct {
	mu      sync.Mutex
	pages   map[string]string
	doc     *goquery.Document
	url     string
	size    Size
	profile *NetworkProfile
	closed  bool
	onClick ClickHook
}

// NewDocument creates a driver that serves source for every path
func NewDocument(source string) *Document {
	return NewDocumentSite(map[string]string{AnyPath: source})
}

// NewDocumentSite creates a driver serving one HTML source per URL path
func NewDocumentSite(pages map[string]string) *Document {
	return &Document{
		pages: pages,
		size:  Size{Width: 1366, Height: 768},
	}
}

// SetWindowSize changes the reported viewport size
func (d *Document) SetWindowSize(size Size) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.size = size
}

// OnClick installs a hook run after every successful click or selection
func (d *Document) OnClick(hook ClickHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onClick = hook
}

// Profile returns the last network profile applied, if any
func (d *Document) Profile() (NetworkProfile, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.profile == nil {
		return NetworkProfile{}, false
	}
	return *d.profile, true
}

func (d *Document) Name() string {
	return "document"
}

func (d *Document) Navigate(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("document driver is closed")
	}

	path := "/"
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}

	source, ok := d.pages[path]
	if !ok {
		source, ok = d.pages[AnyPath]
	}
	if !ok {
		return fmt.Errorf("no document registered for %s", path)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return fmt.Errorf("failed to parse document for %s: %w", path, err)
	}

	d.doc = doc
	d.url = rawURL
	return nil
}

func (d *Document) Refresh(ctx context.Context) error {
	d.mu.Lock()
	current := d.url
	d.mu.Unlock()
	return d.Navigate(ctx, current)
}

func (d *Document) URL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, ctx.Err()
}

func (d *Document) Title(ctx context.Context) (string, error) {
	doc, err := d.current(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func (d *Document) PageSource(ctx context.Context) (string, error) {
	doc, err := d.current(ctx)
	if err != nil {
		return "", err
	}
	return doc.Html()
}

func (d *Document) Query(ctx context.Context, selector string) (Element, error) {
	elements, err := d.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	return First(elements, selector)
}

func (d *Document) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	doc, err := d.current(ctx)
	if err != nil {
		return nil, err
	}
	return d.wrap(doc, find(doc.Selection, selector)), nil
}

func (d *Document) Execute(ctx context.Context, script string) (any, error) {
	doc, err := d.current(ctx)
	if err != nil {
		return nil, err
	}

	switch script {
	case ScriptReadyState:
		return "complete", nil
	case ScriptBodyText:
		return collapse(doc.Find("body").Text()), nil
	case ScriptBodyHTMLLength:
		body, _ := doc.Find("body").Html()
		return float64(len(body)), nil
	case ScriptScrollToBottom:
		return true, nil
	case ScriptPerformance:
		return map[string]any{
			"domContentLoaded":     0.0,
			"loadComplete":         0.0,
			"firstPaint":           0.0,
			"firstContentfulPaint": 0.0,
		}, nil
	case ScriptWindowSize:
		d.mu.Lock()
		defer d.mu.Unlock()
		return map[string]any{"width": float64(d.size.Width), "height": float64(d.size.Height)}, nil
	case ScriptStructure:
		return structureOf(doc), nil
	default:
		return nil, ErrUnsupportedScript
	}
}

func (d *Document) WindowSize(ctx context.Context) (Size, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size, ctx.Err()
}

func (d *Document) Throttle(ctx context.Context, profile NetworkProfile) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profile = &profile
	return ctx.Err()
}

// SaveScreenshot writes the current markup in place of a bitmap
func (d *Document) SaveScreenshot(ctx context.Context, path string) error {
	source, err := d.PageSource(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	return os.WriteFile(path, []byte(source), 0o644)
}

func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Document) current(ctx context.Context) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("document driver is closed")
	}
	if d.doc == nil {
		return nil, errors.New("document driver has not navigated")
	}
	return d.doc, nil
}

func (d *Document) wrap(doc *goquery.Document, sel *goquery.Selection) []Element {
	elements := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &docElement{d: d, doc: doc, sel: s})
	})
	return elements
}

// find evaluates a CSS or XPath selector below root. Selectors the static
// engine cannot compile (Playwright pseudo-classes, for example) match nothing.
func find(root *goquery.Selection, selector string) *goquery.Selection {
	if !IsXPath(selector) {
		return root.Find(selector)
	}

	expr := strings.TrimPrefix(selector, XPathPrefix)
	var nodes []*html.Node
	for _, top := range root.Nodes {
		matched, err := htmlquery.QueryAll(top, expr)
		if err != nil {
			return root.Slice(0, 0)
		}
		nodes = append(nodes, matched...)
	}
	return root.FindNodes(nodes...)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func structureOf(doc *goquery.Document) map[string]any {
	count := func(sel string) float64 { return float64(doc.Find(sel).Length()) }

	seen := make(map[string]bool)
	classes := make([]any, 0, 50)
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, c := range strings.Fields(s.AttrOr("class", "")) {
			if seen[c] {
				continue
			}
			seen[c] = true
			classes = append(classes, c)
			if len(classes) == 50 {
				return false
			}
		}
		return true
	})

	return map[string]any{
		"divs":          count("div"),
		"spans":         count("span"),
		"buttons":       count("button"),
		"inputs":        count("input"),
		"images":        count("img"),
		"links":         count("a"),
		"forms":         count("form"),
		"articles":      count("article"),
		"sections":      count("section"),
		"uniqueClasses": classes,
	}
}

type docElement struct {
	d   *Document
	doc *goquery.Document
	sel *goquery.Selection
}

// live locks the driver and checks the handle still belongs to the current render
func (e *docElement) live(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.d.mu.Lock()
	if e.d.doc != e.doc {
		e.d.mu.Unlock()
		return nil, ErrStaleElement
	}
	return e.d.mu.Unlock, nil
}

func (e *docElement) Click(ctx context.Context) error {
	unlock, err := e.live(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if !visible(e.sel) {
		return errors.New("element is not displayed")
	}
	if _, disabled := e.sel.Attr("disabled"); disabled {
		return errors.New("element is disabled")
	}

	switch tag := goquery.NodeName(e.sel); {
	case tag == "input":
		toggle(e.doc, e.sel)
	case tag == "label":
		if id, ok := e.sel.Attr("for"); ok {
			toggle(e.doc, e.doc.Find("#"+id).First())
		} else {
			toggle(e.doc, e.sel.Find("input").First())
		}
	case tag == "option":
		selectOption(e.sel.ParentsFiltered("select").First(), e.sel)
	}

	if e.d.onClick != nil {
		e.d.onClick(e.doc, e.sel)
	}
	return nil
}

func toggle(doc *goquery.Document, input *goquery.Selection) {
	if input.Length() == 0 {
		return
	}
	switch strings.ToLower(input.AttrOr("type", "text")) {
	case "checkbox":
		if _, checked := input.Attr("checked"); checked {
			input.RemoveAttr("checked")
		} else {
			input.SetAttr("checked", "checked")
		}
	case "radio":
		if name, ok := input.Attr("name"); ok {
			doc.Find(`input[type="radio"][name="` + name + `"]`).RemoveAttr("checked")
		}
		input.SetAttr("checked", "checked")
	}
}

func selectOption(list, option *goquery.Selection) {
	list.Find("option").RemoveAttr("selected")
	option.SetAttr("selected", "selected")
}

func (e *docElement) SetValue(ctx context.Context, value string) error {
	unlock, err := e.live(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, disabled := e.sel.Attr("disabled"); disabled {
		return errors.New("element is disabled")
	}
	if goquery.NodeName(e.sel) == "textarea" {
		e.sel.SetText(value)
		return nil
	}
	e.sel.SetAttr("value", value)
	return nil
}

func (e *docElement) Clear(ctx context.Context) error {
	return e.SetValue(ctx, "")
}

func (e *docElement) Select(ctx context.Context, value string) error {
	unlock, err := e.live(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if goquery.NodeName(e.sel) != "select" {
		return errors.New("element is not a select")
	}

	var match *goquery.Selection
	e.sel.Find("option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if opt.AttrOr("value", collapse(opt.Text())) == value || collapse(opt.Text()) == value {
			match = opt
			return false
		}
		return true
	})
	if match == nil {
		return fmt.Errorf("%w: option %q", ErrElementNotFound, value)
	}

	selectOption(e.sel, match)
	if e.d.onClick != nil {
		e.d.onClick(e.doc, e.sel)
	}
	return nil
}

func (e *docElement) Text(ctx context.Context) (string, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()
	return collapse(e.sel.Text()), nil
}

func (e *docElement) Value(ctx context.Context) (string, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	if goquery.NodeName(e.sel) == "select" {
		selected := e.sel.Find("option[selected]").First()
		if selected.Length() == 0 {
			selected = e.sel.Find("option").First()
		}
		return selected.AttrOr("value", collapse(selected.Text())), nil
	}
	if goquery.NodeName(e.sel) == "textarea" {
		return e.sel.Text(), nil
	}
	return e.sel.AttrOr("value", ""), nil
}

func (e *docElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return "", false, err
	}
	defer unlock()
	value, ok := e.sel.Attr(name)
	return value, ok, nil
}

func (e *docElement) TagName(ctx context.Context) (string, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()
	return goquery.NodeName(e.sel), nil
}

func (e *docElement) IsDisplayed(ctx context.Context) (bool, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()
	return visible(e.sel), nil
}

func (e *docElement) IsSelected(ctx context.Context) (bool, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	switch goquery.NodeName(e.sel) {
	case "input":
		_, checked := e.sel.Attr("checked")
		return checked, nil
	case "option":
		_, selected := e.sel.Attr("selected")
		return selected, nil
	}
	return false, nil
}

func (e *docElement) IsEnabled(ctx context.Context) (bool, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()
	_, disabled := e.sel.Attr("disabled")
	return !disabled, nil
}

func (e *docElement) ScrollIntoView(ctx context.Context) error {
	unlock, err := e.live(ctx)
	if err != nil {
		return err
	}
	unlock()
	return nil
}

func (e *docElement) Query(ctx context.Context, selector string) (Element, error) {
	elements, err := e.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	return First(elements, selector)
}

func (e *docElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return e.d.wrap(e.doc, find(e.sel, selector)), nil
}

func (e *docElement) Parent(ctx context.Context) (Element, error) {
	unlock, err := e.live(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	parent := e.sel.Parent()
	if parent.Length() == 0 {
		return nil, fmt.Errorf("%w: parent", ErrElementNotFound)
	}
	return &docElement{d: e.d, doc: e.doc, sel: parent}, nil
}

// visible approximates CSS visibility from markup alone
func visible(sel *goquery.Selection) bool {
	for s := sel; s.Length() > 0; s = s.Parent() {
		switch goquery.NodeName(s) {
		case "head", "script", "style", "template":
			return false
		}
		if _, hidden := s.Attr("hidden"); hidden {
			return false
		}
		if goquery.NodeName(s) == "input" && strings.EqualFold(s.AttrOr("type", ""), "hidden") {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(s.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}
