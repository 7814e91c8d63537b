// Package discovery inspects a storefront page and reports which of a fixed
// list of candidate selectors match. It is a diagnostic aid for keeping the
// page-object locators current and never fails on what it finds.
package discovery

import (
	"context"
	"fmt"

	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/pages"
	"go.uber.org/zap"
)

// ScreenshotName is the file the browser discovery pass saves
const ScreenshotName = "page-discovery.png"

// Discoverer runs discovery through a live driver session
type Discoverer struct {
	opts pages.Options
	log  *zap.Logger
}

// NewDiscoverer creates a browser discoverer
func NewDiscoverer(opts pages.Options, log *zap.Logger) *Discoverer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Discoverer{opts: opts, log: log}
}

// Discover opens path on d and inspects the rendered page
func (s *Discoverer) Discover(ctx context.Context, d driver.Driver, path string) (*Report, error) {
	base := pages.NewBasePage(d, s.opts, s.log)
	if err := base.Open(ctx, path); err != nil {
		return nil, err
	}

	r := &Report{Mode: "browser"}
	var err error
	if r.Title, err = d.Title(ctx); err != nil {
		return nil, fmt.Errorf("failed to read title: %w", err)
	}
	if r.URL, err = d.URL(ctx); err != nil {
		return nil, fmt.Errorf("failed to read url: %w", err)
	}

	if shot, err := base.TakeScreenshot(ctx, ScreenshotName); err != nil {
		s.log.Warn("discovery screenshot failed", zap.Error(err))
	} else {
		r.Screenshot = shot
	}

	source, err := d.PageSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page source: %w", err)
	}
	r.SourceLength = len(source)
	if err := analyzeSource(source, r); err != nil {
		return nil, err
	}

	if v, err := d.Execute(ctx, driver.ScriptBodyHTMLLength); err == nil {
		if n, ok := v.(float64); ok {
			r.BodyLength = int(n)
		}
	}

	if r.Containers, err = s.matchAll(ctx, d, ContainerSelectors, containerSamples); err != nil {
		return nil, err
	}
	if r.Filters, err = s.matchAll(ctx, d, FilterSelectors, filterSamples); err != nil {
		return nil, err
	}

	text, err := d.Execute(ctx, driver.ScriptBodyText)
	if err != nil {
		return nil, fmt.Errorf("failed to read body text: %w", err)
	}
	body, _ := text.(string)
	r.Brands = CountBrands(body)

	structure, err := d.Execute(ctx, driver.ScriptStructure)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze page structure: %w", err)
	}
	if err := driver.Decode(structure, &r.Structure); err != nil {
		return nil, err
	}

	ready, err := d.Execute(ctx, driver.ScriptReadyState)
	if err != nil {
		return nil, fmt.Errorf("failed to read ready state: %w", err)
	}
	r.ReadyState, _ = ready.(string)

	return r, nil
}

// matchAll queries every selector; a selector the engine rejects is logged
// and skipped like one that matched nothing
func (s *Discoverer) matchAll(ctx context.Context, d driver.Driver, selectors []string, samples int) ([]SelectorMatch, error) {
	var matches []SelectorMatch
	for _, sel := range selectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		elements, err := d.QueryAll(ctx, sel)
		if err != nil {
			s.log.Debug("candidate selector failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		if len(elements) == 0 {
			continue
		}

		m := SelectorMatch{Selector: sel, Count: len(elements)}
		for _, el := range elements[:min(samples, len(elements))] {
			m.Samples = append(m.Samples, describe(ctx, el))
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// describe reads what it can from el; stale handles yield partial records
func describe(ctx context.Context, el driver.Element) Element {
	attr := func(name string) string {
		v, _, _ := el.Attribute(ctx, name)
		return v
	}
	tag, _ := el.TagName(ctx)
	text, _ := el.Text(ctx)
	return Element{
		Tag:   tag,
		Class: attr("class"),
		ID:    attr("id"),
		Text:  truncate(collapse(text), 50),
		Type:  attr("type"),
		Name:  attr("name"),
		Value: attr("value"),
	}
}
