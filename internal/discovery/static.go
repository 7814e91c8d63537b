package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// StaticDiscoverer fetches the server-rendered markup with colly. Nothing
// runs scripts, so a client-rendered listing shows up as empty containers.
type StaticDiscoverer struct {
	timeout time.Duration
	log     *zap.Logger
}

// NewStaticDiscoverer creates a discoverer whose requests give up after timeout
func NewStaticDiscoverer(timeout time.Duration, log *zap.Logger) *StaticDiscoverer {
	if log == nil {
		log = zap.NewNop()
	}
	return &StaticDiscoverer{timeout: timeout, log: log}
}

// Discover fetches url and inspects the markup it returns
func (s *StaticDiscoverer) Discover(ctx context.Context, url string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(colly.AllowURLRevisit())
	if s.timeout > 0 {
		c.SetRequestTimeout(s.timeout)
	}

	r := &Report{Mode: "static", ReadyState: "n/a"}
	var (
		source   string
		fetchErr error
		found    bool
	)

	c.OnRequest(func(req *colly.Request) {
		if ctx.Err() != nil {
			req.Abort()
		}
	})
	c.OnResponse(func(resp *colly.Response) {
		source = string(resp.Body)
		r.SourceLength = len(resp.Body)
		r.URL = resp.Request.URL.String()
	})
	c.OnError(func(resp *colly.Response, err error) {
		fetchErr = fmt.Errorf("failed to fetch %s (status %d): %w", url, resp.StatusCode, err)
	})
	c.OnHTML("html", func(e *colly.HTMLElement) {
		found = true
		r.Title = collapse(e.DOM.Find("title").First().Text())
		body := e.DOM.Find("body")
		bodyHTML, _ := body.Html()
		r.BodyLength = len(bodyHTML)
		r.Containers = matchSelection(e.DOM, ContainerSelectors, containerSamples)
		r.Filters = matchSelection(e.DOM, FilterSelectors, filterSamples)
		r.Brands = CountBrands(body.Text())
		r.Structure = structureOf(e.DOM)
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if !found {
		return nil, fmt.Errorf("%s did not return an HTML document", url)
	}

	if err := analyzeSource(source, r); err != nil {
		return nil, err
	}
	s.log.Debug("static discovery done", zap.String("url", r.URL), zap.Int("source_length", r.SourceLength))
	return r, nil
}

func matchSelection(root *goquery.Selection, selectors []string, samples int) []SelectorMatch {
	var matches []SelectorMatch
	for _, sel := range selectors {
		found := root.Find(sel)
		if found.Length() == 0 {
			continue
		}
		m := SelectorMatch{Selector: sel, Count: found.Length()}
		found.Slice(0, min(samples, found.Length())).Each(func(_ int, s *goquery.Selection) {
			m.Samples = append(m.Samples, Element{
				Tag:   goquery.NodeName(s),
				Class: s.AttrOr("class", ""),
				ID:    s.AttrOr("id", ""),
				Text:  truncate(collapse(s.Text()), 50),
				Type:  s.AttrOr("type", ""),
				Name:  s.AttrOr("name", ""),
				Value: s.AttrOr("value", ""),
			})
		})
		matches = append(matches, m)
	}
	return matches
}

func structureOf(root *goquery.Selection) Structure {
	count := func(sel string) int { return root.Find(sel).Length() }

	seen := make(map[string]bool)
	var classes []string
	root.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, c := range strings.Fields(s.AttrOr("class", "")) {
			if seen[c] {
				continue
			}
			seen[c] = true
			classes = append(classes, c)
			if len(classes) == maxUniqueClasses {
				return false
			}
		}
		return true
	})

	return Structure{
		Divs:          count("div"),
		Spans:         count("span"),
		Buttons:       count("button"),
		Inputs:        count("input"),
		Images:        count("img"),
		Links:         count("a"),
		Forms:         count("form"),
		Articles:      count("article"),
		Sections:      count("section"),
		UniqueClasses: classes,
	}
}
