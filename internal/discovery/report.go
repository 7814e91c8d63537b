package discovery

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Candidate selectors tried against the page, in report order
var (
	ContainerSelectors = []string{
		"main", ".main", "#main", ".container", ".content",
		".products", ".product-list", ".product-grid", ".items",
		`[class*="product"]`, `[class*="item"]`, `[class*="card"]`,
		"article", ".row", ".grid",
	}

	FilterSelectors = []string{
		".filter", ".filters", ".sidebar", ".filter-panel", `[class*="filter"]`,
		"form", `input[type="checkbox"]`, `input[type="radio"]`, "select", "button",
		`[class*="brand"]`, `[class*="price"]`, `[class*="sort"]`,
	}

	// BrandNames are counted in the page text; Samsung is the vendor name
	// the live storefront uses for Galaxy phones
	BrandNames = []string{"iPhone", "Galaxy", "Pixel", "OnePlus", "Samsung"}
)

const (
	containerSamples = 1
	filterSamples    = 3
	scannedElements  = 50
	reportedImages   = 10
	maxUniqueClasses = 50
)

var pricePattern = regexp.MustCompile(`\d+\.\d{2}`)

// Report is what one discovery pass found. It makes no assertions.
type Report struct {
	Mode         string
	Title        string
	URL          string
	Screenshot   string
	SourceLength int
	BodyLength   int
	ReadyState   string

	Containers []SelectorMatch
	Filters    []SelectorMatch
	Prices     []PriceElement
	ImageCount int
	Images     []Image
	Brands     map[string]int
	Structure  Structure
}

// SelectorMatch is a candidate selector that matched at least one element
type SelectorMatch struct {
	Selector string
	Count    int
	Samples  []Element
}

// Element describes one matched node
type Element struct {
	Tag   string
	Class string
	ID    string
	Text  string
	Type  string
	Name  string
	Value string
}

// PriceElement is an element whose text looks like a price
type PriceElement struct {
	Tag         string
	Class       string
	ParentClass string
	Text        string
	// Candidate marks short "$" texts that are probably a single product price
	Candidate bool
}

// Image describes one <img>
type Image struct {
	Src         string
	Alt         string
	Class       string
	ParentClass string
}

// Structure counts element types and collects class names
type Structure struct {
	Divs          int      `json:"divs"`
	Spans         int      `json:"spans"`
	Buttons       int      `json:"buttons"`
	Inputs        int      `json:"inputs"`
	Images        int      `json:"images"`
	Links         int      `json:"links"`
	Forms         int      `json:"forms"`
	Articles      int      `json:"articles"`
	Sections      int      `json:"sections"`
	UniqueClasses []string `json:"uniqueClasses"`
}

// Match returns the match for selector, if it matched
func (r *Report) Match(selector string) (SelectorMatch, bool) {
	for _, m := range append(append([]SelectorMatch(nil), r.Containers...), r.Filters...) {
		if m.Selector == selector {
			return m, true
		}
	}
	return SelectorMatch{}, false
}

// CountBrands counts case-insensitive occurrences of each brand name
func CountBrands(text string) map[string]int {
	lower := strings.ToLower(text)
	counts := make(map[string]int, len(BrandNames))
	for _, b := range BrandNames {
		counts[b] = strings.Count(lower, strings.ToLower(b))
	}
	return counts
}

// analyzeSource fills the price and image sections from the page markup
func analyzeSource(source string, r *Report) error {
	doc, err := htmlquery.Parse(strings.NewReader(source))
	if err != nil {
		return fmt.Errorf("failed to parse page source: %w", err)
	}

	nodes := htmlquery.Find(doc, "//*")
	if len(nodes) > scannedElements {
		nodes = nodes[:scannedElements]
	}
	for _, n := range nodes {
		text := collapse(htmlquery.InnerText(n))
		if !strings.Contains(text, "$") && !pricePattern.MatchString(text) {
			continue
		}
		r.Prices = append(r.Prices, PriceElement{
			Tag:         n.Data,
			Class:       htmlquery.SelectAttr(n, "class"),
			ParentClass: parentClass(n),
			Text:        truncate(text, 30),
			Candidate:   strings.Contains(text, "$") && len(text) < 20,
		})
	}

	images := htmlquery.Find(doc, "//img")
	r.ImageCount = len(images)
	if len(images) > reportedImages {
		images = images[:reportedImages]
	}
	for _, n := range images {
		r.Images = append(r.Images, Image{
			Src:         truncate(htmlquery.SelectAttr(n, "src"), 50),
			Alt:         htmlquery.SelectAttr(n, "alt"),
			Class:       htmlquery.SelectAttr(n, "class"),
			ParentClass: parentClass(n),
		})
	}
	return nil
}

func parentClass(n *html.Node) string {
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return ""
	}
	return htmlquery.SelectAttr(n.Parent, "class")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
