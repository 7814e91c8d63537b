package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Criteria describes what a filtered listing is expected to contain.
// Nil bounds and an empty brand list are not checked.
type Criteria struct {
	Brands   []Brand
	MinPrice *float64
	MaxPrice *float64
}

// Bound returns a pointer to v for use as a Criteria price bound
func Bound(v float64) *float64 {
	return &v
}

// Mismatch records why one product failed the criteria
type Mismatch struct {
	Product string
	Issues  []string
}

// Verification is the outcome of checking a listing against Criteria
type Verification struct {
	Total      int
	Matching   int
	Mismatched []Mismatch
	Passed     bool
}

// VerifyProducts checks every product against every supplied criterion
func VerifyProducts(products []Product, criteria Criteria) Verification {
	result := Verification{
		Total:  len(products),
		Passed: true,
	}

	for _, p := range products {
		issues := criteria.issues(p)
		if len(issues) == 0 {
			result.Matching++
			continue
		}
		result.Mismatched = append(result.Mismatched, Mismatch{
			Product: p.Title,
			Issues:  issues,
		})
		result.Passed = false
	}

	return result
}

// Matches reports whether a single product satisfies the criteria
func (c Criteria) Matches(p Product) bool {
	return len(c.issues(p)) == 0
}

func (c Criteria) issues(p Product) []string {
	var issues []string

	if len(c.Brands) > 0 {
		found := false
		for _, b := range c.Brands {
			if strings.EqualFold(string(b), string(p.Brand)) {
				found = true
				break
			}
		}
		if !found {
			names := make([]string, len(c.Brands))
			for i, b := range c.Brands {
				names[i] = string(b)
			}
			issues = append(issues, fmt.Sprintf("brand %s not in filter: %s", p.Brand, strings.Join(names, ", ")))
		}
	}

	if c.MinPrice != nil && p.Price < *c.MinPrice {
		issues = append(issues, fmt.Sprintf("price %s below minimum %s", formatPrice(p.Price), formatPrice(*c.MinPrice)))
	}
	if c.MaxPrice != nil && p.Price > *c.MaxPrice {
		issues = append(issues, fmt.Sprintf("price %s above maximum %s", formatPrice(p.Price), formatPrice(*c.MaxPrice)))
	}

	return issues
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
