package pages

import (
	"context"
	"errors"
	"fmt"

	"github.com/testathon/shopcheck/internal/driver"
)

// Querier is anything selectors can be evaluated against: a driver session
// or an element scoping the search to its subtree
type Querier interface {
	QueryAll(ctx context.Context, selector string) ([]driver.Element, error)
}

// Locator is a named, ordered list of alternative selectors. The first
// selector that matches wins. Locators are values; resolving one always
// queries the current DOM.
type Locator struct {
	Name      string
	Selectors []string
}

// L builds a Locator
func L(name string, selectors ...string) Locator {
	return Locator{Name: name, Selectors: selectors}
}

// Resolve returns the first element matched by the first matching selector.
// When nothing matches the error wraps driver.ErrElementNotFound.
func (l Locator) Resolve(ctx context.Context, q Querier) (driver.Element, error) {
	elements, err := l.ResolveAll(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: %s", driver.ErrElementNotFound, l.Name)
	}
	return elements[0], nil
}

// ResolveAll returns every element of the first selector that matches
// anything. No match is an empty result, not an error. Selectors the driver
// rejects are skipped so one unsupported alternative does not hide the rest.
func (l Locator) ResolveAll(ctx context.Context, q Querier) ([]driver.Element, error) {
	for _, selector := range l.Selectors {
		elements, err := q.QueryAll(ctx, selector)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, driver.ErrStaleElement) {
				return nil, err
			}
			continue
		}
		if len(elements) > 0 {
			return elements, nil
		}
	}
	return nil, nil
}

// Exists reports whether any selector matches
func (l Locator) Exists(ctx context.Context, q Querier) bool {
	elements, err := l.ResolveAll(ctx, q)
	return err == nil && len(elements) > 0
}

func (l Locator) String() string {
	return l.Name
}
