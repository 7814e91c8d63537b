package services

import (
	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/pages"
	"go.uber.org/zap"
)

// Session bundles the page objects of one driver session.
// A session belongs to exactly one scenario and is never shared.
type Session struct {
	Driver  driver.Driver
	Base    *pages.BasePage
	Listing *pages.ListingPage
	Filters *pages.FilterPanel
	Login   *pages.LoginPage
}

// NewSession builds the page objects over d
func NewSession(d driver.Driver, opts pages.Options, loginPath string, log *zap.Logger) *Session {
	base := pages.NewBasePage(d, opts, log)
	return &Session{
		Driver:  d,
		Base:    base,
		Listing: pages.NewListingPage(base),
		Filters: pages.NewFilterPanel(base),
		Login:   pages.NewLoginPage(base, loginPath),
	}
}

// Close ends the driver session
func (s *Session) Close() error {
	return s.Driver.Close()
}
