package handlers

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/fixtures"
)

// Replica bundles the pages of the offline storefront
type Replica struct {
	Storefront *StorefrontHandler
	SignIn     *SignInHandler
}

// NewReplica builds every replica page from the catalog
func NewReplica(catalog *fixtures.Catalog, opts StorefrontOptions) (*Replica, error) {
	storefront, err := NewStorefrontHandler(catalog, opts)
	if err != nil {
		return nil, err
	}
	signIn, err := NewSignInHandler(catalog.Login)
	if err != nil {
		return nil, err
	}
	return &Replica{Storefront: storefront, SignIn: signIn}, nil
}

// Document returns an in-memory driver serving the replica with its page
// scripts emulated
func (r *Replica) Document(loginPath string) (*driver.Document, error) {
	storefront, err := r.Storefront.HTML()
	if err != nil {
		return nil, err
	}
	signIn, err := r.SignIn.HTML()
	if err != nil {
		return nil, err
	}

	d := driver.NewDocumentSite(map[string]string{
		driver.AnyPath: storefront,
		loginPath:      signIn,
	})
	storefrontHook, signInHook := r.Storefront.ClickHook(), r.SignIn.ClickHook()
	d.OnClick(func(doc *goquery.Document, target *goquery.Selection) {
		storefrontHook(doc, target)
		signInHook(doc, target)
	})
	return d, nil
}

// Launcher hands every session its own in-memory replica document
func (r *Replica) Launcher(loginPath string) driver.Launcher {
	return driver.LauncherFunc(func(context.Context) (driver.Driver, error) {
		d, err := r.Document(loginPath)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}
