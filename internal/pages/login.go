package pages

import (
	"context"
	"fmt"
	"strings"
)

// Sign-in page locators
var (
	LoginLogo      = L("login logo", ".login .logo", "img.logo", ".logo")
	LoginButton    = L("login button", "#login-btn")
	LoginError     = L("login error", ".api-error")
	LogoutLink     = L("logout link", "#logout")
	UsernameSelect = L("username dropdown",
		`xpath=//div[contains(@class, "select__control")][normalize-space()="Select Username"]`,
		`xpath=//div[text()="Select Username"]`)
	PasswordSelect = L("password dropdown",
		`xpath=//div[contains(@class, "select__control")][normalize-space()="Select Password"]`,
		`xpath=//div[text()="Select Password"]`)
)

// dropdownOption locates a react-select option by its text
func dropdownOption(text string) Locator {
	return L("option "+text,
		fmt.Sprintf(`xpath=//div[contains(@class, "select__option")][normalize-space()=%q]`, text),
		fmt.Sprintf(`xpath=//div[starts-with(@id, "react-select")][normalize-space()=%q]`, text),
		fmt.Sprintf(`xpath=//div[contains(@class, "option")][normalize-space()=%q]`, text))
}

// LoginPage is the sign-in page with its username and password dropdowns
type LoginPage struct {
	*BasePage
	path string
}

// NewLoginPage creates a LoginPage served at path
func NewLoginPage(base *BasePage, path string) *LoginPage {
	return &LoginPage{BasePage: base, path: path}
}

// Open navigates to the sign-in page and waits for the login button
func (p *LoginPage) Open(ctx context.Context) error {
	if err := p.BasePage.Open(ctx, p.path); err != nil {
		return err
	}
	_, err := p.WaitForDisplayed(ctx, LoginButton, p.opts.PageLoadTimeout)
	return err
}

// IsLogoDisplayed reports whether the sign-in logo shows
func (p *LoginPage) IsLogoDisplayed(ctx context.Context) bool {
	return p.IsElementDisplayed(ctx, LoginLogo)
}

// Login picks the username and password from the dropdowns and submits.
// Empty values leave the dropdown untouched.
func (p *LoginPage) Login(ctx context.Context, username, password string) error {
	if username != "" {
		if err := p.choose(ctx, UsernameSelect, username); err != nil {
			return err
		}
	}
	if password != "" {
		if err := p.choose(ctx, PasswordSelect, password); err != nil {
			return err
		}
	}
	return p.SafeClick(ctx, LoginButton, 0)
}

func (p *LoginPage) choose(ctx context.Context, dropdown Locator, option string) error {
	if err := p.SafeClick(ctx, dropdown, 0); err != nil {
		return err
	}
	return p.SafeClick(ctx, dropdownOption(option), 0)
}

// IsLoggedIn reports whether the logout link shows
func (p *LoginPage) IsLoggedIn(ctx context.Context) bool {
	return p.IsElementDisplayed(ctx, LogoutLink)
}

// WaitForLogin waits for the logout link to appear
func (p *LoginPage) WaitForLogin(ctx context.Context) error {
	_, err := p.WaitForDisplayed(ctx, LogoutLink, p.opts.ElementTimeout)
	return err
}

// Logout clicks the logout link and waits to land back on the sign-in page
func (p *LoginPage) Logout(ctx context.Context) error {
	if err := p.SafeClick(ctx, LogoutLink, 0); err != nil {
		return err
	}

	timeout := p.opts.ElementTimeout
	return p.waitUntil(ctx, timeout, &TimeoutError{
		Op:      "logout",
		Timeout: timeout,
		Msg:     fmt.Sprintf("sign-in page did not return within %dms", timeout.Milliseconds()),
	}, func(ctx context.Context) (bool, error) {
		url, err := p.driver.URL(ctx)
		if err != nil {
			return false, err
		}
		return strings.Contains(url, "signin") && p.IsElementDisplayed(ctx, LoginButton), nil
	})
}

// ErrorText waits for the login error and returns it
func (p *LoginPage) ErrorText(ctx context.Context) (string, error) {
	var text string
	timeout := p.opts.ElementTimeout
	err := p.waitUntil(ctx, timeout, &TimeoutError{
		Op:      "login error",
		Timeout: timeout,
		Msg:     fmt.Sprintf("no login error within %dms", timeout.Milliseconds()),
	}, func(ctx context.Context) (bool, error) {
		el, err := LoginError.Resolve(ctx, p.driver)
		if err != nil {
			return false, err
		}
		text, err = el.Text(ctx)
		return strings.TrimSpace(text) != "", err
	})
	return strings.TrimSpace(text), err
}
