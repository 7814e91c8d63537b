package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/fixtures"
)

type signInPage struct {
	Users                   []string
	Passwords               []string
	Accounts                map[string]string
	Password                string
	EmptyFieldsError        string
	InvalidCredentialsError string
}

// SignInHandler handles the sign-in page requests
type SignInHandler struct {
	template *template.Template
	page     signInPage
}

// NewSignInHandler creates a SignInHandler accepting the catalog's demo accounts
func NewSignInHandler(login fixtures.LoginFixtures) (*SignInHandler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	page := signInPage{
		Passwords:               []string{login.Password, login.InvalidPassword},
		Accounts:                make(map[string]string, len(login.Users)),
		Password:                login.Password,
		EmptyFieldsError:        login.EmptyFieldsError,
		InvalidCredentialsError: login.InvalidCredentialsError,
	}
	for _, u := range login.Users {
		page.Users = append(page.Users, u.Username)
		page.Accounts[u.Username] = u.ExpectError
	}

	return &SignInHandler{
		template: tmpl,
		page:     page,
	}, nil
}

// ServeHTTP handles the GET /signin request
func (h *SignInHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.template.ExecuteTemplate(w, "signin.html", h.page); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
}

// HTML renders the page as it is first served
func (h *SignInHandler) HTML() (string, error) {
	var buf bytes.Buffer
	if err := h.template.ExecuteTemplate(&buf, "signin.html", h.page); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ClickHook reproduces the dropdowns and the credential check of the page script
func (h *SignInHandler) ClickHook() driver.ClickHook {
	return func(doc *goquery.Document, target *goquery.Selection) {
		switch {
		case target.Is(".select__control"):
			target.Closest(".select").Find(".select__menu").RemoveAttr("hidden")
		case target.Is(".select__option"):
			value := strings.TrimSpace(target.Text())
			selectBox := target.Closest(".select")
			selectBox.SetAttr("data-value", value)
			selectBox.Find(".select__control").SetText(value)
			selectBox.Find(".select__menu").SetAttr("hidden", "")
		case target.Is("#login-btn"):
			h.login(doc)
		case target.Is("#logout"):
			doc.Find(".session").SetAttr("hidden", "")
			doc.Find(".login").RemoveAttr("hidden")
			doc.Find(".api-error").SetText("")
		}
	}
}

func (h *SignInHandler) login(doc *goquery.Document) {
	user := doc.Find("#username").AttrOr("data-value", "")
	pass := doc.Find("#password").AttrOr("data-value", "")
	apiError := doc.Find(".api-error")

	if user == "" || pass == "" {
		apiError.SetText(h.page.EmptyFieldsError)
		return
	}
	locked, known := h.page.Accounts[user]
	if !known || pass != h.page.Password {
		apiError.SetText(h.page.InvalidCredentialsError)
		return
	}
	if locked != "" {
		apiError.SetText(locked)
		return
	}

	apiError.SetText("")
	doc.Find(".login").SetAttr("hidden", "")
	doc.Find(".session").RemoveAttr("hidden")
	doc.Find(".session .username").SetText(user)
}
