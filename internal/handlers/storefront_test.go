package handlers

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/fixtures"
)

func TestStorefrontHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		opts           StorefrontOptions
		expectedStatus int
		checkContent   []string
		absentContent  []string
	}{
		{
			name:           "filter panel",
			method:         http.MethodGet,
			opts:           StorefrontOptions{FilterPanel: true, Interactive: true},
			expectedStatus: http.StatusOK,
			checkContent:   []string{`class="filters"`, "25 Product(s) found.", "iPhone 12 Pro", "$1,099.00", `name="min_price"`},
		},
		{
			name:           "vendor checkboxes only",
			method:         http.MethodGet,
			opts:           StorefrontOptions{Vendors: true},
			expectedStatus: http.StatusOK,
			checkContent:   []string{"filters-available-size", `value="Samsung"`},
			absentContent:  []string{`class="filters"`, "<script>"},
		},
		{
			name:           "method not allowed - POST",
			method:         http.MethodPost,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "method not allowed - DELETE",
			method:         http.MethodDelete,
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := NewStorefrontHandler(fixtures.MustLoad(), tt.opts)
			if err != nil {
				t.Fatalf("Failed to create handler: %v", err)
			}

			req := httptest.NewRequest(tt.method, "/", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			body := w.Body.String()
			for _, content := range tt.checkContent {
				if !strings.Contains(body, content) {
					t.Errorf("expected response to contain '%s'", content)
				}
			}
			for _, content := range tt.absentContent {
				if strings.Contains(body, content) {
					t.Errorf("expected response not to contain '%s'", content)
				}
			}
		})
	}
}

func TestStorefrontHandler_TemplateExecutionError(t *testing.T) {
	tmpl, err := template.New("storefront.html").Parse("{{.InvalidField.NonExistent}}")
	if err != nil {
		t.Fatalf("Failed to create test template: %v", err)
	}

	handler := &StorefrontHandler{template: tmpl}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

// replicaDocument opens the interactive replica on the in-memory driver
func replicaDocument(t *testing.T, path string) *driver.Document {
	t.Helper()
	return replicaDocumentWith(t, StorefrontOptions{FilterPanel: true, Interactive: true}, path)
}

func replicaDocumentWith(t *testing.T, opts StorefrontOptions, path string) *driver.Document {
	t.Helper()
	catalog := fixtures.MustLoad()
	replica, err := NewReplica(catalog, opts)
	if err != nil {
		t.Fatalf("Failed to build replica: %v", err)
	}
	d, err := replica.Document(catalog.Login.Path)
	if err != nil {
		t.Fatalf("Failed to render replica: %v", err)
	}
	if err := d.Navigate(context.Background(), "http://replica.test"+path); err != nil {
		t.Fatalf("Failed to navigate: %v", err)
	}
	return d
}

func click(t *testing.T, d *driver.Document, selector string) {
	t.Helper()
	el, err := d.Query(context.Background(), selector)
	if err != nil {
		t.Fatalf("Failed to find %s: %v", selector, err)
	}
	if err := el.Click(context.Background()); err != nil {
		t.Fatalf("Failed to click %s: %v", selector, err)
	}
}

func setValue(t *testing.T, d *driver.Document, selector, value string) {
	t.Helper()
	el, err := d.Query(context.Background(), selector)
	if err != nil {
		t.Fatalf("Failed to find %s: %v", selector, err)
	}
	if err := el.SetValue(context.Background(), value); err != nil {
		t.Fatalf("Failed to set %s: %v", selector, err)
	}
}

func titles(t *testing.T, d *driver.Document) []string {
	t.Helper()
	elements, err := d.QueryAll(context.Background(), ".shelf-item__title")
	if err != nil {
		t.Fatalf("Failed to list titles: %v", err)
	}
	out := make([]string, 0, len(elements))
	for _, el := range elements {
		text, err := el.Text(context.Background())
		if err != nil {
			t.Fatalf("Failed to read title: %v", err)
		}
		out = append(out, text)
	}
	return out
}

func text(t *testing.T, d *driver.Document, selector string) string {
	t.Helper()
	el, err := d.Query(context.Background(), selector)
	if err != nil {
		t.Fatalf("Failed to find %s: %v", selector, err)
	}
	s, err := el.Text(context.Background())
	if err != nil {
		t.Fatalf("Failed to read %s: %v", selector, err)
	}
	return s
}

func TestStorefrontHandler_ClickHook(t *testing.T) {
	tests := []struct {
		name      string
		actions   func(t *testing.T, d *driver.Document)
		wantCount int
		wantFound string
	}{
		{
			name: "brand checkbox narrows the shelf",
			actions: func(t *testing.T, d *driver.Document) {
				click(t, d, `input[value="Samsung"]`)
			},
			wantCount: 8,
			wantFound: "8 Product(s) found.",
		},
		{
			name: "label toggles its checkbox",
			actions: func(t *testing.T, d *driver.Document) {
				click(t, d, `xpath=//label[contains(., "Google")]`)
			},
			wantCount: 3,
			wantFound: "3 Product(s) found.",
		},
		{
			name: "two brands widen the selection",
			actions: func(t *testing.T, d *driver.Document) {
				click(t, d, `input[value="Google"]`)
				click(t, d, `input[value="OnePlus"]`)
			},
			wantCount: 9,
			wantFound: "9 Product(s) found.",
		},
		{
			name: "price range applies on apply",
			actions: func(t *testing.T, d *driver.Document) {
				setValue(t, d, `input[name="min_price"]`, "0")
				setValue(t, d, `input[name="max_price"]`, "499.99")
				click(t, d, ".apply-filters")
			},
			wantCount: 3,
			wantFound: "3 Product(s) found.",
		},
		{
			name: "no results",
			actions: func(t *testing.T, d *driver.Document) {
				setValue(t, d, `input[name="min_price"]`, "5000")
				click(t, d, ".apply-filters")
			},
			wantCount: 0,
			wantFound: "0 Product(s) found.",
		},
		{
			name: "invalid price is cleared and ignored",
			actions: func(t *testing.T, d *driver.Document) {
				setValue(t, d, `input[name="min_price"]`, "-100")
				click(t, d, ".apply-filters")
			},
			wantCount: 25,
			wantFound: "25 Product(s) found.",
		},
		{
			name: "clear restores the catalog",
			actions: func(t *testing.T, d *driver.Document) {
				click(t, d, `input[value="Apple"]`)
				click(t, d, ".clear-filters")
			},
			wantCount: 25,
			wantFound: "25 Product(s) found.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := replicaDocument(t, "/")
			tt.actions(t, d)

			if got := len(titles(t, d)); got != tt.wantCount {
				t.Errorf("expected %d products, got %d", tt.wantCount, got)
			}
			if got := text(t, d, ".products-found"); got != tt.wantFound {
				t.Errorf("expected counter %q, got %q", tt.wantFound, got)
			}
		})
	}
}

func TestStorefrontHandler_ClickHookSortAndView(t *testing.T) {
	ctx := context.Background()
	d := replicaDocument(t, "/")

	sortSelect, err := d.Query(ctx, `select[name="sort"]`)
	if err != nil {
		t.Fatalf("Failed to find sort: %v", err)
	}
	if err := sortSelect.Select(ctx, "price_desc"); err != nil {
		t.Fatalf("Failed to sort: %v", err)
	}

	got := titles(t, d)
	if len(got) != 25 {
		t.Fatalf("expected 25 products, got %d", len(got))
	}
	firstPrice := text(t, d, ".shelf-item__price .val")
	if firstPrice != "$1,399.00" {
		t.Errorf("expected most expensive phone first, got %s", firstPrice)
	}

	click(t, d, ".list-view")
	list, err := d.Query(ctx, ".list-view")
	if err != nil {
		t.Fatalf("Failed to find list view: %v", err)
	}
	class, _, err := list.Attribute(ctx, "class")
	if err != nil {
		t.Fatalf("Failed to read class: %v", err)
	}
	if !strings.Contains(class, "active") {
		t.Errorf("expected list view active, class %q", class)
	}
	if _, err := d.Query(ctx, ".shelf-container.list"); err != nil {
		t.Errorf("expected shelf in list layout: %v", err)
	}
}

func TestStorefrontHandler_ClickHookCart(t *testing.T) {
	d := replicaDocument(t, "/")

	click(t, d, ".shelf-item__buy-btn")
	click(t, d, ".shelf-item__buy-btn")

	if got := text(t, d, ".bag__quantity"); got != "2" {
		t.Errorf("expected cart count 2, got %s", got)
	}
}

func TestStorefrontHandler_LiveLikeVendorsDoNotFilter(t *testing.T) {
	d := replicaDocumentWith(t, LiveLike(), "/")

	click(t, d, `input[value="Samsung"]`)
	el, err := d.Query(context.Background(), `input[value="Samsung"]`)
	if err != nil {
		t.Fatalf("Failed to find Samsung checkbox: %v", err)
	}
	checked, err := el.IsSelected(context.Background())
	if err != nil {
		t.Fatalf("Failed to read checkbox: %v", err)
	}
	if !checked {
		t.Error("expected the Samsung checkbox to be checked")
	}
	if got := len(titles(t, d)); got != 25 {
		t.Errorf("expected all 25 products, got %d", got)
	}

	click(t, d, ".shelf-item__buy-btn")
	if got := text(t, d, ".bag__quantity"); got != "1" {
		t.Errorf("expected cart quantity 1, got %q", got)
	}
}
