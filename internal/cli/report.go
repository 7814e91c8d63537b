package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/testathon/shopcheck/internal/discovery"
	"github.com/testathon/shopcheck/internal/models"
	"github.com/testathon/shopcheck/internal/services"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6C8EBF"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))

	passStyle   = cellStyle.Foreground(lipgloss.Color("#3FB950"))
	failStyle   = cellStyle.Foreground(lipgloss.Color("#F85149"))
	absentStyle = cellStyle.Foreground(lipgloss.Color("#D29922"))
)

const detailWidth = 72

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// statusStyle colours the cells of a status column
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "PASS", string(models.CapabilityPresent), string(models.RunStatusPassed):
		return passStyle
	case "FAIL", string(models.CapabilityError), string(models.RunStatusFailed):
		return failStyle
	case string(models.CapabilityAbsent), string(models.RunStatusCancelled), "SKIP":
		return absentStyle
	default:
		return cellStyle
	}
}

func styled(t *table.Table, rows [][]string, statusCol int) string {
	return t.Rows(rows...).StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == statusCol && row >= 0 && row < len(rows) {
			return statusStyle(rows[row][col])
		}
		return cellStyle
	}).String()
}

// RenderResults prints one row per scenario with its finding tally
func RenderResults(results []services.ScenarioResult) string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		counts := make(map[models.FindingKind]int)
		var detail string
		for _, f := range res.Findings {
			counts[f.Kind]++
			if detail == "" && (f.Kind == models.FindingFail || f.Kind == models.FindingError) {
				detail = f.Message
			}
		}

		status := "PASS"
		switch {
		case res.Failed():
			status = "FAIL"
		case len(res.Findings) == 0:
			status = "SKIP"
		}
		rows = append(rows, []string{
			res.Scenario,
			status,
			strconv.Itoa(counts[models.FindingPass]),
			strconv.Itoa(counts[models.FindingAbsent]),
			strconv.Itoa(counts[models.FindingFail]),
			strconv.Itoa(counts[models.FindingError]),
			truncate(detail, detailWidth),
		})
	}
	return styled(newTable("Scenario", "Result", "Pass", "Absent", "Fail", "Error", "Detail"), rows, 1)
}

// RenderRunSummary prints the run status line
func RenderRunSummary(run *models.Run) string {
	counts := run.CountByKind()
	return titleStyle.Render(fmt.Sprintf("Run %s", run.ID)) + " " +
		statusStyle(string(run.Status)).Render(strings.ToUpper(string(run.Status))) +
		fmt.Sprintf(" in %s: %d pass, %d absent, %d fail, %d error",
			run.Duration().Round(time.Millisecond),
			counts[models.FindingPass], counts[models.FindingAbsent],
			counts[models.FindingFail], counts[models.FindingError])
}

// RenderCapabilities prints the probe report in feature order
func RenderCapabilities(report models.CapabilityReport) string {
	var rows [][]string
	for _, c := range report.Sorted() {
		detail := c.Detail
		if c.Err != nil {
			detail = c.Err.Error()
		}
		rows = append(rows, []string{string(c.Feature), string(c.Status), truncate(detail, detailWidth)})
	}
	return titleStyle.Render("Capabilities") + "\n" + styled(newTable("Feature", "Status", "Detail"), rows, 1)
}

// RenderHistory prints recent runs, newest first
func RenderHistory(runs []*models.Run) string {
	if len(runs) == 0 {
		return "No runs recorded."
	}
	var rows [][]string
	for _, r := range runs {
		duration := "-"
		if !r.FinishedAt.IsZero() {
			duration = r.Duration().Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			r.ID,
			string(r.Status),
			r.Driver,
			r.BaseURL,
			r.StartedAt.Format(time.DateTime),
			duration,
		})
	}
	return styled(newTable("Run", "Status", "Driver", "Base URL", "Started", "Duration"), rows, 1)
}

// RenderDiscovery prints every section of a discovery report
func RenderDiscovery(r *discovery.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s (%s)\n", titleStyle.Render("Discovery"), r.Mode)
	fmt.Fprintf(&sb, "Title: %s\nURL: %s\nSource length: %d\nBody length: %d\nReady state: %s\n",
		r.Title, r.URL, r.SourceLength, r.BodyLength, r.ReadyState)
	if r.Screenshot != "" {
		fmt.Fprintf(&sb, "Screenshot: %s\n", r.Screenshot)
	}

	for _, section := range []struct {
		title   string
		matches []discovery.SelectorMatch
	}{
		{"Containers", r.Containers},
		{"Filter elements", r.Filters},
	} {
		var rows [][]string
		for _, m := range section.matches {
			for i, s := range m.Samples {
				count := ""
				if i == 0 {
					count = strconv.Itoa(m.Count)
				}
				rows = append(rows, []string{m.Selector, count, s.Tag, s.Class, s.ID, s.Type, s.Name, s.Value, truncate(s.Text, 40)})
			}
		}
		sb.WriteString("\n" + titleStyle.Render(section.title) + "\n")
		sb.WriteString(styled(newTable("Selector", "Count", "Tag", "Class", "ID", "Type", "Name", "Value", "Text"), rows, -1) + "\n")
	}

	var prices [][]string
	for _, p := range r.Prices {
		prices = append(prices, []string{p.Tag, p.Class, p.ParentClass, p.Text, strconv.FormatBool(p.Candidate)})
	}
	sb.WriteString("\n" + titleStyle.Render("Price-like elements") + "\n")
	sb.WriteString(styled(newTable("Tag", "Class", "Parent", "Text", "Candidate"), prices, -1) + "\n")

	var images [][]string
	for _, img := range r.Images {
		images = append(images, []string{img.Src, img.Alt, img.Class, img.ParentClass})
	}
	sb.WriteString("\n" + titleStyle.Render(fmt.Sprintf("Images (%d on page)", r.ImageCount)) + "\n")
	sb.WriteString(styled(newTable("Src", "Alt", "Class", "Parent"), images, -1) + "\n")

	brands := make([]string, 0, len(r.Brands))
	for b := range r.Brands {
		brands = append(brands, b)
	}
	sort.Strings(brands)
	var brandRows [][]string
	for _, b := range brands {
		brandRows = append(brandRows, []string{b, strconv.Itoa(r.Brands[b])})
	}
	sb.WriteString("\n" + titleStyle.Render("Brand mentions") + "\n")
	sb.WriteString(styled(newTable("Brand", "Count"), brandRows, -1) + "\n")

	s := r.Structure
	sb.WriteString("\n" + titleStyle.Render("Structure") + "\n")
	fmt.Fprintf(&sb, "divs=%d spans=%d buttons=%d inputs=%d images=%d links=%d forms=%d articles=%d sections=%d\n",
		s.Divs, s.Spans, s.Buttons, s.Inputs, s.Images, s.Links, s.Forms, s.Articles, s.Sections)
	fmt.Fprintf(&sb, "Classes: %s\n", strings.Join(s.UniqueClasses, " "))

	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
