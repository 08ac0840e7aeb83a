// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/xtal-search/grader/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintStoreInfo outputs a human-readable summary of the detected store.
func (p *Printer) PrintStoreInfo(info *types.StoreInfo) {
	if info == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Store:     %s\n", info.Name))
	sb.WriteString(fmt.Sprintf("URL:       %s\n", info.URL))
	sb.WriteString(fmt.Sprintf("Platform:  %s\n", info.Platform))
	if info.SearchProvider != "" {
		sb.WriteString(fmt.Sprintf("Search:    %s\n", info.SearchProvider))
	}
	if info.StoreType != "" {
		sb.WriteString(fmt.Sprintf("Type:      %s (%s)\n", info.StoreType, info.Vertical))
	}

	if len(info.ProductSamples) > 0 {
		sb.WriteString("\nProduct samples:\n")
		count := min(len(info.ProductSamples), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", info.ProductSamples[i]))
		}
		if len(info.ProductSamples) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(info.ProductSamples)-maxItemsToShow))
		}
	}

	p.printBox("DETECTED STORE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQueries outputs the generated test queries grouped as a list.
func (p *Printer) PrintQueries(queries []types.TestQuery) {
	if len(queries) == 0 {
		return
	}

	var sb strings.Builder
	for i, q := range queries {
		sb.WriteString(fmt.Sprintf("%2d. [%s] %q\n", i+1, q.Category, q.Text))
	}

	p.printBox(fmt.Sprintf("TEST QUERIES (%d)", len(queries)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQueryResults outputs one line per executed query with its outcome.
func (p *Printer) PrintQueryResults(results []types.QueryResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for _, r := range results {
		if r.Error != "" {
			sb.WriteString(fmt.Sprintf("✗ %q failed: %s\n", r.Query, r.Error))
			continue
		}
		sb.WriteString(fmt.Sprintf("• %q: %d results in %dms\n", r.Query, r.ResultCount, r.ResponseTimeMs))
	}

	p.printBox("QUERY RESULTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReport outputs the final scored report.
func (p *Printer) PrintReport(report *types.GraderReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Overall: %d (%s)\n", report.OverallScore, report.OverallGrade))
	sb.WriteString(fmt.Sprintf("Est. monthly loss: $%d\n", report.RevenueImpact.MonthlyLostRevenue))
	sb.WriteString("\nDimensions:\n")
	for _, d := range report.Dimensions {
		sb.WriteString(fmt.Sprintf("  %-22s %3d (%s)\n", d.Label, d.Score, d.Grade))
	}

	if len(report.Recommendations) > 0 {
		sb.WriteString("\nTop recommendations:\n")
		count := min(len(report.Recommendations), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", report.Recommendations[i].DimensionLabel, report.Recommendations[i].Suggestion))
		}
	}

	p.printBox(fmt.Sprintf("SEARCH GRADE: %s", report.StoreName), strings.TrimSuffix(sb.String(), "\n"))
}
