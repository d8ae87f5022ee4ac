package usecase

import (
	"fmt"
	"nexus/internal/ports"
	"strings"
)

const (
	queryResultsHeader = "Knowledge Base Query Results:\n\n"
	noQueryResults     = "No relevant information found in the Knowledge Base for your query."
	summaryHeader      = "Financial Summary by Category:\n\n"
	noSummaryData      = "No financial data available or categorized yet. Please ingest some transaction data."
)

// FormatQueryResults renders content engine hits for display. A missing or
// zero score prints as N/A.
func FormatQueryResults(hits []ports.QueryHit) string {
	if len(hits) == 0 {
		return noQueryResults
	}
	items := make([]string, 0, len(hits))
	for _, h := range hits {
		score := "N/A"
		if h.Score != nil && *h.Score != 0 {
			score = fmt.Sprintf("%.2f", *h.Score)
		}
		source := h.Source
		if source == "" {
			source = "Unknown"
		}
		items = append(items, fmt.Sprintf("[Score: %s] Source: %s\nContent: %s", score, source, h.Text))
	}
	return queryResultsHeader + strings.Join(items, "\n\n")
}

// FormatSummary renders per-category totals. A missing or zero total prints
// as N/A.
func FormatSummary(items []ports.CategoryTotal) string {
	if len(items) == 0 {
		return noSummaryData
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		total := "N/A"
		if it.Total.Valid && it.Total.Value != 0 {
			total = fmt.Sprintf("%.2f", it.Total.Value)
		}
		lines = append(lines, fmt.Sprintf("- %s: $%s", it.Category, total))
	}
	return summaryHeader + strings.Join(lines, "\n")
}
