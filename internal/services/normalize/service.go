// Package normalize converts raw provider payloads into documents
// ready for chunking and embedding. Document ids are deterministic so
// re-ingesting unchanged content reproduces the same ids and the index
// upsert stays idempotent.
package normalize

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/ternarybob/lucrum/internal/models"
)

// NormalizeTable converts a raw tabular payload into one document per
// row. Row order is preserved; ids are "{TICKER}_{component}_{index}".
// An empty table yields no documents.
func NormalizeTable(entity *models.Entity, table *interfaces.RawTable) []*models.Document {
	if table == nil || len(table.Rows) == 0 {
		return nil
	}

	ticker := strings.ToUpper(entity.Ticker)
	now := time.Now().UTC()
	fetchedAt := table.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = now
	}

	docs := make([]*models.Document, 0, len(table.Rows))
	for i, row := range table.Rows {
		text := renderRow(ticker, table.Component, table.Columns, row)
		if !ValidText(text) {
			continue
		}

		metadata := map[string]interface{}{
			"ticker":       ticker,
			"component":    string(table.Component),
			"category":     table.Component.Category(),
			"source":       table.Source,
			"data_version": models.DataVersionStructured,
			"fetched_at":   fetchedAt.Format(time.RFC3339),
			"row":          i,
		}
		if date := rowDate(row); date != "" {
			metadata["date"] = date
		}

		docs = append(docs, &models.Document{
			ID:        fmt.Sprintf("%s_%s_%d", ticker, table.Component, i),
			Ticker:    ticker,
			Component: table.Component,
			Text:      text,
			Metadata:  metadata,
			CreatedAt: now,
		})
	}

	return docs
}

// rowDate extracts the row's date column when present.
func rowDate(row map[string]interface{}) string {
	if value, ok := row["date"]; ok {
		return FormatValue(value)
	}
	return ""
}

// NormalizeNarrative converts a narrative filing into a single
// document. The id is "{TICKER}_{filing type}", stable across
// re-ingestion of the same filing type.
func NormalizeNarrative(entity *models.Entity, narrative *interfaces.RawNarrative) *models.Document {
	if narrative == nil || !ValidText(narrative.Text) {
		return nil
	}

	ticker := strings.ToUpper(entity.Ticker)
	version := narrative.DataVersion
	if version == "" {
		version = models.DataVersionNarrative
	}

	fetchedAt := narrative.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	metadata := map[string]interface{}{
		"ticker":       ticker,
		"component":    string(models.ComponentNarrative),
		"category":     models.ComponentNarrative.Category(),
		"source":       narrative.Source,
		"filing_type":  narrative.FilingType,
		"data_version": version,
		"fetched_at":   fetchedAt.Format(time.RFC3339),
	}
	if narrative.FilingDate != "" {
		metadata["filing_date"] = narrative.FilingDate
		metadata["date"] = narrative.FilingDate
	}
	if narrative.Accession != "" {
		metadata["accession"] = narrative.Accession
	}

	return &models.Document{
		ID:        fmt.Sprintf("%s_%s", ticker, narrative.FilingType),
		Ticker:    ticker,
		Component: models.ComponentNarrative,
		Text:      narrative.Text,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// renderRow produces a single human-readable line per record. Column
// order follows the provider's declared order; undeclared keys follow
// sorted alphabetically so output is deterministic.
func renderRow(ticker string, component models.Component, columns []string, row map[string]interface{}) string {
	var sb strings.Builder
	sb.WriteString("Financial Report for ")
	sb.WriteString(ticker)
	sb.WriteString(" (")
	sb.WriteString(string(component))
	sb.WriteString("): ")

	seen := make(map[string]bool, len(row))
	wrote := 0
	writeField := func(key string) {
		value, ok := row[key]
		if !ok {
			return
		}
		formatted := FormatValue(value)
		if formatted == "" {
			return
		}
		if wrote > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(formatted)
		wrote++
	}

	for _, col := range columns {
		if seen[col] {
			continue
		}
		seen[col] = true
		writeField(col)
	}

	extra := make([]string, 0)
	for key := range row {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		writeField(key)
	}

	if wrote == 0 {
		return ""
	}
	return sb.String()
}

// FormatValue renders a cell value for embedding text. Numbers are
// rendered in plain decimal notation, never scientific, so magnitudes
// survive tokenization. Nil, NaN and empty values render as "".
func FormatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatFloat(v, 'f', 0, 64)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return FormatValue(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// ValidText reports whether text carries enough signal to embed:
// non-empty after trimming with at least one letter or digit.
func ValidText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	for _, r := range trimmed {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
