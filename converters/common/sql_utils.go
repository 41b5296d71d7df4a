package common

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeName = regexp.MustCompile(`[\x00-\x1f/\\:*?"<>|]+`)

// GenSelectSQL generates the projection query for table.
// An empty column list selects every column in schema order.
func GenSelectSQL(quote func(string) string, table string, columns []string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("table name is required")
	}

	var builder strings.Builder
	builder.WriteString("SELECT ")
	if len(columns) == 0 {
		builder.WriteByte('*')
	}
	for i, col := range columns {
		if strings.TrimSpace(col) == "" {
			return "", fmt.Errorf("column %d has an empty name", i)
		}
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(quote(col))
	}
	builder.WriteString(" FROM ")
	builder.WriteString(quote(table))
	return builder.String(), nil
}

// GenOutputName derives the CSV entry name for an uploaded file:
// the base name with its last extension replaced by ".csv".
// Characters that are not allowed in archive entry names are replaced by '_'.
func GenOutputName(sourceName string) string {
	base := filepath.Base(strings.ReplaceAll(sourceName, `\`, "/"))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.TrimSpace(unsafeName.ReplaceAllString(stem, "_"))
	if stem == "" || stem == "." || stem == ".." {
		stem = "output"
	}
	return stem + ".csv"
}

// ParseColumns splits a comma separated column list, dropping blanks.
func ParseColumns(list string) []string {
	var cols []string
	for _, c := range strings.Split(list, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}
