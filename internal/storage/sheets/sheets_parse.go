package sheets

import (
	"fmt"
	"strings"
)

// row is one key | value line; index is its zero-based position in the sheet.
type row struct {
	index int
	key   string
	value string
}

// parseRows converts a values matrix (as returned by Sheets API) into rows,
// skipping lines without a key.
func parseRows(values [][]interface{}) []row {
	out := make([]row, 0, len(values))
	for i, v := range values {
		key := strings.TrimSpace(cell(v, 0))
		if key == "" {
			continue
		}
		out = append(out, row{index: i, key: key, value: cell(v, 1)})
	}
	return out
}

// findRow returns the position in rows of key, or -1. When a key appears
// twice the last occurrence wins.
func findRow(rows []row, key string) int {
	found := -1
	for i, r := range rows {
		if r.key == key {
			found = i
		}
	}
	return found
}

// rowRange returns the A1 range covering the zero-based sheet line idx.
func rowRange(sheet string, idx int) string {
	return fmt.Sprintf("%s!A%d:B%d", sheet, idx+1, idx+1)
}

func cell(in []interface{}, idx int) string {
	if idx < 0 || idx >= len(in) || in[idx] == nil {
		return ""
	}
	return fmt.Sprint(in[idx])
}
