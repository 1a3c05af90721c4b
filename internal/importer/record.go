package importer

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is one parsed but not yet normalized input record. Keys are
// lowercased source column names; values are strings for CSV and XLSX
// cells and decoded JSON values for JSON sources.
type RawRecord map[string]any

// rowToRecord zips a header row with one data row. Cells beyond the
// header width are dropped by the parsers before this point; short rows
// simply leave their trailing columns unset.
func rowToRecord(header []string, row []string) RawRecord {
	rec := make(RawRecord, len(header))
	for i, col := range header {
		if i >= len(row) {
			break
		}
		rec[normalizeKey(col)] = row[i]
	}
	return rec
}

// normalizeKey lowercases and trims a column name for cross-format
// matching.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// asString coerces a raw value to its string form. JSON numbers arrive
// as float64 and render without exponent or precision loss.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
