// internal/storage/normalize.go
package storage

// NormalizeRow returns a copy of a raw driver row containing only non-numeric
// keys. Some drivers expose both named and positional access on the same row
// object, leaving purely-numeric duplicate keys behind; those are dropped.
// []byte values become strings so rows serialize as text rather than base64.
// Normalization is pure and total: it never drops a named column and never
// fails.
func NormalizeRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for key, value := range row {
		if isNumericKey(key) {
			continue
		}
		if b, ok := value.([]byte); ok {
			out[key] = string(b)
		} else {
			out[key] = value
		}
	}
	return out
}

// NormalizeColumns filters purely-numeric artifact names out of a column list,
// preserving order.
func NormalizeColumns(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		if isNumericKey(col) {
			continue
		}
		out = append(out, col)
	}
	return out
}

func isNumericKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
