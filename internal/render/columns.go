// internal/render/columns.go

// Package render turns arbitrary column lists and row values into displayable
// form: generic value formatting, the synthetic step-flow column and the
// global free-text row filter.
package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// NullMarker is rendered for NULL / missing values.
	NullMarker = "NULL"

	// LongStringThreshold is the rune count past which a string value is
	// rendered as a truncatable block instead of inline.
	LongStringThreshold = 80

	// StepFlowKey is the key of the synthetic composite column.
	StepFlowKey = "step_flow"
)

// Well-known step columns folded into the synthetic step-flow column.
const (
	colStep          = "step"
	colSteps         = "steps"
	colCurrentStep   = "current_step"
	colEndStep       = "end_step"
	colCustomEndStep = "custom_end_step"
	colInformStep    = "inform_step"
	colStatus        = "status"
)

var stepColumns = map[string]bool{
	colStep:          true,
	colSteps:         true,
	colCurrentStep:   true,
	colEndStep:       true,
	colCustomEndStep: true,
	colInformStep:    true,
	colStatus:        true,
}

// Column is one displayable column derived from a data column list.
type Column struct {
	Key      string
	Title    string
	StepFlow bool
}

// BuildColumns produces display columns from an ordered data column list.
// When the list carries the well-known step fields (at least step and
// current_step), those are removed and replaced, at the position of the first
// of them, by one synthetic step-flow column.
func BuildColumns(columns []string) []Column {
	present := map[string]bool{}
	for _, col := range columns {
		if stepColumns[col] {
			present[col] = true
		}
	}
	composite := present[colStep] && present[colCurrentStep]

	out := make([]Column, 0, len(columns))
	compositeAdded := false
	for _, col := range columns {
		if composite && stepColumns[col] {
			if !compositeAdded {
				out = append(out, Column{Key: StepFlowKey, Title: "Step Flow", StepFlow: true})
				compositeAdded = true
			}
			continue
		}
		out = append(out, Column{Key: col, Title: col})
	}
	return out
}

// FormatValue renders an arbitrary cell value for display.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return NullMarker
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case []byte:
		return string(v)
	case string:
		return v
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}

// IsLong reports whether a rendered value should be displayed as a
// wrapped/truncatable block.
func IsLong(rendered string) bool {
	return len([]rune(rendered)) > LongStringThreshold
}

// Truncate shortens a rendered value to max runes with an ellipsis.
func Truncate(rendered string, max int) string {
	runes := []rune(rendered)
	if len(runes) <= max {
		return rendered
	}
	if max <= 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

// Step is one labeled segment of a row's step flow.
type Step struct {
	Label   string
	Current bool
	End     bool
}

// StepFlow derives the ordered step sequence for one row: main step, CSV
// intermediate steps, inform step and the effective end step, deduplicated
// preserving first occurrence. The current step is highlighted; when the
// status marks the main phase complete, the highlight moves to the effective
// end step. The custom end step wins over the configured one.
func StepFlow(row map[string]any) []Step {
	str := func(key string) string {
		value, ok := row[key]
		if !ok || value == nil {
			return ""
		}
		return strings.TrimSpace(FormatValue(value))
	}

	endStep := str(colCustomEndStep)
	if endStep == "" {
		endStep = str(colEndStep)
	}

	highlighted := str(colCurrentStep)
	if mainPhaseComplete(str(colStatus)) {
		highlighted = endStep
	}

	ordered := []string{str(colStep)}
	for _, part := range strings.Split(str(colSteps), ",") {
		ordered = append(ordered, strings.TrimSpace(part))
	}
	ordered = append(ordered, str(colInformStep), endStep)

	seen := map[string]bool{}
	flow := []Step{}
	for _, label := range ordered {
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		flow = append(flow, Step{
			Label:   label,
			Current: label == highlighted,
			End:     label == endStep,
		})
	}
	return flow
}

func mainPhaseComplete(status string) bool {
	switch strings.ToLower(status) {
	case "main_done", "main_complete":
		return true
	}
	return false
}

// RenderCell renders one display column of a row, step flow included.
func RenderCell(row map[string]any, col Column) string {
	if col.StepFlow {
		flow := StepFlow(row)
		labels := make([]string, len(flow))
		for i, s := range flow {
			labels[i] = s.Label
		}
		return strings.Join(labels, " > ")
	}
	return FormatValue(row[col.Key])
}

// SortRows orders rows by one display column, stably. Numbers compare
// numerically, everything else by its rendered text case-insensitively; NULL
// and missing values sort after present ones.
func SortRows(rows []map[string]any, col Column, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareCells(rows[i], rows[j], col)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareCells(a, b map[string]any, col Column) int {
	if col.StepFlow {
		return strings.Compare(strings.ToLower(RenderCell(a, col)), strings.ToLower(RenderCell(b, col)))
	}

	av, bv := a[col.Key], b[col.Key]
	switch {
	case av == nil && bv == nil:
		return 0
	case av == nil:
		return 1
	case bv == nil:
		return -1
	}

	if an, ok := numericValue(av); ok {
		if bn, ok := numericValue(bv); ok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(strings.ToLower(FormatValue(av)), strings.ToLower(FormatValue(bv)))
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// MatchesFilter reports whether any currently displayed column of the row
// contains the query substring, case-insensitively. An empty query matches
// everything.
func MatchesFilter(row map[string]any, columns []Column, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, col := range columns {
		if strings.Contains(strings.ToLower(RenderCell(row, col)), q) {
			return true
		}
	}
	return false
}
