package docmerge

import (
	"sort"
	"strconv"
	"strings"
)

// RangeMode selects which data rows a run covers.
type RangeMode string

const (
	RangeAll     RangeMode = "all"
	RangeCurrent RangeMode = "current"
	RangeCustom  RangeMode = "custom"
)

// RangeSpec is a row-range specification. For RangeCustom, Custom is a
// comma-separated list of 1-based singletons and inclusive start-end
// ranges, e.g. "1-3,5,12".
type RangeSpec struct {
	Mode       RangeMode `json:"mode"`
	Custom     string    `json:"custom,omitempty"`
	CurrentRow int       `json:"currentRow,omitempty"` // 0-based, for RangeCurrent
}

// ResolveRange turns a range specification into an ascending, deduplicated
// list of 0-based row indices clipped to [0, totalRows-1].
//
// The resolver is deliberately lenient: malformed tokens, reversed ranges
// and out-of-bounds singletons are dropped silently rather than reported,
// since the same range text also drives live UI preview counts. An empty
// result is a valid outcome, not an error.
func ResolveRange(spec RangeSpec, totalRows int) []int {
	if totalRows <= 0 {
		return nil
	}
	switch spec.Mode {
	case RangeCurrent:
		if spec.CurrentRow < 0 || spec.CurrentRow >= totalRows {
			return nil
		}
		return []int{spec.CurrentRow}
	case RangeCustom:
		return resolveCustom(spec.Custom, totalRows)
	default: // RangeAll and anything unrecognized
		out := make([]int, totalRows)
		for i := range out {
			out[i] = i
		}
		return out
	}
}

func resolveCustom(custom string, totalRows int) []int {
	seen := make(map[int]bool)
	for _, token := range strings.Split(custom, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		start, end, ok := parseToken(token)
		if !ok {
			continue
		}
		if start < 1 {
			start = 1
		}
		if end > totalRows {
			end = totalRows
		}
		for n := start; n <= end; n++ {
			seen[n-1] = true
		}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// parseToken parses "n" or "start-end" into an inclusive 1-based span.
// Reversed ranges report !ok and are dropped by the caller.
func parseToken(token string) (start, end int, ok bool) {
	if i := strings.IndexByte(token, '-'); i >= 0 {
		a, errA := strconv.Atoi(strings.TrimSpace(token[:i]))
		b, errB := strconv.Atoi(strings.TrimSpace(token[i+1:]))
		if errA != nil || errB != nil || a > b {
			return 0, 0, false
		}
		return a, b, true
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, 0, false
	}
	return n, n, true
}
