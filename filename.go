package docmerge

import (
	"regexp"
	"strconv"
	"time"

	"github.com/lvillar/docmerge/format"
	"github.com/lvillar/docmerge/template"
)

// unsafeChars matches everything outside the filename-safe alphabet.
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// nameResolver expands naming patterns and resolves collisions for one
// run. It is not safe for concurrent use; a bounded-concurrency
// orchestrator must serialize access to it.
type nameResolver struct {
	counts map[string]int
	taken  map[string]bool
	now    time.Time
}

func newNameResolver(now time.Time) *nameResolver {
	return &nameResolver{
		counts: make(map[string]int),
		taken:  make(map[string]bool),
		now:    now,
	}
}

// resolve expands pattern's {{token}} occurrences for one row and returns
// a collision-free base name (no extension).
//
// Token semantics: "sequence" is the 1-based position within the selected
// range (not the absolute row index); "date" and "generated_date" are the
// run date as YYYY-MM-DD; any other token reads the row cell behind
// mapping[token], falling back to the token as a column name. Tokens that
// resolve to nothing keep the raw token name as literal text rather than
// disappearing.
//
// The first occurrence of a base name keeps it bare; later occurrences
// get a deterministic _2, _3, … suffix. Names are never overwritten and
// never randomized.
func (r *nameResolver) resolve(pattern string, row Row, mapping map[string]string, seq int) string {
	name := template.Expand(pattern, func(token string) (string, bool) {
		var value string
		switch token {
		case "sequence":
			value = strconv.Itoa(seq)
		case "date", "generated_date":
			value = r.now.Format("2006-01-02")
		default:
			col := mapping[token]
			if col == "" {
				col = token
			}
			value = sanitize(format.Format(row[col], ""))
		}
		if value == "" {
			value = sanitize(token)
		}
		return value, true
	})
	name = sanitize(name)
	if name == "" {
		name = "Document_" + strconv.Itoa(seq)
	}
	return r.claim(name)
}

// claim reserves a collision-free variant of name. A suffixed candidate
// is checked against every name handed out so far, so a later base name
// can never duplicate an earlier suffixed one (Doc_A, Doc_A, Doc_A_2
// yields Doc_A, Doc_A_2, Doc_A_2_2).
func (r *nameResolver) claim(name string) string {
	for n := r.counts[name]; ; n++ {
		candidate := name
		if n > 0 {
			candidate = name + "_" + strconv.Itoa(n+1)
		}
		if !r.taken[candidate] {
			r.taken[candidate] = true
			r.counts[name] = n + 1
			return candidate
		}
	}
}

func sanitize(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}

