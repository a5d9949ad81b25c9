// Package format provides the pure value-formatting functions applied to
// raw cell values during mail merge. A format code selects the
// transformation; the zero code stringifies.
//
// Supported codes: uppercase, lowercase, capitalize, date:DD/MM/YYYY,
// date:MM/DD/YYYY, date:YYYY-MM-DD, number:<decimals>, currency,
// percentage.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// commonDateLayouts are tried in order when parsing a date from a string.
var commonDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// dateLayouts maps the supported date format codes to Go reference layouts.
var dateLayouts = map[string]string{
	"DD/MM/YYYY": "02/01/2006",
	"MM/DD/YYYY": "01/02/2006",
	"YYYY-MM-DD": "2006-01-02",
}

// Format renders a raw cell value as a display string according to code.
// Nil always formats to the empty string regardless of code. Unknown codes
// stringify the value.
//
// Date codes are lenient: a value that does not parse as a date degrades to
// its plain stringification instead of failing. The formatter also feeds
// filename generation and previews, where a visible odd value is preferable
// to aborting a row.
func Format(v any, code string) string {
	if v == nil {
		return ""
	}
	switch {
	case code == "":
		return Stringify(v)
	case code == "uppercase":
		return strings.ToUpper(Stringify(v))
	case code == "lowercase":
		return strings.ToLower(Stringify(v))
	case code == "capitalize":
		return capitalize(Stringify(v))
	case strings.HasPrefix(code, "date:"):
		return formatDate(v, strings.TrimPrefix(code, "date:"))
	case strings.HasPrefix(code, "number:"):
		return formatNumber(v, strings.TrimPrefix(code, "number:"))
	case code == "currency":
		return Currency(v, "en-US")
	case code == "percentage":
		return formatPercentage(v)
	default:
		return Stringify(v)
	}
}

// Stringify converts a raw cell value to its plain display string. Numbers
// drop trailing zeros, booleans render as true/false, dates render as
// YYYY-MM-DD, nil renders empty.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", x)
	}
}

// capitalize upper-cases the first letter of every word and lower-cases
// the rest.
func capitalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	startOfWord := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			startOfWord = true
			b.WriteRune(r)
			continue
		}
		if startOfWord {
			b.WriteRune(unicode.ToUpper(r))
			startOfWord = false
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func formatDate(v any, layoutCode string) string {
	layout, ok := dateLayouts[layoutCode]
	if !ok {
		return Stringify(v)
	}
	t, ok := parseDate(v)
	if !ok {
		return Stringify(v)
	}
	return t.Format(layout)
}

// parseDate accepts time.Time values directly and tries the common layouts
// for strings.
func parseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		if x == "" {
			return time.Time{}, false
		}
		for _, layout := range commonDateLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func formatNumber(v any, decimalsCode string) string {
	n, ok := toNumber(v)
	if !ok {
		return Stringify(v)
	}
	decimals, err := strconv.Atoi(decimalsCode)
	if err != nil || decimals < 0 {
		decimals = 2
	}
	return strconv.FormatFloat(n, 'f', decimals, 64)
}

func formatPercentage(v any) string {
	n, ok := toNumber(v)
	if !ok {
		return Stringify(v)
	}
	return strconv.FormatFloat(n*100, 'f', 2, 64) + "%"
}

// Currency formats a numeric value as a currency string for the given
// BCP-47-ish locale tag. Unrecognized locales fall back to US dollars.
// Non-numeric values stringify unchanged.
func Currency(v any, locale string) string {
	n, ok := toNumber(v)
	if !ok {
		return Stringify(v)
	}
	symbol, before, space := currencyStyle(locale)
	negative := n < 0
	if negative {
		n = -n
	}
	formatted := groupThousands(strconv.FormatFloat(n, 'f', 2, 64))
	var out string
	if before {
		out = symbol + formatted
		if space {
			out = symbol + " " + formatted
		}
	} else {
		out = formatted + symbol
		if space {
			out = formatted + " " + symbol
		}
	}
	if negative {
		out = "-" + out
	}
	return out
}

func currencyStyle(locale string) (symbol string, before, space bool) {
	parts := strings.SplitN(locale, "-", 2)
	lang := strings.ToLower(parts[0])
	country := ""
	if len(parts) > 1 {
		country = strings.ToUpper(parts[1])
	}
	switch {
	case lang == "en" && country == "GB":
		return "£", true, false
	case lang == "de", lang == "fr", lang == "es", lang == "it":
		return "€", false, true
	case lang == "ja":
		return "¥", true, false
	case lang == "in", lang == "hi":
		return "₹", true, false
	default:
		return "$", true, false
	}
}

// groupThousands inserts comma separators into the integer part of a
// plain fixed-point decimal string.
func groupThousands(s string) string {
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return intPart + fracPart
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + fracPart
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
