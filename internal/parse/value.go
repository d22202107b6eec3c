package parse

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	currencyRe   = regexp.MustCompile(`(?i)[€$\s]|eur`)
)

// Prices whose decimal exponent falls outside this window are treated as
// garbage; rounding them would expand to millions of digits.
const (
	maxPriceExponent = 15
	minPriceExponent = -20
)

// dateLayouts are tried in order against string-encoded dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// CollapseWhitespace replaces every run of whitespace in s with filler.
func CollapseWhitespace(s, filler string) string {
	return whitespaceRe.ReplaceAllString(s, filler)
}

// Text coerces a loosely typed document value into a string. Numbers are
// rendered without exponent; anything else that is not a string yields "".
func Text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

// Price coerces a line-item price into a non-negative amount rounded to
// cents. Unparsable, non-finite and negative values become zero.
func Price(v any) decimal.Decimal {
	var d decimal.Decimal
	switch t := v.(type) {
	case decimal.Decimal:
		d = t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(t)
	case float32:
		return Price(float64(t))
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	case json.Number:
		return Price(t.String())
	case string:
		s := currencyRe.ReplaceAllString(t, "")
		// "12,50" is how the shop types prices; "1.200,50" is not supported.
		if !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	default:
		return decimal.Zero
	}
	if d.IsNegative() || d.Exponent() > maxPriceExponent || d.Exponent() < minPriceExponent {
		return decimal.Zero
	}
	return d.Round(2)
}

// Date resolves the date encodings found in stored documents: time values,
// formatted strings, epoch milliseconds and timestamp objects carrying
// seconds/nanoseconds. The result is always in UTC with no monotonic
// reading; ok is false when v holds no usable date.
func Date(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return clean(t)
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return Date(*t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return clean(parsed)
			}
		}
		return time.Time{}, false
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return time.Time{}, false
		}
		return clean(time.UnixMilli(int64(t)))
	case int64:
		return clean(time.UnixMilli(t))
	case int:
		return clean(time.UnixMilli(int64(t)))
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return clean(time.UnixMilli(ms))
	case map[string]any:
		return timestampObject(t)
	default:
		return time.Time{}, false
	}
}

// timestampObject decodes {"seconds": s, "nanoseconds": n} and the
// underscore-prefixed variant produced by server-side exports.
func timestampObject(m map[string]any) (time.Time, bool) {
	for _, keys := range [][2]string{{"seconds", "nanoseconds"}, {"_seconds", "_nanoseconds"}} {
		raw, ok := m[keys[0]]
		if !ok {
			continue
		}
		sec, ok := wholeNumber(raw)
		if !ok {
			return time.Time{}, false
		}
		nsec, _ := wholeNumber(m[keys[1]])
		return clean(time.Unix(sec, nsec))
	}
	return time.Time{}, false
}

func wholeNumber(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// clean drops the monotonic reading and moves t to UTC. Years outside
// 1..9999 cannot be written back as RFC3339 and are rejected.
func clean(t time.Time) (time.Time, bool) {
	t = t.Round(0).UTC()
	if y := t.Year(); y < 1 || y > 9999 {
		return time.Time{}, false
	}
	return t, true
}
