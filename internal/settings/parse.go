package settings

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseIntOrDefault coerces a stored threshold into an integer. Strings are
// read up to the first non-digit ("36h" is 36, "12.5" is 12). Missing,
// unparsable and non-positive values yield def.
func ParseIntOrDefault(v any, def int) int {
	n, ok := parseInt(v)
	if !ok || n < 1 {
		return def
	}
	return n
}

func parseInt(v any) (int, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		return parseIntPrefix(t.String())
	case string:
		return parseIntPrefix(t)
	default:
		return 0, false
	}
}

func parseIntPrefix(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
