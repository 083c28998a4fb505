package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	errNotNumeric = errors.New("must be numeric")
	errBadList    = errors.New("must be a string or a list of strings")
	errBadDate    = errors.New("must be a date (YYYY-MM-DD)")
)

// ParseList accepts either a delimited string or a JSON array of strings and
// returns the trimmed, non-empty items in order. Strings are split on commas
// and line breaks; array items are kept whole.
func ParseList(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errBadList
		}
		return SplitList(s), nil
	case '[':
		var items []string
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, errBadList
		}
		return compact(items), nil
	}
	return nil, errBadList
}

// SplitList splits a delimited string into trimmed, non-empty items.
func SplitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	return compact(parts)
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// ParseAmount accepts a JSON number or a numeric string, rounded to cents.
func ParseAmount(raw json.RawMessage) (float64, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false, nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, true, errNotNumeric
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, false, nil
		}
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, true, errNotNumeric
	}
	return roundCents(v), true, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and keeps the date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errBadDate
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
