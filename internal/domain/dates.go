package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayouts covers the formats commonly seen on statements. Numeric
// day/month formats are handled separately because of DD/MM vs MM/DD
// ambiguity.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"2 Jan 06",
	"2 Jan", // year-less, current year assumed
	"Jan 2",
}

var numericDateRe = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{2,4})$`)

// NormalizeDate converts a raw statement date to YYYY-MM-DD where derivable.
// Unparseable values pass through unchanged so the best available raw value
// is kept.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		return normalizeNumericDate(m[1], m[2], m[3], s)
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = time.Date(time.Now().Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return t.Format("2006-01-02")
	}

	return s
}

// normalizeNumericDate resolves DD/MM vs MM/DD: whichever component exceeds
// 12 must be the day. When both could be a month, day-first wins, matching
// the statement locales this service was built against.
func normalizeNumericDate(first, second, year, raw string) string {
	a, _ := strconv.Atoi(first)
	b, _ := strconv.Atoi(second)
	y, _ := strconv.Atoi(year)

	if len(year) == 2 {
		y += 2000
	}

	day, month := a, b
	if a <= 12 && b > 12 {
		day, month = b, a
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return raw
	}

	t := time.Date(y, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	if day > daysIn(t.Month(), y) {
		return raw
	}
	return time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
