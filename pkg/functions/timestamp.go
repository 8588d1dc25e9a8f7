package functions

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// utcZones are IANA names that denote UTC itself. Zones that merely have a zero
// offset, such as Europe/London in winter, keep the numeric "+00:00" form.
var utcZones = map[string]bool{
	"UTC":           true,
	"Etc/UTC":       true,
	"Etc/Universal": true,
	"Universal":     true,
	"Etc/UCT":       true,
	"UCT":           true,
	"Etc/Zulu":      true,
	"Zulu":          true,
}

const (
	layoutMicros  = "2006-01-02T15:04:05.000000"
	layoutSeconds = "2006-01-02 15:04:05"
)

var zoneSuffix = regexp.MustCompile(`^(.*)\[([^\]]+)\]$`)

// ParseTimestamp parses an RFC 3339 timestamp with an optional RFC 9557 zone suffix,
// such as 2024-03-01T12:00:00+00:00[Europe/London]. A timestamp without an offset,
// or a bare date, is taken to be in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	text := strings.TrimSpace(s)
	var zone string
	if m := zoneSuffix.FindStringSubmatch(text); m != nil {
		text, zone = m[1], m[2]
	}
	t, err := parseInstant(text)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	if zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown time zone %q: %w", zone, err)
		}
		t = t.In(loc)
	}
	return t, nil
}

func parseInstant(text string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999Z07:00"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matched")
}

// IsUTCZone reports whether loc is named as UTC itself rather than a zone that happens to have offset zero.
func IsUTCZone(loc *time.Location) bool {
	return utcZones[loc.String()]
}

// formatInstant writes t with microseconds and a Z suffix only for UTC zones.
func formatInstant(t time.Time, layout string) string {
	if IsUTCZone(t.Location()) {
		return t.Format(layout) + "Z"
	}
	return t.Format(layout + "-07:00")
}

// zoneName returns the IANA name of t's zone, or "" for fixed offsets and the unnamed local zone.
func zoneName(t time.Time) string {
	name := t.Location().String()
	if name == "Local" {
		return ""
	}
	return name
}

// weekOfMonth numbers weeks from 1, with weeks starting on Monday.
func weekOfMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	offset := (int(first.Weekday()) + 6) % 7
	return (t.Day()+offset-1)/7 + 1
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// TimestampRecord decomposes t into calendar fields and string encodings.
func TimestampRecord(t time.Time) map[string]any {
	utc := t.UTC()
	isoYear, isoWeek := t.ISOWeek()
	isoDay := (int(t.Weekday())+6)%7 + 1
	abbr, _ := t.Zone()
	micro := t.Nanosecond() / 1000

	rfc9557 := formatInstant(t, layoutMicros)
	if name := zoneName(t); name != "" {
		rfc9557 += "[" + name + "]"
	}
	return map[string]any{
		"rfc_9557":           rfc9557,
		"rfc_9557_utc":       formatInstant(utc, layoutMicros) + "[Etc/UTC]",
		"rfc_3339":           formatInstant(t, layoutMicros),
		"rfc_3339_utc":       formatInstant(utc, layoutMicros),
		"iso_8601_week_date": fmt.Sprintf("%04d-W%02d-%d", isoYear, isoWeek, isoDay),
		"unix_time":          t.Unix(),
		"formatted_local":    t.Format(layoutSeconds),
		"formatted":          formatInstant(t, layoutSeconds),
		"date":               t.Format(time.DateOnly),
		"date_tuple":         []any{int64(t.Year()), int64(t.Month()), int64(t.Day())},
		"time":               fmt.Sprintf("%s.%06d", t.Format(time.TimeOnly), micro),
		"truncated_time":     t.Format(time.TimeOnly),
		"time_tuple":         []any{int64(t.Hour()), int64(t.Minute()), int64(t.Second()), int64(micro)},
		"year":               int64(t.Year()),
		"month":              int64(t.Month()),
		"day":                int64(t.Day()),
		"hour":               int64(t.Hour()),
		"minute":             int64(t.Minute()),
		"second":             int64(t.Second()),
		"microsecond":        int64(micro),
		"offset":             t.Format("-0700"),
		"zone":               zoneName(t),
		"zone_abbr":          abbr,
		"is_dst":             t.IsDST(),
		"is_leap_year":       isLeap(t.Year()),
		"month_name":         t.Month().String(),
		"month_abbr":         t.Format("Jan"),
		"week_number":        int64(isoWeek),
		"week_parity":        int64(weekOfMonth(t) % 2),
		"day_name":           t.Weekday().String(),
		"day_abbr":           t.Format("Mon"),
		"day_number":         int64(isoDay - 1),
	}
}
