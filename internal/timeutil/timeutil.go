// Package timeutil provides defensive timestamp parsing and UTC day-window
// helpers shared across components.
package timeutil

import "time"

// DateLayout is the calendar-date layout used throughout the API.
const DateLayout = "2006-01-02"

// timestampLayouts are tried in order by ParseTimestamp. Clients send RFC 3339
// with either a Z suffix or a numeric offset; some legacy rows carry no zone
// at all and are treated as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	DateLayout,
}

// ParseTimestamp parses an ISO-8601 timestamp. It never panics; the second
// return value reports whether the input was parseable.
func ParseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseDate parses a YYYY-MM-DD calendar date as a UTC midnight instant.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// DayBounds returns the UTC midnight-to-midnight window containing t.
func DayBounds(t time.Time) (start, end time.Time) {
	u := t.UTC()
	start = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// StartOfDayUTC returns the UTC midnight preceding t.
func StartOfDayUTC(t time.Time) time.Time {
	start, _ := DayBounds(t)
	return start
}

// ChunkText splits s into fixed-size chunks for ordered streaming. Chunks
// never split a UTF-8 sequence. An empty string yields no chunks.
func ChunkText(s string, size int) []string {
	if s == "" || size <= 0 {
		return nil
	}
	var chunks []string
	current := make([]rune, 0, size)
	for _, r := range s {
		current = append(current, r)
		if len(current) == size {
			chunks = append(chunks, string(current))
			current = current[:0]
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}
