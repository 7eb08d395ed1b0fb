package publicapi

import "time"

// parseTimestamp parses an RFC 3339 timestamp, returning the zero
// time for an empty or malformed value rather than failing the whole
// fetch over one bad field.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
