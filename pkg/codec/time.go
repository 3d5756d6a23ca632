package codec

import "time"

// UnixTimestamp converts a 32-bit EVT timestamp (whole seconds since the Unix
// epoch, UTC) to a time.Time. A raw value of zero means the field was never
// populated and decodes to the zero time.
func UnixTimestamp(raw uint32) time.Time {
	if raw == 0 {
		return time.Time{}
	}
	return time.Unix(int64(raw), 0).UTC()
}

// FormatTimestamp renders a decoded timestamp as an ISO-8601 UTC string,
// e.g. "2009-02-13T23:31:30Z". The zero time renders as the empty string.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
