package parse

import "strings"

const rangeSeparator = " - "

// Range is a process requirement range split into its two bounds.
type Range struct {
	Start string
	End   string
}

// ParseRange splits a stored "start - end" string on the spaced separator.
// A bare hyphen never splits, so values like "-5" or "1.5e-3" stay whole.
// Without a separator the whole trimmed string is the start and End is empty.
func ParseRange(raw string) Range {
	// Search before trimming so a start-less " - 5" keeps its separator.
	if i := strings.Index(raw, rangeSeparator); i >= 0 {
		return Range{
			Start: strings.TrimSpace(raw[:i]),
			End:   strings.TrimSpace(raw[i+len(rangeSeparator):]),
		}
	}
	return Range{Start: strings.TrimSpace(raw)}
}

// FormatRange joins start and end back into the stored form.
// ParseRange(FormatRange(s, e)) returns the trimmed s and e.
func FormatRange(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if end == "" {
		return start
	}
	return start + rangeSeparator + end
}
