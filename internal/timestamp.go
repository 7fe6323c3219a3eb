package internal

import "fmt"

// FormatTimestamp renders a millisecond offset as minutes:seconds.
// There is no hour component, so an offset of 3661000 renders as "61:01".
func FormatTimestamp(offsetMs int64) string {
	minutes := offsetMs / 60000
	seconds := (offsetMs % 60000) / 1000
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
