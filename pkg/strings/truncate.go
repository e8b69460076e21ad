package strings

import (
	"strings"
)

// DefaultCellMaxLen is the default maximum length for table cells in
// formatted CLI output.
const DefaultCellMaxLen = 60

// MinTruncateLen is the minimum maxLen value for TruncateCell.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// TruncateCell truncates a string to maxLen characters and ensures
// single-line output. It collapses whitespace runs into single spaces and
// adds "..." if truncated.
//
// The function operates on runes rather than bytes, preventing truncation
// in the middle of multi-byte characters.
func TruncateCell(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
