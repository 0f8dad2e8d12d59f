package dirstat

import "fmt"

// sizeUnits are the suffixes used by FormatSize below the petabyte range.
//
//nolint:gochecknoglobals // Lookup table
var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize converts a byte count to a human-readable string with one decimal
// digit, dividing by 1024 per unit: 0 -> "0.0 B", 1536 -> "1.5 KB".
// Anything at or beyond 1024 TB is expressed in PB.
func FormatSize(n int64) string {
	value := float64(n)

	for _, unit := range sizeUnits {
		if value > -1024 && value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}

		value /= 1024
	}

	return fmt.Sprintf("%.1f PB", value)
}
