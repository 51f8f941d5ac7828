// Package format provides human-readable formatting helpers.
package format

import "fmt"

// Bytes formats b using binary (1024) multiples, e.g. "1.5 KB" for 1536.
func Bytes(b int64) string {
	return scale(b, 1024, "KMGTPE")
}

// SIBytes formats b using decimal (1000) multiples, e.g. "1.5 kB".
func SIBytes(b int64) string {
	return scale(b, 1000, "kMGTPE")
}

func scale(b int64, unit uint64, prefixes string) string {
	sign := ""
	n := uint64(b)
	if b < 0 {
		sign = "-"
		// Two's complement magnitude, valid for math.MinInt64 as well.
		n = ^uint64(b) + 1
	}
	if n < unit {
		return fmt.Sprintf("%s%d B", sign, n)
	}
	div, exp := unit, 0
	for q := n / unit; q >= unit && exp < len(prefixes)-1; q /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%s%.1f %cB", sign, float64(n)/float64(div), prefixes[exp])
}
