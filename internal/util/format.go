package util

import (
	"fmt"
	"strconv"
)

// FormatNumber abbreviates large counts: 999, 1.5K, 2.5M.
func FormatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	} else {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// FormatTicks abbreviates a tick count. Ticks are unitless, so only SI
// multipliers are used.
func FormatTicks(t uint64) string {
	switch {
	case t < 10000:
		return strconv.FormatUint(t, 10)
	case t < 10000000:
		return fmt.Sprintf("%.1fK", float64(t)/1e3)
	case t < 10000000000:
		return fmt.Sprintf("%.1fM", float64(t)/1e6)
	default:
		return fmt.Sprintf("%.1fG", float64(t)/1e9)
	}
}

// FormatBytes renders a byte count with binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatThousands inserts comma separators: 1234567 -> 1,234,567.
func FormatThousands(n uint64) string {
	s := strconv.FormatUint(n, 10)
	if len(s) <= 3 {
		return s
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
