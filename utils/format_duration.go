package utils

import (
	"fmt"
	"math"
	"time"
)

func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000)
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm %.0fs", math.Floor(d.Minutes()), math.Mod(d.Seconds(), 60))
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) - 60*hours
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// Seconds converts the fractional seconds used throughout GC logs into a Duration.
func Seconds(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

// FormatSeconds formats a GC log duration given in seconds.
func FormatSeconds(secs float64) string {
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return "n/a"
	}
	if secs < 0 {
		return "-" + FormatDuration(Seconds(-secs))
	}
	return FormatDuration(Seconds(secs))
}
