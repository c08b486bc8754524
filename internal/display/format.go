// Package display formats run summaries for the terminal.
package display

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes returns a human-readable IEC size (B, KiB, MiB, ...).
// Negative sizes render as "0 B".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatElapsed rounds d for display: milliseconds under a minute, whole
// seconds above.
func FormatElapsed(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// FormatStreams describes linked and dropped stream counts, e.g.
// "2 streams (1 dropped)".
func FormatStreams(linked, dropped int) string {
	noun := "streams"
	if linked == 1 {
		noun = "stream"
	}
	if dropped == 0 {
		return fmt.Sprintf("%d %s", linked, noun)
	}
	return fmt.Sprintf("%d %s (%d dropped)", linked, noun, dropped)
}
