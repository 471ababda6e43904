package logger

import (
	"fmt"
	"io"
	"time"
)

// SiteSummary holds per-site counters for the final report.
type SiteSummary struct {
	Site          string
	Bucket        string
	Uploaded      int
	Skipped       int
	Deleted       int
	Copied        int
	Failed        int
	BytesUploaded int64
	Ignored       bool
	Err           error
}

// PrintSummary prints a summary of the invocation
func PrintSummary(w io.Writer, command string, sites []SiteSummary, duration time.Duration) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "=== %s summary ===\n", command)
	for _, s := range sites {
		target := s.Bucket
		if target == "" {
			target = "(unresolved)"
		}
		status := "ok"
		if s.Ignored {
			status = "skipped"
		}
		if s.Err != nil {
			status = "FAILED: " + s.Err.Error()
		}
		fmt.Fprintf(w, "%s -> %s: %s\n", s.Site, target, status)
		if s.Uploaded+s.Skipped+s.Deleted+s.Copied+s.Failed == 0 {
			continue
		}
		fmt.Fprintf(w, "  uploaded %d (%s), skipped %d, deleted %d, copied %d, failed %d\n",
			s.Uploaded, formatBytes(s.BytesUploaded), s.Skipped, s.Deleted, s.Copied, s.Failed)
	}
	fmt.Fprintf(w, "Duration: %s\n", duration.Round(time.Millisecond))
}

// formatBytes formats bytes in human readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
