// Package cli provides CLI output helpers for Kiroku.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mizushima/kiroku/internal/offline"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteIndexStatus writes an index status report to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteIndexStatus(w io.Writer, status *offline.IndexStatus, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	default:
		writeIndexStatusText(w, status)
		return nil
	}
}

func writeIndexStatusText(w io.Writer, status *offline.IndexStatus) {
	fmt.Fprintf(w, "\nIndex: %s\n", status.Dir)
	for _, a := range status.Artifacts {
		if !a.Present {
			fmt.Fprintf(w, "  %-16s missing\n", a.Name)
			continue
		}
		fmt.Fprintf(w, "  %-16s %8d bytes  modified %s\n", a.Name, a.SizeBytes, a.Modified.Format("2006-01-02 15:04:05"))
	}
	if status.Complete {
		fmt.Fprintf(w, "All artifacts present (%d bytes total)\n", status.TotalSizeBytes)
	} else {
		fmt.Fprintf(w, "Index incomplete (%d bytes present)\n", status.TotalSizeBytes)
	}
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
