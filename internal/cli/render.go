package cli

import (
	"fmt"
	"io"
	"math"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/clean-dependency-project/gamesync/internal/events"
)

// title upper-cases the first letter of every word. cases.Caser is not safe
// for concurrent use, so a new one is built per call.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

// runtimeLabel renders an image type and major version for humans, e.g. "Jdk 17".
func runtimeLabel(imageType string, major int) string {
	return fmt.Sprintf("%s %d", title(imageType), major)
}

// formatBytes renders a byte count with a binary unit.
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

// formatEvent renders a notification as one line. It returns false for
// messages too frequent to print.
func formatEvent(m events.Message) (string, bool) {
	switch ev := m.(type) {
	case events.Started:
		return fmt.Sprintf("%s: started", title(ev.Workflow)), true
	case events.Finished:
		return fmt.Sprintf("%s: finished", title(ev.Workflow)), true
	case events.FileProgress:
		return fmt.Sprintf("Progress: %d/%d files", ev.Current, ev.Total), true
	case events.Speed:
		return fmt.Sprintf("Speed: %s/s", formatBytes(int64(ev.BytesPerSecond))), true
	case events.Estimated:
		if math.IsInf(ev.Seconds, 0) || math.IsNaN(ev.Seconds) {
			return "", false
		}
		return fmt.Sprintf("Estimated: %s remaining", (time.Duration(ev.Seconds) * time.Second).String()), true
	case events.Removed:
		return fmt.Sprintf("Remove: %s", ev.Path), true
	case events.Missing:
		return fmt.Sprintf("Missing: %s", ev.Path), true
	case events.Ignored:
		return fmt.Sprintf("Ignored: %s", ev.Path), true
	case events.Error:
		target := ev.Path
		if target == "" {
			target = ev.URL
		}
		if target == "" {
			return fmt.Sprintf("Error: %v", ev.Err), true
		}
		return fmt.Sprintf("Error: %s: %v", target, ev.Err), true
	case events.DownloadStarted:
		return fmt.Sprintf("Downloading: %s", ev.URL), true
	case events.DownloadFinished:
		return fmt.Sprintf("Downloaded: %s (%s)", ev.URL, formatBytes(ev.Bytes)), true
	case events.DecompressStarted:
		return fmt.Sprintf("Extracting: %s", ev.Archive), true
	case events.DecompressFinished:
		return fmt.Sprintf("Extracted: %d entries", ev.Entries), true
	}
	return "", false
}

// renderEvents prints the messages of sink to w until the sink is closed.
// The returned channel is closed once every message has been written.
func renderEvents(w io.Writer, sink *events.ChannelSink) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for m := range sink.C() {
			if line, ok := formatEvent(m); ok {
				_, _ = fmt.Fprintln(w, line)
			}
		}
	}()
	return done
}
