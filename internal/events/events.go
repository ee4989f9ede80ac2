// Package events defines the typed progress notifications produced by the
// downloader, the runtime acquirer and the asset reconciler.
package events

import (
	"encoding/json"
	"math"
)

// Message is implemented by every notification.
type Message interface {
	// EventName returns the wire name of the notification, e.g. "progress".
	EventName() string
}

// Workflow names carried by Started and Finished.
const (
	WorkflowRuntime = "runtime"
	WorkflowAssets  = "assets"
	WorkflowBatch   = "batch"
)

// Started signals the beginning of a workflow.
type Started struct {
	Workflow string
}

// Finished signals the successful end of a workflow.
type Finished struct {
	Workflow string
}

// Progress reports bytes transferred. Total is 0 when the size is unknown.
type Progress struct {
	Downloaded int64
	Total      int64
	Type       string
}

// FileProgress reports how many files of a sequential transfer are done.
type FileProgress struct {
	Current int
	Total   int
}

// Speed is the smoothed batch throughput in bytes per second.
type Speed struct {
	BytesPerSecond float64
}

// Estimated is the remaining time of a batch in seconds; +Inf while the speed is unknown.
type Estimated struct {
	Seconds float64
}

// Removed reports a local file deleted because its hash was stale.
type Removed struct {
	Path string
}

// Missing reports a manifest entry queued for download.
type Missing struct {
	Path string
}

// Ignored reports a manifest entry skipped by the ignore list.
type Ignored struct {
	Path string
}

// Error reports a failure. In batch downloads it is not terminal.
type Error struct {
	URL  string
	Path string
	Err  error
}

// DownloadStarted signals the start of the runtime archive transfer.
type DownloadStarted struct {
	URL string
}

// DownloadFinished signals the end of the runtime archive transfer.
type DownloadFinished struct {
	URL   string
	Bytes int64
}

// DecompressStarted signals the start of archive extraction.
type DecompressStarted struct {
	Archive string
}

// DecompressProgress is emitted once per extracted entry. Total and Percent are
// -1 when the archive format does not expose an entry count up front.
type DecompressProgress struct {
	Entries int
	Total   int
	Percent int
}

// DecompressFinished signals the end of archive extraction.
type DecompressFinished struct {
	Archive string
	Entries int
}

func (Started) EventName() string            { return "started" }
func (Finished) EventName() string           { return "finished" }
func (Progress) EventName() string           { return "progress" }
func (FileProgress) EventName() string       { return "progress" }
func (Speed) EventName() string              { return "speed" }
func (Estimated) EventName() string          { return "estimated" }
func (Removed) EventName() string            { return "remove" }
func (Missing) EventName() string            { return "missing" }
func (Ignored) EventName() string            { return "ignored" }
func (Error) EventName() string              { return "error" }
func (DownloadStarted) EventName() string    { return "start-download" }
func (DownloadFinished) EventName() string   { return "finished-download" }
func (DecompressStarted) EventName() string  { return "start-decompress" }
func (DecompressProgress) EventName() string { return "decompress-progress" }
func (DecompressFinished) EventName() string { return "finished-decompress" }

// MarshalJSON encodes the error as a string.
func (m Error) MarshalJSON() ([]byte, error) {
	type encoded struct {
		URL  string `json:"url,omitempty"`
		Path string `json:"path,omitempty"`
		Err  string `json:"error,omitempty"`
	}
	out := encoded{URL: m.URL, Path: m.Path}
	if m.Err != nil {
		out.Err = m.Err.Error()
	}
	return json.Marshal(out)
}

// MarshalJSON encodes an unknown estimate as null, since JSON has no infinity.
func (m Estimated) MarshalJSON() ([]byte, error) {
	if math.IsInf(m.Seconds, 0) || math.IsNaN(m.Seconds) {
		return []byte(`{"seconds":null}`), nil
	}
	return json.Marshal(struct {
		Seconds float64 `json:"seconds"`
	}{m.Seconds})
}

// Lossy reports whether m is a periodic tick that may be dropped under backpressure.
func Lossy(m Message) bool {
	switch m.(type) {
	case Progress, Speed, Estimated, DecompressProgress:
		return true
	}
	return false
}
