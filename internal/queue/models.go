package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline asset.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAnalyzing  Status = "analyzing"
	StatusAnalyzed   Status = "analyzed"
	StatusProbing    Status = "probing"
	StatusProbed     Status = "probed"
	StatusEnhancing  Status = "enhancing"
	StatusEnhanced   Status = "enhanced"
	StatusLipsyncing Status = "lipsyncing"
	StatusLipsynced  Status = "lipsynced"
	StatusFinalizing Status = "finalizing"
	StatusFinalized  Status = "finalized"
	StatusFailed     Status = "failed"
)

// Kind distinguishes the two asset families moving through the pipeline.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

var allStatuses = []Status{
	StatusPending,
	StatusAnalyzing,
	StatusAnalyzed,
	StatusProbing,
	StatusProbed,
	StatusEnhancing,
	StatusEnhanced,
	StatusLipsyncing,
	StatusLipsynced,
	StatusFinalizing,
	StatusFinalized,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusAnalyzing:  {},
	StatusProbing:    {},
	StatusEnhancing:  {},
	StatusLipsyncing: {},
	StatusFinalizing: {},
}

// Asset represents one media file tracked through the stage folders,
// persisted in SQLite.
type Asset struct {
	ID           int64
	SourcePath   string
	BaseName     string
	Kind         Kind
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Deliverable represents one assembled music video recorded for history.
type Deliverable struct {
	ID         int64
	OutputPath string
	AudioPath  string
	ClipCount  int
	SyncMode   string
	CreatedAt  time.Time
}

// HealthSummary describes aggregated asset counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Finalized  int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (a Asset) IsProcessing() bool {
	_, ok := processingStatuses[a.Status]
	return ok
}

// SetFailed marks the asset as failed with the given error message.
func (a *Asset) SetFailed(message string) {
	a.Status = StatusFailed
	a.ErrorMessage = message
}
