package models

// FindingKind is the presentation class of a finding.
type FindingKind string

const (
	FindingError   FindingKind = "error"
	FindingWarning FindingKind = "warning"
)

// Urgency is the recommended response tier for a finding.
type Urgency string

const (
	UrgencyHigh   Urgency = "High (Investigate Now)"
	UrgencyMedium Urgency = "Medium (Review Soon)"
)

// Finding is a derived, ephemeral alert produced by the health-summary
// aggregation. Findings are never persisted; they exist only for the
// duration of one evaluation pass.
type Finding struct {
	Kind    FindingKind `json:"kind"`
	Title   string      `json:"title"`
	Detail  string      `json:"detail"`
	Action  string      `json:"action"`
	Urgency Urgency     `json:"urgency"`
}
