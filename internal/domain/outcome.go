package domain

import "time"

// OutcomeKind classifies the result of one probe attempt.
// The four kinds are mutually exclusive and ordered by severity
// (success < failure < timeout < error) for incident-impact purposes.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailure OutcomeKind = "failure"
	OutcomeTimeout OutcomeKind = "timeout"
	OutcomeError   OutcomeKind = "error"
)

// Severity returns the kind's position in the severity order.
func (k OutcomeKind) Severity() int {
	switch k {
	case OutcomeSuccess:
		return 0
	case OutcomeFailure:
		return 1
	case OutcomeTimeout:
		return 2
	case OutcomeError:
		return 3
	}
	return 0
}

// Failed reports whether the kind should trigger incident correlation.
func (k OutcomeKind) Failed() bool {
	return k != OutcomeSuccess
}

// CheckOutcome is the classified result of one probe attempt.
// Rows are append-only and immutable once written; the retention
// pruner deletes them after the configured horizon.
type CheckOutcome struct {
	MonitorID  MonitorID   `json:"monitor_id"`
	Kind       OutcomeKind `json:"kind"`
	HTTPStatus *int        `json:"http_status"` // nil when no response was received
	LatencyMS  *float64    `json:"latency_ms"`  // nil only if no time could be measured
	Message    string      `json:"message,omitempty"`
	ExecutedAt time.Time   `json:"executed_at"`
}

// IncidentStatus is the lifecycle position of an incident. Auto-created
// incidents start at IncidentInvestigating and only move forward.
type IncidentStatus string

const (
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentIdentified    IncidentStatus = "identified"
	IncidentMonitoring    IncidentStatus = "monitoring"
	IncidentResolved      IncidentStatus = "resolved"
)

// Impact is the published severity of an incident.
type Impact string

const (
	ImpactNone     Impact = "none"
	ImpactMinor    Impact = "minor"
	ImpactMajor    Impact = "major"
	ImpactCritical Impact = "critical"
)

// ImpactFor maps an outcome kind to the impact of an auto-created
// incident: hard errors are major, everything else minor.
func ImpactFor(k OutcomeKind) Impact {
	if k == OutcomeError {
		return ImpactMajor
	}
	return ImpactMinor
}
