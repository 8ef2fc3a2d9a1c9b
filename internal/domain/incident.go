// Package domain contains the core entities of the incident tracker.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Severity represents the triage level of an incident.
type Severity string

// Severity levels.
const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Severities returns all valid severities in their canonical order.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh}
}

// IsValid checks if the severity is one of the known levels.
// The comparison is case-sensitive.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Status represents the lifecycle stage of an incident.
type Status string

// Incident statuses.
const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
)

// Statuses returns all valid statuses in their canonical order.
func Statuses() []Status {
	return []Status{StatusOpen, StatusInProgress, StatusResolved}
}

// IsValid checks if the status is one of the known stages.
// Any valid status may follow any other.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// TimestampLayout is the wire format of Incident.Timestamp:
// ISO-8601 with microseconds and a numeric UTC offset.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

// Incident represents a reported issue.
// Only Status changes after creation.
type Incident struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ReportedBy  string    `json:"reported_by"`
	Severity    Severity  `json:"severity"`
	Status      Status    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// MarshalJSON renders the timestamp in UTC using TimestampLayout.
func (i Incident) MarshalJSON() ([]byte, error) {
	type incidentAlias Incident
	return json.Marshal(struct {
		incidentAlias
		Timestamp string `json:"timestamp"`
	}{
		incidentAlias: incidentAlias(i),
		Timestamp:     i.Timestamp.UTC().Format(TimestampLayout),
	})
}

// Join renders enum values as a comma separated list.
func Join[T ~string](values []T) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, string(v))
	}
	return strings.Join(parts, ", ")
}
