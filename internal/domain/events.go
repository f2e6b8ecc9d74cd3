package domain

import "time"

// EventType names an audit event emitted after a committed state change.
type EventType string

const (
	EventSubmissionGraded  EventType = "submission.graded"
	EventLevelAdvanced     EventType = "level.advanced"
	EventViolationRecorded EventType = "violation.recorded"
)

// Event is published to the audit stream.
type Event struct {
	Type          EventType      `json:"type"`
	ParticipantID string         `json:"participantId"`
	TeamName      string         `json:"teamName"`
	Data          map[string]any `json:"data,omitempty"`
	At            time.Time      `json:"at"`
}
