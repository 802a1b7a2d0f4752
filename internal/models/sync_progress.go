package models

import "time"

// SyncProgress is the progress snapshot of a run
type SyncProgress struct {
	TotalProjects     int      `json:"totalProjects"`
	ProcessedProjects int      `json:"processedProjects"`
	TotalTickets      int      `json:"totalTickets"`
	ProcessedTickets  int      `json:"processedTickets"`
	FailedTickets     int      `json:"failedTickets"`
	CurrentProject    string   `json:"currentProject,omitempty"`
	Errors            []string `json:"errors"`
	ClientsCreated    int      `json:"clientsCreated"`
	ClientsUpdated    int      `json:"clientsUpdated"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (p SyncProgress) Clone() SyncProgress {
	out := p
	out.Errors = append([]string{}, p.Errors...)
	return out
}

type EventType string

const (
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventCancelled EventType = "cancelled"
)

// Terminal reports whether no further events follow for the run.
func (e EventType) Terminal() bool {
	return e != EventProgress
}

// EventForStatus maps a run status to the event a subscriber should see.
func EventForStatus(status RunStatus) EventType {
	switch status {
	case RunStatusCompleted:
		return EventCompleted
	case RunStatusFailed:
		return EventFailed
	case RunStatusCancelled:
		return EventCancelled
	}
	return EventProgress
}

// ProgressEvent is a point-in-time copy of a run's progress. It is never persisted.
type ProgressEvent struct {
	Event     EventType    `json:"event"`
	RunID     string       `json:"syncId"`
	Status    RunStatus    `json:"status"`
	Progress  SyncProgress `json:"progress"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// SnapshotEvent builds the event describing the run's current state.
func SnapshotEvent(run *SyncRun, now time.Time) ProgressEvent {
	return ProgressEvent{
		Event:     EventForStatus(run.Status),
		RunID:     run.ID,
		Status:    run.Status,
		Progress:  run.Progress.Clone(),
		Error:     run.Error,
		Timestamp: now,
	}
}
