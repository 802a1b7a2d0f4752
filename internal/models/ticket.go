package models

import (
	"time"
)

// Well-known custom field identifiers extracted into named ticket attributes.
const (
	FieldStoryPoints = "customfield_10016"
	FieldSprint      = "customfield_10020"
	FieldEpicLink    = "customfield_10014"
	FieldTeam        = "customfield_10001"
)

type Ticket struct {
	Key             string       `json:"key"`
	ClientID        *int64       `json:"clientId,omitempty"`
	ProjectKey      string       `json:"projectKey"`
	Summary         string       `json:"summary"`
	Description     string       `json:"description,omitempty"`
	Status          string       `json:"status"`
	Priority        string       `json:"priority,omitempty"`
	IssueType       string       `json:"issueType,omitempty"`
	Assignee        string       `json:"assignee,omitempty"`
	Reporter        string       `json:"reporter,omitempty"`
	StoryPoints     *float64     `json:"storyPoints,omitempty"`
	Sprint          string       `json:"sprint,omitempty"`
	EpicKey         string       `json:"epicKey,omitempty"`
	Team            string       `json:"team,omitempty"`
	CustomFields    CustomFields `json:"customFields"`
	Components      []string     `json:"components"`
	Labels          []string     `json:"labels"`
	RemoteCreatedAt *time.Time   `json:"remoteCreatedAt,omitempty"`
	RemoteUpdatedAt *time.Time   `json:"remoteUpdatedAt,omitempty"`
	LastSynced      time.Time    `json:"lastSynced"`
}

// ExtractWellKnown copies the well-known custom fields into their named
// attributes. The raw bag is left untouched.
func (t *Ticket) ExtractWellKnown() {
	if v, ok := t.CustomFields[FieldStoryPoints]; ok {
		if n, ok := v.Number(); ok {
			t.StoryPoints = &n
		}
	}
	if v, ok := t.CustomFields[FieldSprint]; ok {
		t.Sprint = v.Text()
	}
	if v, ok := t.CustomFields[FieldEpicLink]; ok {
		t.EpicKey = v.Text()
	}
	if v, ok := t.CustomFields[FieldTeam]; ok {
		t.Team = v.Text()
	}
}

// TicketFilter narrows GetTickets. Zero values are ignored.
type TicketFilter struct {
	ClientID     *int64
	Status       string
	Assignee     string
	UpdatedSince *time.Time
	Keys         []string
	Limit        int
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type ClientCount struct {
	ClientID *int64 `json:"clientId"`
	Name     string `json:"name"`
	Count    int64  `json:"count"`
}

// TicketStatistics summarizes the ticket table.
type TicketStatistics struct {
	TotalTickets     int64         `json:"totalTickets"`
	DistinctClients  int64         `json:"distinctClients"`
	DistinctStatuses int64         `json:"distinctStatuses"`
	OldestUpdated    *time.Time    `json:"oldestUpdated,omitempty"`
	NewestUpdated    *time.Time    `json:"newestUpdated,omitempty"`
	AverageAgeDays   float64       `json:"averageAgeDays"`
	ByStatus         []StatusCount `json:"byStatus"`
	TopClients       []ClientCount `json:"topClients"`
}
