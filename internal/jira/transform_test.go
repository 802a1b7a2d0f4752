package jira

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

const sampleIssue = `{
	"id": "10001",
	"key": "OPS-42",
	"fields": {
		"summary": "Checkout times out",
		"description": {
			"type": "doc",
			"version": 1,
			"content": [
				{"type": "paragraph", "content": [{"type": "text", "text": "First "}, {"type": "text", "text": "line"}]},
				{"type": "bulletList", "content": [
					{"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "item one"}]}]}
				]},
				{"type": "paragraph", "content": [{"type": "text", "text": "before"}, {"type": "hardBreak"}, {"type": "text", "text": "after"}]}
			]
		},
		"status": {"id": "3", "name": "In Progress"},
		"priority": {"name": "High"},
		"issuetype": {"name": "Bug"},
		"project": {"key": "OPS", "name": "Operations"},
		"assignee": {"displayName": "Ada Lovelace"},
		"reporter": {"displayName": "Grace Hopper"},
		"components": [{"name": "checkout"}, {"name": "api"}],
		"labels": ["customer", "p1"],
		"parent": {"key": "OPS-1", "fields": {"issuetype": {"name": "Epic"}}},
		"created": "2024-01-02T09:00:00.000+0100",
		"updated": "2024-01-05T12:30:00.000+0000",
		"customfield_10016": 5,
		"customfield_10020": [{"id": 1, "name": "Sprint 7"}, {"id": 2, "name": "Sprint 8"}],
		"customfield_10001": {"id": "team-1", "name": "Payments"},
		"customfield_20000": "2024-02-01",
		"customfield_20001": null,
		"customfield_20002": {"value": "Gold"}
	}
}`

func TestIssueToTicket(t *testing.T) {
	var issue Issue
	require.NoError(t, json.Unmarshal([]byte(sampleIssue), &issue))

	ticket, err := IssueToTicket(issue)
	require.NoError(t, err)

	assert.Equal(t, "OPS-42", ticket.Key)
	assert.Equal(t, "OPS", ticket.ProjectKey)
	assert.Equal(t, "Checkout times out", ticket.Summary)
	assert.Equal(t, "First line\nitem one\nbefore\nafter", ticket.Description)
	assert.Equal(t, "In Progress", ticket.Status)
	assert.Equal(t, "High", ticket.Priority)
	assert.Equal(t, "Bug", ticket.IssueType)
	assert.Equal(t, "Ada Lovelace", ticket.Assignee)
	assert.Equal(t, "Grace Hopper", ticket.Reporter)
	assert.Equal(t, []string{"checkout", "api"}, ticket.Components)
	assert.Equal(t, []string{"customer", "p1"}, ticket.Labels)

	require.NotNil(t, ticket.RemoteCreatedAt)
	assert.True(t, ticket.RemoteCreatedAt.Equal(time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)))
	require.NotNil(t, ticket.RemoteUpdatedAt)
	assert.True(t, ticket.RemoteUpdatedAt.Equal(time.Date(2024, 1, 5, 12, 30, 0, 0, time.UTC)))

	require.NotNil(t, ticket.StoryPoints)
	assert.Equal(t, 5.0, *ticket.StoryPoints)
	assert.Equal(t, "Sprint 8", ticket.Sprint)
	assert.Equal(t, "Payments", ticket.Team)
	assert.Equal(t, "OPS-1", ticket.EpicKey)

	assert.Len(t, ticket.CustomFields, 5)
	assert.Equal(t, models.KindDate, ticket.CustomFields["customfield_20000"].Kind)
	assert.Equal(t, "Gold", ticket.CustomFields["customfield_20002"].Str)
	_, ok := ticket.CustomFields["customfield_20001"]
	assert.False(t, ok)
}

func TestIssueToTicket_FallsBackToKeyForProject(t *testing.T) {
	ticket, err := IssueToTicket(Issue{Key: "web-7", Fields: json.RawMessage(`{"summary":"x"}`)})
	require.NoError(t, err)
	assert.Equal(t, "WEB", ticket.ProjectKey)
	assert.Empty(t, ticket.EpicKey)
	assert.Equal(t, []string{}, ticket.Labels)

	_, err = IssueToTicket(Issue{ID: "9"})
	assert.Error(t, err)

	_, err = IssueToTicket(Issue{ID: "10", Key: "OPS-"})
	assert.Error(t, err)
}

func TestDescriptionToPlainText(t *testing.T) {
	assert.Equal(t, "", DescriptionToPlainText(nil))
	assert.Equal(t, "", DescriptionToPlainText(json.RawMessage("null")))
	assert.Equal(t, "plain text", DescriptionToPlainText(json.RawMessage(`"plain text"`)))
	assert.Equal(t, `{"type":"other"}`, DescriptionToPlainText(json.RawMessage(`{"type":"other"}`)))
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{
		"2024-03-04T05:06:07.000+0000",
		"2024-03-04T05:06:07+0000",
		"2024-03-04T05:06:07Z",
	} {
		got, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, got.Equal(time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)), s)
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}
