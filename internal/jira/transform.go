package jira

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Kamar-Folarin/ticket-sync/internal/models"
	"github.com/Kamar-Folarin/ticket-sync/internal/utils"
)

const customFieldPrefix = "customfield_"

var timestampLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
}

// ParseTimestamp parses the timestamp formats Jira emits.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseOptionalTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return nil
	}
	return &t
}

// IssueToTicket maps a Jira issue to a ticket. Custom fields are decoded into
// the typed bag and the well-known ones are extracted.
func IssueToTicket(issue Issue) (*models.Ticket, error) {
	if issue.Key == "" {
		return nil, fmt.Errorf("issue %s has no key", issue.ID)
	}
	if !utils.IsValidIssueKey(issue.Key) {
		return nil, fmt.Errorf("issue %s has malformed key %q", issue.ID, issue.Key)
	}

	var fields issueFields
	if len(issue.Fields) > 0 {
		if err := json.Unmarshal(issue.Fields, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode fields of %s: %w", issue.Key, err)
		}
	}

	custom, err := decodeCustomFields(issue.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to decode custom fields of %s: %w", issue.Key, err)
	}

	ticket := &models.Ticket{
		Key:             issue.Key,
		Summary:         fields.Summary,
		Description:     DescriptionToPlainText(fields.Description),
		Labels:          fields.Labels,
		CustomFields:    custom,
		RemoteCreatedAt: parseOptionalTimestamp(fields.Created),
		RemoteUpdatedAt: parseOptionalTimestamp(fields.Updated),
	}
	if ticket.Labels == nil {
		ticket.Labels = []string{}
	}

	if fields.Project != nil && fields.Project.Key != "" {
		ticket.ProjectKey = fields.Project.Key
	} else if project, _, err := utils.ParseIssueKey(issue.Key); err == nil {
		ticket.ProjectKey = project
	}
	if fields.Status != nil {
		ticket.Status = fields.Status.Name
	}
	if fields.Priority != nil {
		ticket.Priority = fields.Priority.Name
	}
	if fields.IssueType != nil {
		ticket.IssueType = fields.IssueType.Name
	}
	if fields.Assignee != nil {
		ticket.Assignee = fields.Assignee.DisplayName
	}
	if fields.Reporter != nil {
		ticket.Reporter = fields.Reporter.DisplayName
	}

	ticket.Components = make([]string, 0, len(fields.Components))
	for _, c := range fields.Components {
		ticket.Components = append(ticket.Components, c.Name)
	}

	ticket.ExtractWellKnown()

	// Team-managed projects link epics through the parent instead of the epic link field.
	if ticket.EpicKey == "" && fields.Parent != nil && fields.Parent.Fields.IssueType != nil &&
		strings.EqualFold(fields.Parent.Fields.IssueType.Name, "Epic") {
		ticket.EpicKey = fields.Parent.Key
	}

	return ticket, nil
}

func decodeCustomFields(raw json.RawMessage) (models.CustomFields, error) {
	out := models.CustomFields{}
	if len(raw) == 0 {
		return out, nil
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, err
	}
	for key, value := range all {
		if !strings.HasPrefix(key, customFieldPrefix) {
			continue
		}
		var v models.FieldValue
		if err := v.UnmarshalJSON(value); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if v.Kind != "" {
			out[key] = v
		}
	}
	return out, nil
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

var adfBlockTypes = map[string]bool{
	"paragraph":   true,
	"heading":     true,
	"listItem":    true,
	"codeBlock":   true,
	"blockquote":  true,
	"tableRow":    true,
	"panel":       true,
	"mediaSingle": true,
}

// DescriptionToPlainText flattens an Atlassian Document Format value into
// text, one line per block. Plain string values are returned as-is.
func DescriptionToPlainText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Type != "doc" {
		return string(raw)
	}

	var lines []string
	var current strings.Builder
	flush := func() {
		if line := strings.TrimSpace(current.String()); line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(n adfNode)
	walk = func(n adfNode) {
		switch n.Type {
		case "text":
			current.WriteString(n.Text)
		case "hardBreak":
			flush()
		}
		for _, child := range n.Content {
			walk(child)
		}
		if adfBlockTypes[n.Type] {
			flush()
		}
	}
	walk(doc)
	flush()

	return strings.Join(lines, "\n")
}
