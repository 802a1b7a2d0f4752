package jira

import "encoding/json"

// Issue is a Jira issue as returned by the search API. Fields is kept raw so
// custom fields can be decoded alongside the system ones.
type Issue struct {
	ID     string          `json:"id"`
	Key    string          `json:"key"`
	Fields json.RawMessage `json:"fields"`
}

type issueFields struct {
	Summary     string          `json:"summary"`
	Description json.RawMessage `json:"description"`
	Status      *namedField     `json:"status"`
	Priority    *namedField     `json:"priority"`
	IssueType   *namedField     `json:"issuetype"`
	Project     *projectField   `json:"project"`
	Assignee    *userField      `json:"assignee"`
	Reporter    *userField      `json:"reporter"`
	Components  []namedField    `json:"components"`
	Labels      []string        `json:"labels"`
	Parent      *parentField    `json:"parent"`
	Created     string          `json:"created"`
	Updated     string          `json:"updated"`
}

type namedField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type projectField struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type userField struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

type parentField struct {
	Key    string `json:"key"`
	Fields struct {
		IssueType *namedField `json:"issuetype"`
	} `json:"fields"`
}

// myselfResult is the authenticated user. TimeZone is the IANA zone JQL date
// literals are interpreted in.
type myselfResult struct {
	AccountID string `json:"accountId"`
	TimeZone  string `json:"timeZone"`
}

type searchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

type projectPage struct {
	StartAt    int            `json:"startAt"`
	MaxResults int            `json:"maxResults"`
	Total      int            `json:"total"`
	IsLast     bool           `json:"isLast"`
	Values     []projectField `json:"values"`
}
