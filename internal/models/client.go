package models

// Client owns the tickets of one remote project.
type Client struct {
	BaseModel
	Name       string `json:"name"`
	ProjectKey string `json:"projectKey"`
}

// Project is a remote project as reported by the ticket source.
type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}
