package types

import "time"

// ProjectPublishedEvent is broadcast after a project is stored.
type ProjectPublishedEvent struct {
	ProjectID   int64         `json:"projectId,string"`
	Title       string        `json:"title"`
	ProjectName string        `json:"projectName"`
	Author      ProjectAuthor `json:"author"`
	PublishedAt time.Time     `json:"publishedAt"`
}
