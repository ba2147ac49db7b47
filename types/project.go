package types

import "time"

// Project represents a maker project post shown in the community feed.
type Project struct {
	// ID is the unique identifier of the project, rendered as a string.
	ID int64 `json:"id,string" db:"id"`

	// Author is a denormalized copy of the publisher's profile at publish time.
	Author ProjectAuthor `json:"user" db:"author"`

	// Title is the headline of the post.
	Title string `json:"title" db:"title"`

	// Content is the body text of the post.
	Content string `json:"content" db:"content"`

	// Image is a URL (or data string) of the post's picture.
	Image string `json:"image" db:"image"`

	// ProjectName names the project being shown off.
	ProjectName string `json:"projectName" db:"project_name"`

	// Tags are free-form labels attached to the post.
	Tags []string `json:"tags" db:"tags"`

	// Likes counts likes on the post. Never negative.
	Likes int `json:"likes" db:"likes"`

	// Comments counts comments on the post. Never negative.
	Comments int `json:"comments" db:"comments"`

	// CreatedAt is the timestamp at which the project was published.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ProjectAuthor is the author summary embedded in a project.
type ProjectAuthor struct {
	Name   string `json:"name" db:"author_name"`
	Avatar string `json:"avatar" db:"author_avatar"`
	Level  string `json:"level" db:"author_level"`

	// Username links the post back to an account for activity tracking.
	// Optional: older clients only send name, avatar and level.
	Username string `json:"username,omitempty" db:"author_username"`
}
