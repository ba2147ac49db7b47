package types

import (
	"encoding/json"
	"time"
)

// User represents a registered maker account.
// It carries the public profile, social counters and the lists that later
// features append to.
type User struct {
	// ID is the unique identifier of the user. It is rendered as a string
	// and omitted from responses when zeroed.
	ID int64 `json:"id,string,omitempty" db:"id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Bio is free-form profile text.
	Bio string `json:"bio" db:"bio"`

	// Avatar is the URL of the profile picture.
	Avatar string `json:"avatar" db:"avatar"`

	// Level is the self-reported maker level (e.g. "Beginner").
	Level string `json:"level" db:"level"`

	// Projects counts projects published by the user.
	Projects int `json:"projects" db:"projects"`

	// Followers counts accounts following the user.
	Followers int `json:"followers" db:"followers"`

	// Following counts accounts the user follows.
	Following int `json:"following" db:"following"`

	// JoinedDate is the timestamp at which the account was created.
	JoinedDate time.Time `json:"joinedDate" db:"joined_date"`

	// Badges are achievement names awarded to the user.
	Badges []string `json:"badges" db:"badges"`

	// CompletedProjects are opaque project documents the user finished.
	CompletedProjects []json.RawMessage `json:"completedProjects" db:"completed_projects"`

	// SavedItems are opaque documents bookmarked by the user.
	SavedItems []json.RawMessage `json:"savedItems" db:"saved_items"`

	// ActivityFeed lists the user's recent activity, oldest first.
	ActivityFeed []Activity `json:"activityFeed" db:"activity_feed"`
}

// Activity is a single entry in a user's activity feed.
type Activity struct {
	Type      string    `json:"type"`
	ProjectID int64     `json:"projectId,string,omitempty"`
	Title     string    `json:"title,omitempty"`
	At        time.Time `json:"at"`
}

// ActivityProjectPublished marks an activity created when the user publishes a project.
const ActivityProjectPublished = "project_published"
