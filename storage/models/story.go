package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Story struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID   string             `bson:"author_id" json:"author_id"`
	Media      MediaRef           `bson:"media" json:"media"`
	Caption    string             `bson:"caption,omitempty" json:"caption,omitempty"`
	CampusID   string             `bson:"campus_id,omitempty" json:"campus_id,omitempty"`
	ViewsCount int64              `bson:"views_count" json:"views_count"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	ExpiresAt  time.Time          `bson:"expires_at" json:"expires_at"`
}

// Active reports whether the story is still visible at the given instant.
// A story whose expiry equals now is already gone.
func (s *Story) Active(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// StoryView keeps at most one row per (story, viewer); the first view wins.
type StoryView struct {
	StoryID   primitive.ObjectID `bson:"story_id" json:"story_id"`
	ViewerID  string             `bson:"viewer_id" json:"viewer_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
