package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

func ValidMediaKind(k MediaKind) bool {
	switch k {
	case MediaImage, MediaVideo:
		return true
	}
	return false
}

// MediaRef points at an already-uploaded object. Uploads happen outside this
// service; only the resulting URL travels through here.
type MediaRef struct {
	Kind         MediaKind `bson:"kind" json:"kind"`
	URL          string    `bson:"url" json:"url"`
	ThumbnailURL string    `bson:"thumbnail_url,omitempty" json:"thumbnail_url,omitempty"`
}

type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityFollowers Visibility = "followers"
	VisibilityPrivate   Visibility = "private"
)

func ValidVisibility(v Visibility) bool {
	switch v {
	case VisibilityPublic, VisibilityFollowers, VisibilityPrivate:
		return true
	}
	return false
}

type Post struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID      string             `bson:"author_id" json:"author_id"`
	Content       string             `bson:"content" json:"content"`
	Media         []MediaRef         `bson:"media,omitempty" json:"media,omitempty"`
	Visibility    Visibility         `bson:"visibility" json:"visibility"`
	LikesCount    int64              `bson:"likes_count" json:"likes_count"`
	CommentsCount int64              `bson:"comments_count" json:"comments_count"`
	SharesCount   int64              `bson:"shares_count" json:"shares_count"`
	ViewsCount    int64              `bson:"views_count" json:"views_count"`
	CampusID      string             `bson:"campus_id,omitempty" json:"campus_id,omitempty"`
	DepartmentID  string             `bson:"department_id,omitempty" json:"department_id,omitempty"`
	Hashtags      []string           `bson:"hashtags,omitempty" json:"hashtags,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// SavedPost is a bookmark. Composite key (post_id, user_id).
type SavedPost struct {
	PostID    primitive.ObjectID `bson:"post_id" json:"post_id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type Follow struct {
	AuthorID  string    `bson:"author_id" json:"author_id"`
	SubjectID string    `bson:"subject_id" json:"subject_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
