package models

import "time"

// User holds the profile row for an authenticated identity. The id itself is
// issued by the external auth collaborator and stored verbatim.
type User struct {
	ID             string    `bson:"_id" json:"id"`
	Username       string    `bson:"username" json:"username"`
	FullName       string    `bson:"full_name" json:"full_name"`
	AvatarURL      string    `bson:"avatar_url" json:"avatar_url"`
	IsVerified     bool      `bson:"is_verified" json:"is_verified"`
	CampusID       string    `bson:"campus_id" json:"campus_id"`
	DepartmentID   string    `bson:"department_id" json:"department_id"`
	FollowersCount int64     `bson:"followers_count" json:"followers_count"`
	FollowsCount   int64     `bson:"follows_count" json:"follows_count"`
	PostsCount     int64     `bson:"posts_count" json:"posts_count"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// Author is the denormalized snapshot embedded in feed and story rows so
// callers do not need a second lookup per post.
type Author struct {
	ID         string `bson:"id" json:"id"`
	Username   string `bson:"username" json:"username"`
	FullName   string `bson:"full_name" json:"full_name"`
	AvatarURL  string `bson:"avatar_url" json:"avatar_url"`
	IsVerified bool   `bson:"is_verified" json:"is_verified"`
}

func (u *User) Snapshot() Author {
	return Author{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		AvatarURL:  u.AvatarURL,
		IsVerified: u.IsVerified,
	}
}
