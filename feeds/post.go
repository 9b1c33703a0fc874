package feeds

import (
	"campusfeed/storage/models"
)

// Post is one hydrated feed row: the post itself, the author snapshot and
// the viewer's own decoration, so the caller renders without extra lookups.
type Post struct {
	models.Post
	Author         models.Author       `json:"author"`
	ViewerReaction models.ReactionKind `json:"viewer_reaction"`
	Saved          bool                `json:"saved"`
}

type QueryParams struct {
	ViewerID     string
	CampusID     string
	DepartmentID string
	Limit        int64
	Cursor       string
}

type Response struct {
	Cursor string `json:"cursor"`
	Posts  []Post `json:"feed"`
}
