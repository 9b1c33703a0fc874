package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID     primitive.ObjectID `bson:"post_id" json:"post_id"`
	AuthorID   string             `bson:"author_id" json:"author_id"`
	Content    string             `bson:"content" json:"content"`
	LikesCount int64              `bson:"likes_count" json:"likes_count"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
