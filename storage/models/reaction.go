package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReactionKind string

const (
	ReactionNone  ReactionKind = "none"
	ReactionLike  ReactionKind = "like"
	ReactionLove  ReactionKind = "love"
	ReactionLaugh ReactionKind = "laugh"
	ReactionWow   ReactionKind = "wow"
	ReactionSad   ReactionKind = "sad"
	ReactionAngry ReactionKind = "angry"
)

// ValidReactionKind reports whether k names an actual reaction.
// ReactionNone is a valid request value (explicit removal) but never a
// stored one.
func ValidReactionKind(k ReactionKind) bool {
	switch k {
	case ReactionLike, ReactionLove, ReactionLaugh, ReactionWow, ReactionSad, ReactionAngry:
		return true
	}
	return false
}

// Reaction keeps at most one row per (post, user); a new kind from the same
// user replaces the previous row in place.
type Reaction struct {
	PostID    primitive.ObjectID `bson:"post_id" json:"post_id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Kind      ReactionKind       `bson:"kind" json:"kind"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// ReactionResult is what the caller reconciles its optimistic update with.
type ReactionResult struct {
	State ReactionKind `json:"state"`
	Count int64        `json:"count"`
}
