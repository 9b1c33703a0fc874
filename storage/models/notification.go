package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationKind string

const (
	NotificationReacted   NotificationKind = "reacted"
	NotificationCommented NotificationKind = "commented"
	NotificationMentioned NotificationKind = "mentioned"
	NotificationFollowed  NotificationKind = "followed"
)

func ValidNotificationKind(k NotificationKind) bool {
	switch k {
	case NotificationReacted, NotificationCommented, NotificationMentioned, NotificationFollowed:
		return true
	}
	return false
}

// Event describes a single qualifying user action handed to the fan-out.
// OwnerID is the user who owns the target (post author, comment author, or
// the followed user).
type Event struct {
	Kind      NotificationKind
	ActorID   string
	OwnerID   string
	PostID    primitive.ObjectID
	CommentID primitive.ObjectID
	Preview   string
}

type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientID string             `bson:"recipient_id" json:"recipient_id"`
	Kind        NotificationKind   `bson:"kind" json:"kind"`
	ActorID     string             `bson:"actor_id" json:"actor_id"`
	PostID      primitive.ObjectID `bson:"post_id,omitempty" json:"post_id,omitempty"`
	CommentID   primitive.ObjectID `bson:"comment_id,omitempty" json:"comment_id,omitempty"`
	Preview     string             `bson:"preview,omitempty" json:"preview,omitempty"`
	Read        bool               `bson:"read" json:"read"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// PushSubscription stores one browser push endpoint for a user.
type PushSubscription struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	Endpoint  string    `bson:"endpoint" json:"endpoint"`
	P256dh    string    `bson:"p256dh" json:"p256dh"`
	Auth      string    `bson:"auth" json:"auth"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
