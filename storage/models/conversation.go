package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

type Conversation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type           ConversationType   `bson:"type" json:"type"`
	Name           string             `bson:"name,omitempty" json:"name,omitempty"`
	ParticipantIDs []string           `bson:"participant_ids" json:"participant_ids"`
	LastMessageAt  time.Time          `bson:"last_message_at" json:"last_message_at"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// Participant carries the per-user read watermark. Only that user advances
// last_read_at.
type Participant struct {
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversation_id"`
	UserID         string             `bson:"user_id" json:"user_id"`
	LastReadAt     time.Time          `bson:"last_read_at" json:"last_read_at"`
}

type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversation_id"`
	SenderID       string             `bson:"sender_id" json:"sender_id"`
	Content        string             `bson:"content" json:"content"`
	Media          []MediaRef         `bson:"media,omitempty" json:"media,omitempty"`
	IsRead         bool               `bson:"is_read" json:"is_read"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
