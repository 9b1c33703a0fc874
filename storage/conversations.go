package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusfeed/storage/models"
)

// countUnread is the watermark rule: messages strictly after last_read_at,
// not sent by the reader. Kept pure so the rule is testable without a store;
// unreadSince is its query form and must stay in step.
func countUnread(messages []models.Message, lastReadAt time.Time, userID string) int64 {
	var count int64
	for _, message := range messages {
		if message.SenderID != userID && message.CreatedAt.After(lastReadAt) {
			count++
		}
	}
	return count
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	models.Conversation `bson:",inline"`
	LastMessage         *models.Message `json:"last_message,omitempty"`
	UnreadCount         int64           `json:"unread_count"`
}

// CreateConversation opens a direct or group conversation. The creator must
// be a participant.
func (m *Manager) CreateConversation(
	ctx context.Context,
	convType models.ConversationType,
	name string,
	participantIDs []string,
) (models.Conversation, error) {
	if convType != models.ConversationDirect && convType != models.ConversationGroup {
		return models.Conversation{}, NewValidationError("unknown conversation type: " + string(convType))
	}
	if len(participantIDs) < 2 {
		return models.Conversation{}, NewValidationError("conversation needs at least two participants")
	}
	if convType == models.ConversationDirect && len(participantIDs) != 2 {
		return models.Conversation{}, NewValidationError("direct conversation has exactly two participants")
	}

	now := time.Now().UTC()
	conversation := models.Conversation{
		Type:           convType,
		Name:           name,
		ParticipantIDs: participantIDs,
		LastMessageAt:  now,
		CreatedAt:      now,
	}

	convColl := m.dbConnection.Collection(CollectionConversations)
	participantsColl := m.dbConnection.Collection(CollectionParticipants)

	err := m.executeTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		result, err := convColl.InsertOne(sc, conversation)
		if err != nil {
			return nil, err
		}
		conversation.ID = result.InsertedID.(primitive.ObjectID)

		for _, userID := range participantIDs {
			_, err = participantsColl.InsertOne(sc, models.Participant{
				ConversationID: conversation.ID,
				UserID:         userID,
				LastReadAt:     now,
			})
			if err != nil {
				return nil, err
			}
		}
		return result, nil
	})
	if err != nil {
		return models.Conversation{}, classify(err, "conversation", "")
	}
	return conversation, nil
}

// SendMessage inserts the message and advances the conversation's
// last-message timestamp with $max so concurrent sends cannot move it
// backwards.
func (m *Manager) SendMessage(
	ctx context.Context,
	conversationID string,
	senderID string,
	content string,
	media []models.MediaRef,
) (models.Message, error) {
	if strings.TrimSpace(content) == "" && len(media) == 0 {
		return models.Message{}, NewValidationError("empty message")
	}
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return models.Message{}, NewValidationError("malformed conversation id: " + conversationID)
	}
	if err := m.requireParticipant(ctx, oid, senderID); err != nil {
		return models.Message{}, err
	}

	message := models.Message{
		ConversationID: oid,
		SenderID:       senderID,
		Content:        content,
		Media:          media,
		CreatedAt:      time.Now().UTC(),
	}

	messagesColl := m.dbConnection.Collection(CollectionMessages)
	convColl := m.dbConnection.Collection(CollectionConversations)

	err = m.executeTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		result, err := messagesColl.InsertOne(sc, message)
		if err != nil {
			return nil, err
		}
		message.ID = result.InsertedID.(primitive.ObjectID)

		_, err = convColl.UpdateOne(
			sc,
			bson.M{"_id": oid},
			bson.M{"$max": bson.M{"last_message_at": message.CreatedAt}},
		)
		return result, err
	})
	if err != nil {
		return models.Message{}, classify(err, "message", conversationID)
	}
	return message, nil
}

// ListMessages returns a conversation's messages oldest first.
func (m *Manager) ListMessages(
	ctx context.Context,
	conversationID string,
	userID string,
	offset int64,
	limit int64,
) ([]models.Message, error) {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, NewValidationError("malformed conversation id: " + conversationID)
	}
	if err := m.requireParticipant(ctx, oid, userID); err != nil {
		return nil, err
	}

	cursor, err := m.dbConnection.Collection(CollectionMessages).Find(
		ctx,
		bson.M{"conversation_id": oid},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
			SetSkip(offset).
			SetLimit(limit),
	)
	if err != nil {
		return nil, classify(err, "messages", conversationID)
	}
	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, classify(err, "messages", conversationID)
	}
	return messages, nil
}

// UnreadCount counts messages after the reader's watermark that they did not
// send themselves.
func (m *Manager) UnreadCount(ctx context.Context, conversationID string, userID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return 0, NewValidationError("malformed conversation id: " + conversationID)
	}
	participant, err := m.getParticipant(ctx, oid, userID)
	if err != nil {
		return 0, err
	}
	return m.unreadSince(ctx, oid, userID, participant.LastReadAt)
}

// MarkRead advances last_read_at to server now. The timestamp is taken by
// the store, so a message inserted after this write stays unread even if the
// two race on the client side.
func (m *Manager) MarkRead(ctx context.Context, conversationID string, userID string) error {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return NewValidationError("malformed conversation id: " + conversationID)
	}
	if err := m.requireParticipant(ctx, oid, userID); err != nil {
		return err
	}

	_, err = m.dbConnection.Collection(CollectionParticipants).UpdateOne(
		ctx,
		bson.D{{Key: "conversation_id", Value: oid}, {Key: "user_id", Value: userID}},
		bson.M{"$currentDate": bson.M{"last_read_at": true}},
	)
	if err != nil {
		return classify(err, "participant", conversationID)
	}
	return nil
}

// ListConversations returns the user's conversations ordered by most recent
// message, each with its last message and unread count.
func (m *Manager) ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	convColl := m.dbConnection.Collection(CollectionConversations)

	cursor, err := convColl.Find(
		ctx,
		bson.M{"participant_ids": userID},
		options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}}),
	)
	if err != nil {
		return nil, classify(err, "conversations", userID)
	}
	var conversations []models.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, classify(err, "conversations", userID)
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summary := ConversationSummary{Conversation: conversation}

		var last models.Message
		err := m.dbConnection.Collection(CollectionMessages).FindOne(
			ctx,
			bson.M{"conversation_id": conversation.ID},
			options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
		).Decode(&last)
		if err == nil {
			summary.LastMessage = &last
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, classify(err, "messages", conversation.ID.Hex())
		}

		participant, err := m.getParticipant(ctx, conversation.ID, userID)
		if err != nil {
			return nil, err
		}
		unread, err := m.unreadSince(ctx, conversation.ID, userID, participant.LastReadAt)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetParticipantIDs returns the member ids of a conversation.
func (m *Manager) GetParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, NewValidationError("malformed conversation id: " + conversationID)
	}
	var conversation models.Conversation
	err = m.dbConnection.Collection(CollectionConversations).FindOne(
		ctx,
		bson.M{"_id": oid},
	).Decode(&conversation)
	if err != nil {
		return nil, classify(err, "conversation", conversationID)
	}
	return conversation.ParticipantIDs, nil
}

// unreadSince is the query form of countUnread; the two must stay in step.
func (m *Manager) unreadSince(
	ctx context.Context,
	conversationID primitive.ObjectID,
	userID string,
	lastReadAt time.Time,
) (int64, error) {
	count, err := m.dbConnection.Collection(CollectionMessages).CountDocuments(
		ctx,
		bson.M{
			"conversation_id": conversationID,
			"created_at":      bson.M{"$gt": lastReadAt},
			"sender_id":       bson.M{"$ne": userID},
		},
	)
	if err != nil {
		return 0, classify(err, "messages", conversationID.Hex())
	}
	return count, nil
}

func (m *Manager) getParticipant(
	ctx context.Context,
	conversationID primitive.ObjectID,
	userID string,
) (models.Participant, error) {
	var participant models.Participant
	err := m.dbConnection.Collection(CollectionParticipants).FindOne(
		ctx,
		bson.D{{Key: "conversation_id", Value: conversationID}, {Key: "user_id", Value: userID}},
	).Decode(&participant)
	if err != nil {
		return models.Participant{}, classify(err, "participant", conversationID.Hex())
	}
	return participant, nil
}

func (m *Manager) requireParticipant(
	ctx context.Context,
	conversationID primitive.ObjectID,
	userID string,
) error {
	_, err := m.getParticipant(ctx, conversationID, userID)
	return err
}
