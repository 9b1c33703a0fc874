package storage

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusfeed/storage/models"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// extractMentions returns the deduplicated usernames referenced in content.
func extractMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	usernames := make([]string, 0, len(matches))
	for _, match := range matches {
		if !seen[match[1]] {
			seen[match[1]] = true
			usernames = append(usernames, match[1])
		}
	}
	return usernames
}

// shouldNotify filters out self-notifications and malformed events.
func shouldNotify(event models.Event) bool {
	if !models.ValidNotificationKind(event.Kind) {
		return false
	}
	if event.ActorID == "" || event.OwnerID == "" {
		return false
	}
	return event.ActorID != event.OwnerID
}

// Notify records exactly one notification for a qualifying event. Delivery
// happens downstream: the realtime propagator watches this collection and
// pushes the insert to connected clients and push subscriptions.
func (m *Manager) Notify(ctx context.Context, event models.Event) (models.Notification, bool, error) {
	if !shouldNotify(event) {
		return models.Notification{}, false, nil
	}

	notification := models.Notification{
		RecipientID: event.OwnerID,
		Kind:        event.Kind,
		ActorID:     event.ActorID,
		PostID:      event.PostID,
		CommentID:   event.CommentID,
		Preview:     event.Preview,
		CreatedAt:   time.Now().UTC(),
	}

	result, err := m.dbConnection.Collection(CollectionNotifications).InsertOne(ctx, notification)
	if err != nil {
		return models.Notification{}, false, classify(err, "notification", "")
	}
	notification.ID = result.InsertedID.(primitive.ObjectID)
	return notification, true, nil
}

// NotifyMentions fans out one mention notification per resolvable @username
// in content, skipping the actor themselves.
func (m *Manager) NotifyMentions(
	ctx context.Context,
	actorID string,
	postID primitive.ObjectID,
	content string,
) error {
	for _, username := range extractMentions(content) {
		user, err := m.GetUserByUsername(ctx, username)
		if err != nil {
			if KindOf(err) == KindNotFound {
				continue
			}
			return err
		}
		_, _, err = m.Notify(ctx, models.Event{
			Kind:    models.NotificationMentioned,
			ActorID: actorID,
			OwnerID: user.ID,
			PostID:  postID,
			Preview: content,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ListNotifications returns a recipient's notifications newest first.
func (m *Manager) ListNotifications(
	ctx context.Context,
	recipientID string,
	offset int64,
	limit int64,
) ([]models.Notification, error) {
	cursor, err := m.dbConnection.Collection(CollectionNotifications).Find(
		ctx,
		bson.M{"recipient_id": recipientID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetSkip(offset).
			SetLimit(limit),
	)
	if err != nil {
		return nil, classify(err, "notifications", recipientID)
	}
	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, classify(err, "notifications", recipientID)
	}
	return notifications, nil
}

// MarkNotificationRead flips the read flag; only the recipient may do so.
func (m *Manager) MarkNotificationRead(ctx context.Context, notificationID string, recipientID string) error {
	oid, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return NewValidationError("malformed notification id: " + notificationID)
	}

	result, err := m.dbConnection.Collection(CollectionNotifications).UpdateOne(
		ctx,
		bson.M{"_id": oid, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return classify(err, "notification", notificationID)
	}
	if result.MatchedCount == 0 {
		return NewNotFoundError("notification", notificationID)
	}
	return nil
}

// SavePushSubscription upserts a browser push endpoint for a user.
func (m *Manager) SavePushSubscription(ctx context.Context, sub models.PushSubscription) error {
	if sub.UserID == "" || sub.Endpoint == "" {
		return NewValidationError("push subscription needs user and endpoint")
	}
	_, err := m.dbConnection.Collection(CollectionPushSubscriptions).UpdateOne(
		ctx,
		bson.D{{Key: "user_id", Value: sub.UserID}, {Key: "endpoint", Value: sub.Endpoint}},
		bson.M{
			"$set":         bson.M{"p256dh": sub.P256dh, "auth": sub.Auth},
			"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return classify(err, "push subscription", sub.UserID)
	}
	return nil
}

func (m *Manager) DeletePushSubscription(ctx context.Context, userID string, endpoint string) error {
	_, err := m.dbConnection.Collection(CollectionPushSubscriptions).DeleteOne(
		ctx,
		bson.D{{Key: "user_id", Value: userID}, {Key: "endpoint", Value: endpoint}},
	)
	if err != nil {
		return classify(err, "push subscription", userID)
	}
	return nil
}

func (m *Manager) GetPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	cursor, err := m.dbConnection.Collection(CollectionPushSubscriptions).Find(
		ctx,
		bson.D{{Key: "user_id", Value: userID}},
	)
	if err != nil {
		return nil, classify(err, "push subscriptions", userID)
	}
	var subs []models.PushSubscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, classify(err, "push subscriptions", userID)
	}
	return subs, nil
}
