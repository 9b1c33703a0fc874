package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	log "github.com/sirupsen/logrus"
)

// ReconcilePostCounters re-derives the denormalized reaction and comment
// counters from the authoritative rows for posts touched since the given
// instant. Counters drift only if a transaction was interrupted mid-flight;
// this closes the gap within one reconciliation cycle.
func (m *Manager) ReconcilePostCounters(ctx context.Context, since time.Time) error {
	postsColl := m.dbConnection.Collection(CollectionPosts)

	cursor, err := postsColl.Find(
		ctx,
		bson.M{"updated_at": bson.M{"$gte": since}},
	)
	if err != nil {
		return classify(err, "posts", "")
	}

	type idRow struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	var rows []idRow
	if err := cursor.All(ctx, &rows); err != nil {
		return classify(err, "posts", "")
	}

	for _, row := range rows {
		reactions, err := m.dbConnection.Collection(CollectionReactions).CountDocuments(
			ctx,
			bson.M{"post_id": row.ID},
		)
		if err != nil {
			return classify(err, "reactions", row.ID.Hex())
		}
		comments, err := m.dbConnection.Collection(CollectionComments).CountDocuments(
			ctx,
			bson.M{"post_id": row.ID},
		)
		if err != nil {
			return classify(err, "comments", row.ID.Hex())
		}

		result, err := postsColl.UpdateOne(
			ctx,
			bson.M{
				"_id": row.ID,
				"$or": []bson.M{
					{"likes_count": bson.M{"$ne": reactions}},
					{"comments_count": bson.M{"$ne": comments}},
				},
			},
			bson.M{"$set": bson.M{"likes_count": reactions, "comments_count": comments}},
		)
		if err != nil {
			return classify(err, "post", row.ID.Hex())
		}
		if result.ModifiedCount > 0 {
			log.Warningf(
				"Reconciled drifted counters for post %s (reactions=%d comments=%d)",
				row.ID.Hex(), reactions, comments,
			)
		}
	}
	return nil
}
