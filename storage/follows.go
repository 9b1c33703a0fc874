package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusfeed/storage/models"
)

// CreateFollow records author following subject and keeps the denormalized
// follow counters in step. Following twice is a no-op.
func (m *Manager) CreateFollow(ctx context.Context, authorID, subjectID string) error {
	if authorID == "" || subjectID == "" {
		return NewValidationError("missing user id")
	}
	if authorID == subjectID {
		return NewValidationError("cannot follow yourself")
	}

	usersColl := m.dbConnection.Collection(CollectionUsers)
	followsColl := m.dbConnection.Collection(CollectionFollows)

	err := m.executeTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		result, err := followsColl.UpdateOne(
			sc,
			bson.D{{Key: "author_id", Value: authorID}, {Key: "subject_id", Value: subjectID}},
			bson.M{"$setOnInsert": bson.M{"created_at": time.Now().UTC()}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return nil, err
		}

		if result.UpsertedCount > 0 {
			_, err = usersColl.UpdateOne(
				sc,
				bson.D{{Key: "_id", Value: authorID}},
				bson.D{{Key: "$inc", Value: bson.D{{Key: "follows_count", Value: 1}}}},
			)
			if err != nil {
				return nil, err
			}
			_, err = usersColl.UpdateOne(
				sc,
				bson.D{{Key: "_id", Value: subjectID}},
				bson.D{{Key: "$inc", Value: bson.D{{Key: "followers_count", Value: 1}}}},
			)
		}
		return result, err
	})
	if err != nil {
		return classify(err, "follow", authorID+"/"+subjectID)
	}
	return nil
}

func (m *Manager) DeleteFollow(ctx context.Context, authorID, subjectID string) error {
	usersColl := m.dbConnection.Collection(CollectionUsers)
	followsColl := m.dbConnection.Collection(CollectionFollows)

	err := m.executeTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		result, err := followsColl.DeleteOne(
			sc,
			bson.D{{Key: "author_id", Value: authorID}, {Key: "subject_id", Value: subjectID}},
		)
		if err != nil {
			return nil, err
		}
		if result.DeletedCount == 0 {
			return result, nil
		}

		_, err = usersColl.UpdateOne(
			sc,
			bson.D{{Key: "_id", Value: authorID}, {Key: "follows_count", Value: bson.D{{Key: "$gt", Value: 0}}}},
			bson.D{{Key: "$inc", Value: bson.D{{Key: "follows_count", Value: -1}}}},
		)
		if err != nil {
			return nil, err
		}
		_, err = usersColl.UpdateOne(
			sc,
			bson.D{{Key: "_id", Value: subjectID}, {Key: "followers_count", Value: bson.D{{Key: "$gt", Value: 0}}}},
			bson.D{{Key: "$inc", Value: bson.D{{Key: "followers_count", Value: -1}}}},
		)
		return result, err
	})
	if err != nil {
		return classify(err, "follow", authorID+"/"+subjectID)
	}
	return nil
}

// GetFollowedIDs returns the ids a user follows, for personalized feed
// composition.
func (m *Manager) GetFollowedIDs(ctx context.Context, userID string) ([]string, error) {
	cursor, err := m.dbConnection.Collection(CollectionFollows).Find(
		ctx,
		bson.D{{Key: "author_id", Value: userID}},
	)
	if err != nil {
		return nil, classify(err, "follows", userID)
	}
	var follows []models.Follow
	if err := cursor.All(ctx, &follows); err != nil {
		return nil, classify(err, "follows", userID)
	}

	subjectIDs := make([]string, len(follows))
	for i, follow := range follows {
		subjectIDs[i] = follow.SubjectID
	}
	return subjectIDs, nil
}
