package storage

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusfeed/storage/models"
)

// CreateComment inserts the comment and bumps the post's comments counter in
// one transaction.
func (m *Manager) CreateComment(
	ctx context.Context,
	postID string,
	authorID string,
	content string,
) (models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return models.Comment{}, NewValidationError("empty comment")
	}
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return models.Comment{}, NewValidationError("malformed post id: " + postID)
	}

	comment := models.Comment{
		PostID:    oid,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	commentsColl := m.dbConnection.Collection(CollectionComments)
	postsColl := m.dbConnection.Collection(CollectionPosts)

	err = m.executeTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		result, err := postsColl.UpdateOne(
			sc,
			bson.M{"_id": oid},
			bson.M{"$inc": bson.M{"comments_count": 1}},
		)
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, NewNotFoundError("post", postID)
		}

		inserted, err := commentsColl.InsertOne(sc, comment)
		if err != nil {
			return nil, err
		}
		comment.ID = inserted.InsertedID.(primitive.ObjectID)
		return inserted, nil
	})
	if err != nil {
		return models.Comment{}, classify(err, "comment", postID)
	}
	return comment, nil
}

// ListComments returns a post's comments in creation order.
func (m *Manager) ListComments(
	ctx context.Context,
	postID string,
	offset int64,
	limit int64,
) ([]models.Comment, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, NewValidationError("malformed post id: " + postID)
	}

	cursor, err := m.dbConnection.Collection(CollectionComments).Find(
		ctx,
		bson.M{"post_id": oid},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
			SetSkip(offset).
			SetLimit(limit),
	)
	if err != nil {
		return nil, classify(err, "comments", postID)
	}
	var comments []models.Comment
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, classify(err, "comments", postID)
	}
	return comments, nil
}

// LikeComment bumps a comment's like counter.
func (m *Manager) LikeComment(ctx context.Context, commentID string) error {
	oid, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return NewValidationError("malformed comment id: " + commentID)
	}
	result, err := m.dbConnection.Collection(CollectionComments).UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"likes_count": 1}},
	)
	if err != nil {
		return classify(err, "comment", commentID)
	}
	if result.MatchedCount == 0 {
		return NewNotFoundError("comment", commentID)
	}
	return nil
}
