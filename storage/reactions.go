package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"campusfeed/storage/models"
)

type reactionAction int

const (
	reactionNoop reactionAction = iota
	reactionInsert
	reactionReplace
	reactionRemove
)

type reactionTransition struct {
	action       reactionAction
	counterDelta int64
	finalState   models.ReactionKind
}

// transitionFor decides what a reaction request does given the prior state.
// Re-submitting the recorded kind toggles it off; a different kind replaces
// in place without touching the counter; "none" removes.
func transitionFor(prior, requested models.ReactionKind) reactionTransition {
	switch {
	case prior == models.ReactionNone && requested == models.ReactionNone:
		return reactionTransition{reactionNoop, 0, models.ReactionNone}
	case prior == models.ReactionNone:
		return reactionTransition{reactionInsert, 1, requested}
	case requested == models.ReactionNone, requested == prior:
		return reactionTransition{reactionRemove, -1, models.ReactionNone}
	default:
		return reactionTransition{reactionReplace, 0, requested}
	}
}

// counterUpdateError interprets the post counter update inside the reaction
// transaction. An increment that matched nothing means the post is gone;
// a guarded decrement legitimately matches nothing when the counter already
// sits at zero.
func counterUpdateError(delta int64, matched int64, postID primitive.ObjectID) error {
	if delta > 0 && matched == 0 {
		return NewNotFoundError("post", postID.Hex())
	}
	return nil
}

// SetReaction applies the one-reaction-per-user-per-post state machine and
// returns the authoritative state plus counter for optimistic reconciliation.
// A duplicate-key race (two first reactions from the same user colliding) is
// resolved by re-reading the winner's row and retrying once.
func (m *Manager) SetReaction(
	ctx context.Context,
	postID string,
	userID string,
	kind models.ReactionKind,
) (models.ReactionResult, error) {
	if kind != models.ReactionNone && !models.ValidReactionKind(kind) {
		return models.ReactionResult{}, NewValidationError("unknown reaction kind: " + string(kind))
	}
	if userID == "" {
		return models.ReactionResult{}, NewValidationError("missing user id")
	}
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return models.ReactionResult{}, NewValidationError("malformed post id: " + postID)
	}

	result, err := m.setReactionOnce(ctx, oid, userID, kind)
	if err != nil && KindOf(err) == KindConflict {
		// Someone else's write landed first for this key. The state machine
		// is re-evaluated against what they left behind.
		result, err = m.setReactionOnce(ctx, oid, userID, kind)
	}
	return result, err
}

func (m *Manager) setReactionOnce(
	ctx context.Context,
	postID primitive.ObjectID,
	userID string,
	kind models.ReactionKind,
) (models.ReactionResult, error) {
	reactionsColl := m.dbConnection.Collection(CollectionReactions)
	postsColl := m.dbConnection.Collection(CollectionPosts)
	key := bson.D{{Key: "post_id", Value: postID}, {Key: "user_id", Value: userID}}

	var tr reactionTransition
	counterApplied := false
	err := m.executeTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var prior models.Reaction
		priorKind := models.ReactionNone
		err := reactionsColl.FindOne(sc, key).Decode(&prior)
		switch {
		case err == nil:
			priorKind = prior.Kind
		case errors.Is(err, mongo.ErrNoDocuments):
		default:
			return nil, err
		}

		tr = transitionFor(priorKind, kind)

		// Counter first, so a reaction against a deleted post aborts before
		// any row is written instead of committing an orphan.
		if tr.counterDelta != 0 {
			filter := bson.M{"_id": postID}
			if tr.counterDelta < 0 {
				// Never decrement below zero.
				filter["likes_count"] = bson.M{"$gt": 0}
			}
			result, err := postsColl.UpdateOne(sc, filter, bson.M{"$inc": bson.M{"likes_count": tr.counterDelta}})
			if err != nil {
				return nil, err
			}
			if err := counterUpdateError(tr.counterDelta, result.MatchedCount, postID); err != nil {
				return nil, err
			}
			counterApplied = result.MatchedCount > 0
		}

		switch tr.action {
		case reactionInsert:
			_, err = reactionsColl.InsertOne(sc, models.Reaction{
				PostID:    postID,
				UserID:    userID,
				Kind:      kind,
				CreatedAt: time.Now().UTC(),
			})
		case reactionReplace:
			_, err = reactionsColl.UpdateOne(sc, key, bson.M{"$set": bson.M{"kind": kind}})
		case reactionRemove:
			_, err = reactionsColl.DeleteOne(sc, key)
		}
		return nil, err
	})
	if err != nil {
		return models.ReactionResult{}, classify(err, "reaction", postID.Hex())
	}

	if counterApplied {
		m.postsCache.AddReaction(postID.Hex(), tr.counterDelta)
	}

	// Serve the live counter from the cache during reaction bursts; on a
	// miss, re-read the authoritative row and seed it.
	if count, ok := m.postsCache.GetReactionsCount(postID.Hex()); ok {
		return models.ReactionResult{State: tr.finalState, Count: count}, nil
	}
	var post models.Post
	if err := postsColl.FindOne(ctx, bson.M{"_id": postID}).Decode(&post); err != nil {
		return models.ReactionResult{}, classify(err, "post", postID.Hex())
	}
	m.postsCache.SetReactionsCount(postID.Hex(), post.LikesCount)

	return models.ReactionResult{State: tr.finalState, Count: post.LikesCount}, nil
}

// GetReaction returns the viewer's recorded reaction for a post, or none.
func (m *Manager) GetReaction(
	ctx context.Context,
	postID string,
	userID string,
) (models.ReactionKind, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return models.ReactionNone, NewValidationError("malformed post id: " + postID)
	}

	var reaction models.Reaction
	err = m.dbConnection.Collection(CollectionReactions).FindOne(
		ctx,
		bson.D{{Key: "post_id", Value: oid}, {Key: "user_id", Value: userID}},
	).Decode(&reaction)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ReactionNone, nil
	}
	if err != nil {
		return models.ReactionNone, classify(err, "reaction", postID)
	}
	return reaction.Kind, nil
}
