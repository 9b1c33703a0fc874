package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusfeed/storage/models"
)

// StoryWithAuthor is a listing row: the story plus its author snapshot and
// whether the requesting viewer has already seen it.
type StoryWithAuthor struct {
	models.Story `bson:",inline"`
	Author       models.Author `json:"author"`
	Viewed       bool          `json:"viewed"`
}

// CreateStory opens a story that stays visible for ttl; zero ttl means the
// configured default (24h).
func (m *Manager) CreateStory(
	ctx context.Context,
	authorID string,
	media models.MediaRef,
	caption string,
	campusID string,
	ttl time.Duration,
) (models.Story, error) {
	if authorID == "" {
		return models.Story{}, NewValidationError("missing author id")
	}
	if !models.ValidMediaKind(media.Kind) {
		return models.Story{}, NewValidationError("unknown media kind: " + string(media.Kind))
	}
	if media.URL == "" {
		return models.Story{}, NewValidationError("story needs a media reference")
	}
	if ttl <= 0 {
		ttl = m.storyTTL
	}

	now := time.Now().UTC()
	story := models.Story{
		AuthorID:  authorID,
		Media:     media,
		Caption:   caption,
		CampusID:  campusID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	result, err := m.dbConnection.Collection(CollectionStories).InsertOne(ctx, story)
	if err != nil {
		return models.Story{}, classify(err, "story", "")
	}
	story.ID = result.InsertedID.(primitive.ObjectID)
	return story, nil
}

// ListActiveStories returns unexpired stories for a scope, newest first.
// Expiry is evaluated here at read time; a row past its expiry never comes
// back even if the cleaner has not deleted it yet.
func (m *Manager) ListActiveStories(
	ctx context.Context,
	viewerID string,
	campusID string,
	limit int64,
) ([]StoryWithAuthor, error) {
	filter := bson.M{"expires_at": bson.M{"$gt": time.Now().UTC()}}
	if campusID != "" {
		filter["campus_id"] = campusID
	}

	cursor, err := m.dbConnection.Collection(CollectionStories).Find(
		ctx,
		filter,
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, classify(err, "stories", "")
	}
	var stories []models.Story
	if err := cursor.All(ctx, &stories); err != nil {
		return nil, classify(err, "stories", "")
	}
	if len(stories) == 0 {
		return nil, nil
	}

	authorIDs := make([]string, 0, len(stories))
	storyIDs := make([]primitive.ObjectID, 0, len(stories))
	for _, story := range stories {
		authorIDs = append(authorIDs, story.AuthorID)
		storyIDs = append(storyIDs, story.ID)
	}

	authors, err := m.GetAuthors(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	viewed, err := m.getViewedStories(ctx, viewerID, storyIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]StoryWithAuthor, len(stories))
	for i, story := range stories {
		rows[i] = StoryWithAuthor{
			Story:  story,
			Author: authors[story.AuthorID],
			Viewed: viewed[story.ID] || story.AuthorID == viewerID,
		}
	}
	return rows, nil
}

// RecordStoryView registers the first view per (story, viewer); repeats are
// no-ops. Returns true on the first view. The author's own views are never
// tracked.
func (m *Manager) RecordStoryView(ctx context.Context, storyID string, viewerID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(storyID)
	if err != nil {
		return false, NewValidationError("malformed story id: " + storyID)
	}
	if viewerID == "" {
		return false, NewValidationError("missing viewer id")
	}

	var story models.Story
	err = m.dbConnection.Collection(CollectionStories).FindOne(ctx, bson.M{"_id": oid}).Decode(&story)
	if err != nil {
		return false, classify(err, "story", storyID)
	}
	if !story.Active(time.Now().UTC()) {
		return false, NewNotFoundError("story", storyID)
	}
	if story.AuthorID == viewerID {
		return false, nil
	}

	result, err := m.dbConnection.Collection(CollectionStoryViews).UpdateOne(
		ctx,
		bson.D{{Key: "story_id", Value: oid}, {Key: "viewer_id", Value: viewerID}},
		bson.M{"$setOnInsert": bson.M{"created_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Concurrent first views collapse to one row; first one wins.
			return false, nil
		}
		return false, classify(err, "story view", storyID)
	}
	if result.UpsertedCount == 0 {
		return false, nil
	}

	_, err = m.dbConnection.Collection(CollectionStories).UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"views_count": 1}},
	)
	if err != nil {
		return true, classify(err, "story", storyID)
	}
	return true, nil
}

// DeleteExpiredStories physically removes stories past expiry plus their
// view rows. Listings never depend on this; it only reclaims space.
func (m *Manager) DeleteExpiredStories(ctx context.Context) (int64, error) {
	storiesColl := m.dbConnection.Collection(CollectionStories)
	viewsColl := m.dbConnection.Collection(CollectionStoryViews)

	cursor, err := storiesColl.Find(
		ctx,
		bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return 0, classify(err, "stories", "")
	}
	var expired []models.Story
	if err := cursor.All(ctx, &expired); err != nil {
		return 0, classify(err, "stories", "")
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]primitive.ObjectID, len(expired))
	for i, story := range expired {
		ids[i] = story.ID
	}

	if _, err := viewsColl.DeleteMany(ctx, bson.M{"story_id": bson.M{"$in": ids}}); err != nil {
		return 0, classify(err, "story views", "")
	}
	result, err := storiesColl.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, classify(err, "stories", "")
	}
	return result.DeletedCount, nil
}

func (m *Manager) getViewedStories(
	ctx context.Context,
	viewerID string,
	storyIDs []primitive.ObjectID,
) (map[primitive.ObjectID]bool, error) {
	viewed := make(map[primitive.ObjectID]bool, len(storyIDs))
	if viewerID == "" {
		return viewed, nil
	}

	cursor, err := m.dbConnection.Collection(CollectionStoryViews).Find(
		ctx,
		bson.M{"story_id": bson.M{"$in": storyIDs}, "viewer_id": viewerID},
	)
	if err != nil {
		return nil, classify(err, "story views", "")
	}
	var views []models.StoryView
	if err := cursor.All(ctx, &views); err != nil {
		return nil, classify(err, "story views", "")
	}
	for _, view := range views {
		viewed[view.StoryID] = true
	}
	return viewed, nil
}
