package storage

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusfeed/storage/cache"
	"campusfeed/storage/models"
)

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// extractHashtags pulls the lowercased, deduplicated tag set out of post
// content.
func extractHashtags(content string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	tags := make([]string, 0, len(matches))
	for _, match := range matches {
		tag := strings.ToLower(match[1])
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// PostInput is what a caller provides to create a post; everything else is
// derived server-side.
type PostInput struct {
	AuthorID     string
	Content      string
	Media        []models.MediaRef
	Visibility   models.Visibility
	CampusID     string
	DepartmentID string
}

func (m *Manager) CreatePost(ctx context.Context, input PostInput) (models.Post, error) {
	if strings.TrimSpace(input.Content) == "" && len(input.Media) == 0 {
		return models.Post{}, NewValidationError("post needs content or media")
	}
	if input.AuthorID == "" {
		return models.Post{}, NewValidationError("missing author id")
	}
	if input.Visibility == "" {
		input.Visibility = models.VisibilityPublic
	}
	if !models.ValidVisibility(input.Visibility) {
		return models.Post{}, NewValidationError("unknown visibility: " + string(input.Visibility))
	}
	for _, media := range input.Media {
		if !models.ValidMediaKind(media.Kind) {
			return models.Post{}, NewValidationError("unknown media kind: " + string(media.Kind))
		}
		if media.URL == "" {
			return models.Post{}, NewValidationError("media reference without url")
		}
	}

	now := time.Now().UTC()
	post := models.Post{
		AuthorID:     input.AuthorID,
		Content:      input.Content,
		Media:        input.Media,
		Visibility:   input.Visibility,
		CampusID:     input.CampusID,
		DepartmentID: input.DepartmentID,
		Hashtags:     extractHashtags(input.Content),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	postsColl := m.dbConnection.Collection(CollectionPosts)
	usersColl := m.dbConnection.Collection(CollectionUsers)

	err := m.executeTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		result, err := postsColl.InsertOne(sc, post)
		if err != nil {
			return nil, err
		}
		post.ID = result.InsertedID.(primitive.ObjectID)

		_, err = usersColl.UpdateOne(
			sc,
			bson.D{{Key: "_id", Value: post.AuthorID}},
			bson.D{{Key: "$inc", Value: bson.D{{Key: "posts_count", Value: 1}}}},
		)
		return result, err
	})
	if err != nil {
		return models.Post{}, classify(err, "post", "")
	}

	m.postsCache.AddPost(post.ID.Hex(), post.AuthorID)
	return post, nil
}

func (m *Manager) GetPost(ctx context.Context, postID string) (models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return models.Post{}, NewValidationError("malformed post id: " + postID)
	}

	var post models.Post
	err = m.dbConnection.Collection(CollectionPosts).FindOne(ctx, bson.M{"_id": oid}).Decode(&post)
	if err != nil {
		return models.Post{}, classify(err, "post", postID)
	}
	return post, nil
}

func (m *Manager) GetPostsByIDs(ctx context.Context, postIDs []primitive.ObjectID) ([]models.Post, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	cursor, err := m.dbConnection.Collection(CollectionPosts).Find(
		ctx,
		bson.M{"_id": bson.M{"$in": postIDs}},
	)
	if err != nil {
		return nil, classify(err, "posts", "")
	}
	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, classify(err, "posts", "")
	}
	return posts, nil
}

// GetPostAuthorID resolves a post's author, cache first.
func (m *Manager) GetPostAuthorID(ctx context.Context, postID string) (string, error) {
	if authorID, ok := m.postsCache.GetPostAuthorID(postID); ok {
		return authorID, nil
	}
	post, err := m.GetPost(ctx, postID)
	if err != nil {
		return "", err
	}
	m.postsCache.AddPost(postID, post.AuthorID)
	return post.AuthorID, nil
}

// RecordShare bumps the denormalized shares counter.
func (m *Manager) RecordShare(ctx context.Context, postID string) error {
	return m.incPostCounter(ctx, postID, "shares_count")
}

// RecordPostView bumps the denormalized views counter.
func (m *Manager) RecordPostView(ctx context.Context, postID string) error {
	return m.incPostCounter(ctx, postID, "views_count")
}

func (m *Manager) incPostCounter(ctx context.Context, postID string, field string) error {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return NewValidationError("malformed post id: " + postID)
	}
	result, err := m.dbConnection.Collection(CollectionPosts).UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{field: 1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return classify(err, "post", postID)
	}
	if result.MatchedCount == 0 {
		return NewNotFoundError("post", postID)
	}
	return nil
}

// SavePost bookmarks a post for a user; saving twice is a no-op.
func (m *Manager) SavePost(ctx context.Context, postID string, userID string) error {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return NewValidationError("malformed post id: " + postID)
	}
	_, err = m.dbConnection.Collection(CollectionSavedPosts).UpdateOne(
		ctx,
		bson.D{{Key: "post_id", Value: oid}, {Key: "user_id", Value: userID}},
		bson.M{"$setOnInsert": bson.M{"created_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return classify(err, "saved post", postID)
	}
	return nil
}

func (m *Manager) UnsavePost(ctx context.Context, postID string, userID string) error {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return NewValidationError("malformed post id: " + postID)
	}
	_, err = m.dbConnection.Collection(CollectionSavedPosts).DeleteOne(
		ctx,
		bson.D{{Key: "post_id", Value: oid}, {Key: "user_id", Value: userID}},
	)
	if err != nil {
		return classify(err, "saved post", postID)
	}
	return nil
}

// ViewerPostState is the per-viewer decoration for a feed row.
type ViewerPostState struct {
	Reaction models.ReactionKind
	Saved    bool
}

// GetViewerState batch-resolves the viewer's reaction and saved flag for a
// page of posts in two queries total.
func (m *Manager) GetViewerState(
	ctx context.Context,
	viewerID string,
	postIDs []primitive.ObjectID,
) (map[primitive.ObjectID]ViewerPostState, error) {
	states := make(map[primitive.ObjectID]ViewerPostState, len(postIDs))
	for _, id := range postIDs {
		states[id] = ViewerPostState{Reaction: models.ReactionNone}
	}
	if viewerID == "" || len(postIDs) == 0 {
		return states, nil
	}

	filter := bson.M{"post_id": bson.M{"$in": postIDs}, "user_id": viewerID}

	cursor, err := m.dbConnection.Collection(CollectionReactions).Find(ctx, filter)
	if err != nil {
		return nil, classify(err, "reactions", "")
	}
	var reactions []models.Reaction
	if err := cursor.All(ctx, &reactions); err != nil {
		return nil, classify(err, "reactions", "")
	}
	for _, reaction := range reactions {
		state := states[reaction.PostID]
		state.Reaction = reaction.Kind
		states[reaction.PostID] = state
	}

	cursor, err = m.dbConnection.Collection(CollectionSavedPosts).Find(ctx, filter)
	if err != nil {
		return nil, classify(err, "saved posts", "")
	}
	var saved []models.SavedPost
	if err := cursor.All(ctx, &saved); err != nil {
		return nil, classify(err, "saved posts", "")
	}
	for _, s := range saved {
		state := states[s.PostID]
		state.Saved = true
		states[s.PostID] = state
	}

	return states, nil
}

// ListPostsByAuthors pages posts by a set of authors, newest first, using a
// (created_at, id) cursor so concurrent inserts cannot skip or duplicate
// rows across pages. Private posts are only visible to their own author.
func (m *Manager) ListPostsByAuthors(
	ctx context.Context,
	viewerID string,
	authorIDs []string,
	before time.Time,
	beforeID primitive.ObjectID,
	limit int64,
) ([]models.Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"author_id": bson.M{"$in": authorIDs},
		"$and": []bson.M{
			{"$or": []bson.M{
				{"visibility": bson.M{"$ne": models.VisibilityPrivate}},
				{"author_id": viewerID},
			}},
			{"$or": []bson.M{
				{"created_at": bson.M{"$lt": before}},
				{"created_at": before, "_id": bson.M{"$lt": beforeID}},
			}},
		},
	}

	cursor, err := m.dbConnection.Collection(CollectionPosts).Find(
		ctx,
		filter,
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, classify(err, "posts", "")
	}
	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, classify(err, "posts", "")
	}
	return posts, nil
}

// ListRecentPosts returns all public posts inside the trending window for a
// scope, leaving ranking to the feed algorithm.
func (m *Manager) ListRecentPosts(
	ctx context.Context,
	campusID string,
	departmentID string,
	since time.Time,
	limit int64,
) ([]models.Post, error) {
	filter := bson.M{
		"created_at": bson.M{"$gt": since},
		"visibility": models.VisibilityPublic,
	}
	if campusID != "" {
		filter["campus_id"] = campusID
	}
	if departmentID != "" {
		filter["department_id"] = departmentID
	}

	cursor, err := m.dbConnection.Collection(CollectionPosts).Find(
		ctx,
		filter,
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, classify(err, "posts", "")
	}
	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, classify(err, "posts", "")
	}
	return posts, nil
}

// TimelineCache exposes the ranked feed cache to the feeds package and the
// background tasks.
func (m *Manager) TimelineCache() *cache.Timelines {
	return &m.timelines
}
