package storage

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"campusfeed/storage/cache"
	"campusfeed/storage/models"
	"campusfeed/utils"
)

const (
	CollectionUsers             = "users"
	CollectionPosts             = "posts"
	CollectionReactions         = "reactions"
	CollectionComments          = "comments"
	CollectionStories           = "stories"
	CollectionStoryViews        = "story_views"
	CollectionSavedPosts        = "saved_posts"
	CollectionFollows           = "follows"
	CollectionConversations     = "conversations"
	CollectionParticipants      = "conversation_participants"
	CollectionMessages          = "messages"
	CollectionNotifications     = "notifications"
	CollectionPushSubscriptions = "push_subscriptions"
)

const TrendingFeedName = "trending"

// Manager is the typed accessor to the durable store. Every other component
// reaches the database and the caches through it.
type Manager struct {
	redisConnection *redis.Client
	dbConnection    *mongo.Database

	usersCache cache.UsersCache
	postsCache cache.PostsCache
	timelines  cache.Timelines

	storyTTL time.Duration
}

func NewManager(dbConnection *mongo.Database, redisConnection *redis.Client) *Manager {
	usersCacheExpiration := utils.IntFromString(
		os.Getenv("USERS_CACHE_EXPIRATION_MINUTES"), 43200,
	)
	postsCacheExpiration := utils.IntFromString(
		os.Getenv("POSTS_CACHE_EXPIRATION_MINUTES"), 1080,
	)
	storyTTLHours := utils.IntFromString(os.Getenv("STORY_TTL_HOURS"), 24)

	return &Manager{
		redisConnection: redisConnection,
		dbConnection:    dbConnection,
		usersCache: cache.NewUsersCache(
			redisConnection,
			time.Duration(usersCacheExpiration)*time.Minute,
		),
		postsCache: cache.NewPostsCache(
			redisConnection,
			time.Duration(postsCacheExpiration)*time.Minute,
		),
		timelines: cache.NewTimelines(redisConnection),
		storyTTL:  time.Duration(storyTTLHours) * time.Hour,
	}
}

// EnsureIndexes creates the unique compound indexes backing the
// one-row-per-key invariants. Safe to call on every start.
func (m *Manager) EnsureIndexes(ctx context.Context) error {
	unique := func(coll string, keys bson.D) error {
		_, err := m.dbConnection.Collection(coll).Indexes().CreateOne(
			ctx,
			mongo.IndexModel{
				Keys:    keys,
				Options: options.Index().SetUnique(true),
			},
		)
		return err
	}

	if err := unique(CollectionReactions, bson.D{{Key: "post_id", Value: 1}, {Key: "user_id", Value: 1}}); err != nil {
		return classify(err, "reactions index", "")
	}
	if err := unique(CollectionStoryViews, bson.D{{Key: "story_id", Value: 1}, {Key: "viewer_id", Value: 1}}); err != nil {
		return classify(err, "story_views index", "")
	}
	if err := unique(CollectionSavedPosts, bson.D{{Key: "post_id", Value: 1}, {Key: "user_id", Value: 1}}); err != nil {
		return classify(err, "saved_posts index", "")
	}
	if err := unique(CollectionParticipants, bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}}); err != nil {
		return classify(err, "participants index", "")
	}
	if err := unique(CollectionFollows, bson.D{{Key: "author_id", Value: 1}, {Key: "subject_id", Value: 1}}); err != nil {
		return classify(err, "follows index", "")
	}
	if err := unique(CollectionPushSubscriptions, bson.D{{Key: "user_id", Value: 1}, {Key: "endpoint", Value: 1}}); err != nil {
		return classify(err, "push_subscriptions index", "")
	}

	nonUnique := [][2]any{
		{CollectionPosts, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{CollectionPosts, bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{CollectionStories, bson.D{{Key: "expires_at", Value: 1}}},
		{CollectionMessages, bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{CollectionNotifications, bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	for _, spec := range nonUnique {
		coll := spec[0].(string)
		_, err := m.dbConnection.Collection(coll).Indexes().CreateOne(
			ctx,
			mongo.IndexModel{Keys: spec[1].(bson.D)},
		)
		if err != nil {
			return classify(err, coll+" index", "")
		}
	}
	return nil
}

// Watch opens a change stream on one entity collection. Only the realtime
// propagator calls this; everything else consumes typed deltas from it.
func (m *Manager) Watch(
	ctx context.Context,
	collection string,
	pipeline mongo.Pipeline,
	resumeToken bson.Raw,
) (*mongo.ChangeStream, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	if resumeToken != nil {
		opts = opts.SetResumeAfter(resumeToken)
	}
	stream, err := m.dbConnection.Collection(collection).Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, classify(err, collection+" change stream", "")
	}
	return stream, nil
}

// GetOrCreateUser upserts the profile row for an externally authenticated id.
func (m *Manager) GetOrCreateUser(ctx context.Context, userID string) (models.User, error) {
	coll := m.dbConnection.Collection(CollectionUsers)

	var user models.User
	err := coll.FindOneAndUpdate(
		ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.M{
			"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
			"$set":         bson.M{"_id": userID},
		},
		options.
			FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetUpsert(true),
	).Decode(&user)
	if err != nil {
		log.Infof("Error creating user '%s': %v", userID, err)
		return models.User{}, classify(err, "user", userID)
	}
	return user, nil
}

func (m *Manager) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	coll := m.dbConnection.Collection(CollectionUsers)

	var user models.User
	err := coll.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&user)
	if err != nil {
		return models.User{}, classify(err, "user", username)
	}
	return user, nil
}

// GetAuthor returns the denormalized snapshot for a user, cache first.
func (m *Manager) GetAuthor(ctx context.Context, userID string) (models.Author, error) {
	if author, ok := m.usersCache.GetAuthor(userID); ok {
		return author, nil
	}

	coll := m.dbConnection.Collection(CollectionUsers)
	var user models.User
	if err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&user); err != nil {
		return models.Author{}, classify(err, "user", userID)
	}

	author := user.Snapshot()
	m.usersCache.AddAuthor(author)
	return author, nil
}

// GetAuthors batch-resolves snapshots for a set of user ids (one DB round
// trip for all the cache misses).
func (m *Manager) GetAuthors(ctx context.Context, userIDs []string) (map[string]models.Author, error) {
	authors := make(map[string]models.Author, len(userIDs))
	missing := make([]string, 0)
	for _, id := range userIDs {
		if _, ok := authors[id]; ok {
			continue
		}
		if author, ok := m.usersCache.GetAuthor(id); ok {
			authors[id] = author
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return authors, nil
	}

	coll := m.dbConnection.Collection(CollectionUsers)
	cursor, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": missing}})
	if err != nil {
		return nil, classify(err, "users", "")
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, classify(err, "users", "")
	}
	for _, user := range users {
		author := user.Snapshot()
		authors[user.ID] = author
		m.usersCache.AddAuthor(author)
	}
	return authors, nil
}

func (m *Manager) executeTransaction(
	ctx context.Context,
	operation func(ctx mongo.SessionContext) (interface{}, error),
) error {
	client := m.dbConnection.Client()
	wc := writeconcern.Majority()
	txnOptions := options.Transaction().SetWriteConcern(wc)

	session, err := client.StartSession()
	if err != nil {
		return classify(err, "session", "")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, operation, txnOptions)
	if err != nil {
		if !strings.Contains(err.Error(), "E11000 duplicate key error collection") {
			log.Warningf("Error committing transaction: %v", err)
		}
		return classify(err, "transaction", "")
	}
	return nil
}
