package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusfeed/monitoring"
	"campusfeed/push"
	"campusfeed/realtime"
	"campusfeed/server"
	"campusfeed/storage"
	"campusfeed/storage/models"
	"campusfeed/tasks"
	"campusfeed/utils"
)

func connectMongo(ctx context.Context) (*mongo.Database, error) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://127.0.0.1:27017"
	}
	dbName := os.Getenv("MONGODB_DATABASE")
	if dbName == "" {
		dbName = "campusfeed"
	}

	var client *mongo.Client
	err := utils.Retry(ctx, 5, 2*time.Second, func(error) bool { return true }, func() error {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		var err error
		client, err = mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		return client.Ping(connectCtx, nil)
	})
	if err != nil {
		return nil, err
	}
	return client.Database(dbName), nil
}

// runPropagator opens the service-wide change stream session and bridges
// database deltas onto websocket and push delivery.
func runPropagator(
	ctx context.Context,
	storageManager *storage.Manager,
	s *server.Server,
	hub *realtime.Hub,
	pushSender *push.Sender,
) *realtime.Session {
	session := realtime.NewSession(storageManager, realtime.Scope{})

	session.On(realtime.ClassNotifications, func(delta realtime.Delta) {
		var notification models.Notification
		if err := bson.Unmarshal(delta.Row, &notification); err != nil {
			log.Errorf("Error decoding notification delta: %v", err)
			return
		}
		hub.SendToUser(notification.RecipientID, realtime.Envelope{
			ID:   delta.ID,
			Type: "notification",
			Data: notification,
		})
		if delta.Op == realtime.OpInsert {
			monitoring.NotificationsCreated.WithLabelValues(string(notification.Kind)).Inc()
			go pushSender.Send(ctx, notification.RecipientID, utils.ToJson(notification))
		}
	})

	session.On(realtime.ClassMessages, func(delta realtime.Delta) {
		var message models.Message
		if err := bson.Unmarshal(delta.Row, &message); err != nil {
			log.Errorf("Error decoding message delta: %v", err)
			return
		}
		participantIDs, err := storageManager.GetParticipantIDs(ctx, message.ConversationID.Hex())
		if err != nil {
			log.Errorf("Error resolving message recipients: %v", err)
			return
		}
		for _, participantID := range participantIDs {
			if participantID == message.SenderID {
				continue
			}
			hub.SendToUser(participantID, realtime.Envelope{
				ID:   delta.ID,
				Type: "message",
				Data: message,
			})
		}
	})

	session.On(realtime.ClassPosts, func(delta realtime.Delta) {
		for _, feed := range s.GetFeeds() {
			feed.Invalidate()
		}
		hub.Broadcast(realtime.Envelope{
			ID:   delta.ID,
			Type: "feed_refresh",
		})
	})

	session.Open(ctx)
	return session
}

func runBackgroundTasks(storageManager *storage.Manager) {
	// Expired story and timeline cleanup
	go utils.Recoverer(math.MaxInt, 1, func() {
		tasks.CleanOldData(storageManager)
	})

	// Counter drift reconciliation
	go utils.Recoverer(math.MaxInt, 2, func() {
		tasks.ReconcileCounters(storageManager)
	})
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found")
	}
	logLevel, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = log.WarnLevel
	}
	log.SetLevel(logLevel)

	ctx := context.Background()

	database, err := connectMongo(ctx)
	if err != nil {
		panic(err)
	}

	redisHost := os.Getenv("REDIS_HOST")
	redisPort := os.Getenv("REDIS_PORT")
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	storageManager := storage.NewManager(database, redisClient)
	if err := storageManager.EnsureIndexes(ctx); err != nil {
		panic(err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	pushSender := push.NewSender(storageManager)
	s := server.NewServer(storageManager, hub, pushSender)

	session := runPropagator(ctx, storageManager, &s, hub, pushSender)
	defer session.Close()

	runBackgroundTasks(storageManager)

	s.Run()
}
