package realtime

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"campusfeed/monitoring/middleware"
	"campusfeed/storage"
	"campusfeed/utils"
)

const (
	coalesceWindowDefaultMs = 250
	watchRetryAttempts      = 8
	watchRetryBackoff       = time.Second
)

// Scope narrows a session's subscriptions to one user. An empty UserID
// watches everything (the service-level session feeding the delivery hub).
type Scope struct {
	UserID string
}

// Session owns the change subscriptions for one logical consumer. It is the
// only component holding raw change streams; everything else registers typed
// listeners. Open acquires the streams, Close releases them on every exit
// path.
type Session struct {
	ID    string
	scope Scope
	store *storage.Manager

	mu        sync.Mutex
	listeners map[EntityClass][]Listener
	opened    bool

	cancel     context.CancelFunc
	wg         sync.WaitGroup
	coalescers map[EntityClass]*coalescer
}

func NewSession(store *storage.Manager, scope Scope) *Session {
	return &Session{
		ID:         uuid.NewString(),
		scope:      scope,
		store:      store,
		listeners:  make(map[EntityClass][]Listener),
		coalescers: make(map[EntityClass]*coalescer),
	}
}

// On registers a listener for one entity class. Registration after Open is
// allowed; delivery starts with the next delta.
func (s *Session) On(class EntityClass, listener Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[class] = append(s.listeners[class], listener)
}

// Open starts one change stream per watched entity class. It is idempotent;
// a second call is a no-op.
func (s *Session) Open(ctx context.Context) {
	s.mu.Lock()
	if s.opened {
		s.mu.Unlock()
		return
	}
	s.opened = true
	s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	window := time.Duration(
		utils.IntFromString(os.Getenv("COALESCE_WINDOW_MS"), coalesceWindowDefaultMs),
	) * time.Millisecond

	collections := map[EntityClass]string{
		ClassPosts:         storage.CollectionPosts,
		ClassNotifications: storage.CollectionNotifications,
		ClassMessages:      storage.CollectionMessages,
	}

	// The full coalescer map must exist before the first watch goroutine
	// starts; they read it unlocked.
	s.initCoalescers(window, collections)

	for class, collection := range collections {
		class, collection := class, collection
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.watch(ctx, class, collection)
		}()
	}
}

func (s *Session) initCoalescers(window time.Duration, collections map[EntityClass]string) {
	for class := range collections {
		class := class
		s.coalescers[class] = newCoalescer(window, func(delta Delta) {
			err := middleware.ObserveDelta(string(delta.Class), string(delta.Op), func() error {
				return s.dispatch(delta)
			})
			if err != nil {
				log.Errorf("Error handling %s delta: %v", class, err)
			}
		})
	}
}

// Close tears down every stream and waits for the watch goroutines to stop.
// Safe to call more than once and from defer on any exit path.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return
	}
	s.opened = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	for _, c := range s.coalescers {
		c.Stop()
	}
}

func (s *Session) watch(ctx context.Context, class EntityClass, collection string) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update"}}}},
		}}},
	}
	if s.scope.UserID != "" && class == ClassNotifications {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{
			{Key: "fullDocument.recipient_id", Value: s.scope.UserID},
		}}})
	}

	var resumeToken bson.Raw
	for ctx.Err() == nil {
		var stream *mongo.ChangeStream
		err := utils.Retry(ctx, watchRetryAttempts, watchRetryBackoff, storage.IsRetryable, func() error {
			var err error
			stream, err = s.store.Watch(ctx, collection, pipeline, resumeToken)
			return err
		})
		if err != nil {
			if ctx.Err() == nil {
				log.Errorf("Giving up on %s change stream: %v", class, err)
			}
			return
		}

		for stream.Next(ctx) {
			resumeToken = stream.ResumeToken()

			var event struct {
				OperationType string   `bson:"operationType"`
				FullDocument  bson.Raw `bson:"fullDocument"`
				DocumentKey   struct {
					ID interface{} `bson:"_id"`
				} `bson:"documentKey"`
			}
			if err := stream.Decode(&event); err != nil {
				log.Errorf("Error decoding %s change event: %v", class, err)
				continue
			}

			s.coalescers[class].Offer(Delta{
				Class: class,
				Op:    Operation(event.OperationType),
				ID:    documentKeyString(event.DocumentKey.ID),
				Row:   event.FullDocument,
			})
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Warningf("%s change stream interrupted, resuming: %v", class, err)
		}
		_ = stream.Close(context.Background())
	}
}

func documentKeyString(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (s *Session) dispatch(delta Delta) error {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners[delta.Class]))
	copy(listeners, s.listeners[delta.Class])
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(delta)
	}
	return nil
}
