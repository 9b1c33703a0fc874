package realtime

import (
	"go.mongodb.org/mongo-driver/bson"
)

// EntityClass names one watched collection.
type EntityClass string

const (
	ClassPosts         EntityClass = "posts"
	ClassNotifications EntityClass = "notifications"
	ClassMessages      EntityClass = "messages"
)

type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
)

// Delta is one typed change pushed to listeners. Row is the full document
// after the change; listeners decode the slice they care about.
type Delta struct {
	Class EntityClass
	Op    Operation
	ID    string
	Row   bson.Raw
}

// Listener consumes deltas for one entity class. Listeners must not block;
// heavy work belongs on their own goroutine.
type Listener func(Delta)
