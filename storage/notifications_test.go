package storage

import (
	"reflect"
	"testing"

	"campusfeed/storage/models"
)

var shouldNotifyTests = []struct {
	name     string
	event    models.Event
	expected bool
}{
	{
		"reaction on someone else's post",
		models.Event{Kind: models.NotificationReacted, ActorID: "u1", OwnerID: "u2"},
		true,
	},
	{
		"self reaction suppressed",
		models.Event{Kind: models.NotificationReacted, ActorID: "u1", OwnerID: "u1"},
		false,
	},
	{
		"self comment suppressed",
		models.Event{Kind: models.NotificationCommented, ActorID: "u7", OwnerID: "u7"},
		false,
	},
	{
		"unknown kind rejected",
		models.Event{Kind: "poked", ActorID: "u1", OwnerID: "u2"},
		false,
	},
	{
		"missing actor rejected",
		models.Event{Kind: models.NotificationFollowed, OwnerID: "u2"},
		false,
	},
	{
		"missing owner rejected",
		models.Event{Kind: models.NotificationFollowed, ActorID: "u1"},
		false,
	},
}

func TestShouldNotify(t *testing.T) {
	for _, tt := range shouldNotifyTests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldNotify(tt.event); got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

var mentionTests = []struct {
	content  string
	expected []string
}{
	{"hey @ana check this out", []string{"ana"}},
	{"@ana @ana @bruno", []string{"ana", "bruno"}},
	{"mail me at ana@example.com", []string{"example"}},
	{"no mentions here", nil},
	{"@Ana and @ana are different handles", []string{"Ana", "ana"}},
}

func TestExtractMentions(t *testing.T) {
	for _, tt := range mentionTests {
		t.Run(tt.content, func(t *testing.T) {
			got := extractMentions(tt.content)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}
