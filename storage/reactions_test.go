package storage

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusfeed/storage/models"
)

var transitionTests = []struct {
	name      string
	prior     models.ReactionKind
	requested models.ReactionKind
	action    reactionAction
	delta     int64
	final     models.ReactionKind
}{
	{"first reaction", models.ReactionNone, models.ReactionLike, reactionInsert, 1, models.ReactionLike},
	{"toggle off same kind", models.ReactionLike, models.ReactionLike, reactionRemove, -1, models.ReactionNone},
	{"replace different kind", models.ReactionLike, models.ReactionLove, reactionReplace, 0, models.ReactionLove},
	{"explicit removal", models.ReactionWow, models.ReactionNone, reactionRemove, -1, models.ReactionNone},
	{"remove when nothing recorded", models.ReactionNone, models.ReactionNone, reactionNoop, 0, models.ReactionNone},
	{"replace preserves counter", models.ReactionSad, models.ReactionAngry, reactionReplace, 0, models.ReactionAngry},
}

func TestTransitionFor(t *testing.T) {
	for _, tt := range transitionTests {
		t.Run(tt.name, func(t *testing.T) {
			got := transitionFor(tt.prior, tt.requested)
			if got.action != tt.action {
				t.Errorf("action: got %v, want %v", got.action, tt.action)
			}
			if got.counterDelta != tt.delta {
				t.Errorf("counterDelta: got %d, want %d", got.counterDelta, tt.delta)
			}
			if got.finalState != tt.final {
				t.Errorf("finalState: got %q, want %q", got.finalState, tt.final)
			}
		})
	}
}

// A first reaction whose counter increment matched no post must abort the
// transaction with not-found instead of committing an orphan reaction row.
// A guarded decrement matching nothing is the zero floor, not a missing post.
func TestCounterUpdateError(t *testing.T) {
	postID := primitive.NewObjectID()

	tests := []struct {
		name    string
		delta   int64
		matched int64
		kind    ErrorKind
		wantErr bool
	}{
		{"increment against live post", 1, 1, 0, false},
		{"increment against deleted post", 1, 0, KindNotFound, true},
		{"decrement hits zero floor", -1, 0, 0, false},
		{"decrement against live post", -1, 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := counterUpdateError(tt.delta, tt.matched, postID)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if got := KindOf(err); got != tt.kind {
					t.Errorf("kind: got %v, want %v", got, tt.kind)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// A full like-unlike cycle must leave the counter where it started.
func TestTransitionCycleIsNeutral(t *testing.T) {
	state := models.ReactionNone
	var counter int64 = 5

	for _, requested := range []models.ReactionKind{
		models.ReactionLike, models.ReactionLove, models.ReactionLove,
	} {
		transition := transitionFor(state, requested)
		state = transition.finalState
		counter += transition.counterDelta
	}

	if state != models.ReactionNone {
		t.Errorf("state: got %q, want %q", state, models.ReactionNone)
	}
	if counter != 5 {
		t.Errorf("counter: got %d, want 5", counter)
	}
}
