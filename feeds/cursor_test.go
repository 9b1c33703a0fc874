package feeds

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestChronoCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	id := primitive.NewObjectID()

	decoded, err := DecodeChronoCursor(EncodeChronoCursor(createdAt, id))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decoded.CreatedAt.Equal(createdAt) {
		t.Errorf("created_at: got %v, want %v", decoded.CreatedAt, createdAt)
	}
	if decoded.ID != id {
		t.Errorf("id: got %s, want %s", decoded.ID.Hex(), id.Hex())
	}
}

func TestDecodeChronoCursorEmptyStartsAtTop(t *testing.T) {
	decoded, err := DecodeChronoCursor("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decoded.CreatedAt.After(time.Now()) {
		t.Errorf("empty cursor should start above any existing post, got %v", decoded.CreatedAt)
	}
}

var malformedChronoCursors = []string{
	"nonsense",
	"123",
	"123::not-an-object-id",
	"abc::5f2d7f1c9d3e4b0001a2b3c4",
	"1::2::3",
}

func TestDecodeChronoCursorMalformed(t *testing.T) {
	for _, cursor := range malformedChronoCursors {
		t.Run(cursor, func(t *testing.T) {
			if _, err := DecodeChronoCursor(cursor); err == nil {
				t.Errorf("expected error for %q", cursor)
			}
		})
	}
}

func TestRankCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	id := primitive.NewObjectID()

	decoded, resuming, err := DecodeRankCursor(EncodeRankCursor(42, createdAt, id))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resuming {
		t.Error("expected resuming cursor")
	}
	if decoded.Score != 42 {
		t.Errorf("score: got %d, want 42", decoded.Score)
	}
	if !decoded.CreatedAt.Equal(createdAt) {
		t.Errorf("created_at: got %v, want %v", decoded.CreatedAt, createdAt)
	}
	if decoded.ID != id {
		t.Errorf("id: got %s, want %s", decoded.ID.Hex(), id.Hex())
	}
}

func TestDecodeRankCursorEmpty(t *testing.T) {
	_, resuming, err := DecodeRankCursor("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resuming {
		t.Error("empty cursor must not resume")
	}
}

func TestDecodeRankCursorMalformed(t *testing.T) {
	for _, cursor := range []string{"1::2", "x::2::5f2d7f1c9d3e4b0001a2b3c4", "1::y::5f2d7f1c9d3e4b0001a2b3c4", "1::2::zzz"} {
		t.Run(cursor, func(t *testing.T) {
			if _, _, err := DecodeRankCursor(cursor); err == nil {
				t.Errorf("expected error for %q", cursor)
			}
		})
	}
}
