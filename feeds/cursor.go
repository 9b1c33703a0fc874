package feeds

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CursorEOF = "eof"

// ChronoCursor is the stable pagination key for time-ordered feeds:
// (created_at, id), so a post inserted between page fetches can neither
// duplicate nor displace rows on the next page.
type ChronoCursor struct {
	CreatedAt time.Time
	ID        primitive.ObjectID
}

func EncodeChronoCursor(createdAt time.Time, id primitive.ObjectID) string {
	return fmt.Sprintf("%d::%s", createdAt.UnixMilli(), id.Hex())
}

// DecodeChronoCursor parses a cursor; an empty cursor means "from the top".
func DecodeChronoCursor(cursor string) (ChronoCursor, error) {
	if cursor == "" {
		top := time.Now().UTC().Add(time.Minute)
		return ChronoCursor{
			CreatedAt: top,
			ID:        primitive.NewObjectIDFromTimestamp(top),
		}, nil
	}

	parts := strings.Split(cursor, "::")
	if len(parts) != 2 {
		return ChronoCursor{}, fmt.Errorf("malformed cursor: %q", cursor)
	}
	millis, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ChronoCursor{}, fmt.Errorf("malformed cursor: %q", cursor)
	}
	id, err := primitive.ObjectIDFromHex(parts[1])
	if err != nil {
		return ChronoCursor{}, fmt.Errorf("malformed cursor: %q", cursor)
	}
	return ChronoCursor{CreatedAt: time.UnixMilli(millis).UTC(), ID: id}, nil
}

// RankCursor resumes a trending page at the (score, created_at, id) of the
// last row already delivered.
type RankCursor struct {
	Score     int64
	CreatedAt time.Time
	ID        primitive.ObjectID
}

func EncodeRankCursor(score int64, createdAt time.Time, id primitive.ObjectID) string {
	return fmt.Sprintf("%d::%d::%s", score, createdAt.UnixMilli(), id.Hex())
}

func DecodeRankCursor(cursor string) (RankCursor, bool, error) {
	if cursor == "" {
		return RankCursor{}, false, nil
	}

	parts := strings.Split(cursor, "::")
	if len(parts) != 3 {
		return RankCursor{}, false, fmt.Errorf("malformed cursor: %q", cursor)
	}
	score, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return RankCursor{}, false, fmt.Errorf("malformed cursor: %q", cursor)
	}
	millis, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return RankCursor{}, false, fmt.Errorf("malformed cursor: %q", cursor)
	}
	id, err := primitive.ObjectIDFromHex(parts[2])
	if err != nil {
		return RankCursor{}, false, fmt.Errorf("malformed cursor: %q", cursor)
	}
	return RankCursor{Score: score, CreatedAt: time.UnixMilli(millis).UTC(), ID: id}, true, nil
}
