package feeds

import (
	"context"

	"campusfeed/storage"
	"campusfeed/storage/models"
)

// Algorithm selects and orders the raw posts for one page and returns the
// cursor resuming after them. Hydration is the Feed's job, not the
// algorithm's.
type Algorithm func(
	ctx context.Context,
	store *storage.Manager,
	params QueryParams,
) ([]models.Post, string, error)
