package tasks

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"campusfeed/storage"
)

// CleanOldData removes expired stories and prunes stale trending timeline
// entries once an hour.
func CleanOldData(storageManager *storage.Manager) {
	for {
		select {
		case <-time.After(1 * time.Hour):
			ctx := context.Background()
			deleted, err := storageManager.DeleteExpiredStories(ctx)
			if err != nil {
				log.Errorf("Error deleting expired stories: %v", err)
			} else if deleted > 0 {
				log.Infof("Deleted %d expired stories", deleted)
			}
			storageManager.TimelineCache().DeleteExpiredEntries(
				storage.TrendingFeedName,
				time.Now().Add(-trendingRetention()),
			)
		}
	}
}

func trendingRetention() time.Duration {
	return 48 * time.Hour
}
