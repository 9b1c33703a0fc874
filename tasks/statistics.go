package tasks

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"campusfeed/storage"
)

// ReconcileCounters periodically re-derives the denormalized post counters
// from the reaction and comment collections, correcting any drift left by
// crashed transactions.
func ReconcileCounters(storageManager *storage.Manager) {
	interval := 15 * time.Minute
	for {
		select {
		case <-time.After(interval):
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if err := storageManager.ReconcilePostCounters(ctx, time.Now().Add(-interval-time.Minute)); err != nil {
				log.Errorf("Error reconciling post counters: %v", err)
			}
			cancel()
		}
	}
}
