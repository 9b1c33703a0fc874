package middleware

import (
	"github.com/prometheus/client_golang/prometheus"

	"campusfeed/monitoring"
)

// ObserveDelta wraps the processing of one change-stream delta with the
// stream counters and duration histogram.
func ObserveDelta(class string, operation string, handle func() error) error {
	monitoring.ChangeStreamDeltas.WithLabelValues(class, operation).Inc()

	timer := prometheus.NewTimer(
		monitoring.ChangeStreamProcessingDuration.WithLabelValues(class, operation),
	)
	err := handle()
	timer.ObserveDuration()

	return err
}
