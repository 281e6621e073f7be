package metrics

import (
	"context"
	"time"
)

// RecordEvent records a custom event, eg. one per executed transaction. It is
// a no-op when ctx carries no New Relic application.
func RecordEvent(ctx context.Context, eventName string, attributes map[string]interface{}) {
	if nr, ok := fromContext(ctx); ok {
		nr.RecordCustomEvent(eventName, attributes)
	}
}

// RecordCount records a count sample, eg. commit attempts for a transaction.
func RecordCount(ctx context.Context, metricName string, count uint64) {
	if nr, ok := fromContext(ctx); ok {
		nr.RecordCustomMetric(metricName, float64(count))
	}
}

// RecordDuration records duration in fractional milliseconds.
func RecordDuration(ctx context.Context, metricName string, duration time.Duration) {
	if nr, ok := fromContext(ctx); ok {
		nr.RecordCustomMetric(metricName, float64(duration)/float64(time.Millisecond))
	}
}
