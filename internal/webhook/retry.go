package webhook

import (
	"math/rand"
	"time"
)

// retryDelays is the backoff schedule, indexed by failed attempt count.
// The last entry repeats for any attempts beyond the schedule.
var retryDelays = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
	12 * time.Hour,
}

const (
	// DefaultMaxAttempts is the default maximum delivery attempts.
	DefaultMaxAttempts = 5

	// JitterFactor spreads retries so endpoints recovering from an
	// outage don't get the whole backlog in one burst.
	JitterFactor = 0.2
)

// NextRetryDelay returns the backoff delay after the given number of
// failed attempts (0-indexed), with ±20% jitter applied.
func NextRetryDelay(attemptCount int) time.Duration {
	if attemptCount < 0 {
		attemptCount = 0
	}
	if attemptCount >= len(retryDelays) {
		attemptCount = len(retryDelays) - 1
	}

	base := retryDelays[attemptCount]
	jitter := (rand.Float64()*2 - 1) * JitterFactor * float64(base)

	return time.Duration(float64(base) + jitter)
}

// NextRetryAt returns the wall-clock time of the next retry attempt.
func NextRetryAt(attemptCount int) time.Time {
	return time.Now().Add(NextRetryDelay(attemptCount))
}

// IsExhausted returns true if max attempts have been reached.
func IsExhausted(attemptCount, maxAttempts int) bool {
	return attemptCount >= maxAttempts
}

// GetRetryDelays returns a copy of the backoff schedule.
func GetRetryDelays() []time.Duration {
	return append([]time.Duration{}, retryDelays...)
}

// EstimatedMaxDeliveryWindow is the worst-case span between the first
// attempt and exhaustion, jitter included. Quoted in the API docs.
func EstimatedMaxDeliveryWindow() time.Duration {
	var total time.Duration
	for _, d := range retryDelays {
		total += d
	}
	return time.Duration(float64(total) * (1 + JitterFactor))
}
