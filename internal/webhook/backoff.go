package webhook

import "time"

// Schedule is the delay before each attempt. Attempt 1 is immediate; the last value repeats.
var Schedule = []time.Duration{
	0,
	time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
}

// Backoff returns the delay before the next attempt given how many attempts were already made.
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts >= len(Schedule) {
		attempts = len(Schedule) - 1
	}
	return Schedule[attempts]
}
