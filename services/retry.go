package services

import (
	"time"
)

const (
	retryAttempts  = 3 // initial try + 2 retries
	retryBaseDelay = 500 * time.Millisecond
)

// withRetry runs fn up to retryAttempts times, doubling the delay between
// attempts. Every provider-facing call goes through here so transient
// timeouts are handled the same way everywhere.
func withRetry(fn func() error) error {
	var err error
	delay := retryBaseDelay
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
