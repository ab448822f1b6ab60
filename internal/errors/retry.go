package errors

import (
	"math/rand"
	"time"
)

// RetryController implements exponential backoff with jitter for retry logic.
type RetryController struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	maxRetries   int
}

// NewRetryController creates a retry controller with the given bounds.
func NewRetryController(initialDelay, maxDelay time.Duration, maxRetries int) *RetryController {
	return &RetryController{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		maxRetries:   maxRetries,
	}
}

// DefaultRetryController returns a controller with default settings:
// initial delay 10ms, max delay 1s, max retries 3.
func DefaultRetryController() *RetryController {
	return NewRetryController(10*time.Millisecond, time.Second, 3)
}

// Retry executes a function with retry logic based on error classification.
// Only transient and network errors are retried; everything else is returned
// to the caller on the first attempt.
func (rc *RetryController) Retry(fn func() error, classifier *Classifier) error {
	var lastErr error

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		category := classifier.Classify(err)

		if !classifier.ShouldRetry(category) {
			return err
		}

		if attempt >= rc.maxRetries {
			return err
		}

		time.Sleep(rc.calculateDelay(attempt))
	}

	return lastErr
}

// calculateDelay calculates the delay for a given attempt using exponential backoff + jitter.
func (rc *RetryController) calculateDelay(attempt int) time.Duration {
	// Exponential backoff: delay = initialDelay * 2^attempt
	delay := rc.initialDelay * time.Duration(1<<uint(attempt))

	if delay > rc.maxDelay {
		delay = rc.maxDelay
	}

	// Add jitter: ±25% random variation
	jitter := time.Duration(float64(delay) * 0.25 * (rand.Float64()*2 - 1))
	delay += jitter

	if delay < 0 {
		delay = rc.initialDelay
	}

	return delay
}
