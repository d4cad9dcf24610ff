package campsync

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/alaiso/hubd/internal/instantly"
)

// MaxRetries is the number of attempts made for retryable API failures.
const MaxRetries = 3

// IsRetryable reports whether err is an Instantly API error worth retrying.
func IsRetryable(err error) bool {
	var apiErr *instantly.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// Backoff returns a jittered exponential delay for the given attempt
// (0-indexed): ~1s, ~2s, ~4s with up to 25% jitter.
func Backoff(attempt int) time.Duration {
	base := time.Second * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Int64N(int64(base) / 4))
	return base + jitter
}
