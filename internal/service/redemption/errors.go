package redemption

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrNotCancellable = errors.New("ticket already scanned, used or cancelled")
)

// RateLimitedError rejects a scanner that exceeded its window before the
// store is touched.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
