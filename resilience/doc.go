// Package resilience provides retry with backoff for fetchers.
//
// The delay between attempts is driven by a clockwork.Clock so callers can
// substitute a fake clock in tests:
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  3,
//	    InitialDelay: 200 * time.Millisecond,
//	    RetryIf:      httpclient.IsRetryable,
//	})
//	users, err := resilience.Do(ctx, retry, fetchUsers)
package resilience
