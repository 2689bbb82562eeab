package runner

import "time"

// retryDelay computes the exponential backoff for the k-th retry
// (1-indexed: k=1 is the first retry), capped at RetryMaxDelay (§4.3
// Retry policy, testable property 6):
//
//	delay = min(RetryMaxDelay, RetryBaseDelay * 2^(k-1))
func (cfg Config) retryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	delay := cfg.RetryBaseDelay
	for i := 1; i < retryCount; i++ {
		delay *= 2
		if delay >= cfg.RetryMaxDelay {
			return cfg.RetryMaxDelay
		}
	}
	if delay > cfg.RetryMaxDelay {
		return cfg.RetryMaxDelay
	}
	return delay
}
