package runner

import "time"

// Config holds the runner's timing knobs (§4.3). These are compile-time
// defaults per §6.3 ("Runner timing constants are compile-time unless the
// implementation chooses to expose them") — exposed as a struct so tests
// can shrink the intervals instead of sleeping through real time.
type Config struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	ReaperInterval    time.Duration

	// Graceful-stop bounds (§5).
	PollStopTimeout      time.Duration
	ReaperStopTimeout    time.Duration
	HeartbeatJoinTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval:      5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		HeartbeatTimeout:  90 * time.Second,
		RetryBaseDelay:    10 * time.Second,
		RetryMaxDelay:     300 * time.Second,
		ReaperInterval:    45 * time.Second, // HEARTBEAT_TIMEOUT / 2

		PollStopTimeout:      10 * time.Second,
		ReaperStopTimeout:    5 * time.Second,
		HeartbeatJoinTimeout: 5 * time.Second,
	}
}
