package enums

// OutboxDLQErrorReason records why the publisher gave up on an event.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonUnroutable: unknown event type or a payload that does
	// not decode into its schema.
	OutboxDLQReasonUnroutable OutboxDLQErrorReason = "unroutable"
	// OutboxDLQReasonNonRetryable: the broker rejected the message outright.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonMaxAttempts: transient failures used up every attempt.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonUnroutable, OutboxDLQReasonNonRetryable, OutboxDLQReasonMaxAttempts:
		return true
	}
	return false
}

// Replayable reports whether re-queuing the event unchanged could succeed.
// Unroutable rows need a code or data fix first.
func (r OutboxDLQErrorReason) Replayable() bool {
	return r == OutboxDLQReasonMaxAttempts
}
