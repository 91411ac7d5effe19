package wal

import "errors"

var (
	// ErrLogFailed is returned by every Append after a write or sync failure.
	ErrLogFailed = errors.New("durable log failed")

	// ErrClosed is returned when the log is used after Close.
	ErrClosed = errors.New("durable log closed")

	// ErrMalformedRecord marks a line that does not decode to a record.
	ErrMalformedRecord = errors.New("malformed log record")
)

// Record is one admitted write.
type Record struct {
	Key   string
	Value string
}

// ReplayStats summarises a Replay pass.
type ReplayStats struct {
	Applied int
	Skipped int

	// TruncatedTail is set when the final line had no terminating newline.
	// Open terminates such a line, so it is only seen when the file was
	// cut while this Log held it open. A terminated line that decodes is
	// counted as Applied, not as a truncated tail.
	TruncatedTail bool
}
