package wal

// Appender is the write side of the durable log. The replication
// coordinator depends on this rather than on *Log.
type Appender interface {
	// Append persists one record. It returns only after the record is
	// flushed and synced to stable storage.
	Append(key, value string) error
}

// Replayer reads records back in append order.
type Replayer interface {
	Replay(fn func(Record) error) (ReplayStats, error)
}

// DurableLog is the complete interface of the append-only log.
type DurableLog interface {
	Appender
	Replayer

	// Err reports the sticky failure, if any.
	Err() error
	Path() string
	Close() error
}

var _ DurableLog = (*Log)(nil)
