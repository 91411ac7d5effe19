package wal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dd0wney/cluso-kv/pkg/logging"
	"golang.org/x/exp/mmap"
)

const replayBufferSize = 64 * 1024

// Options configures Open.
type Options struct {
	Logger logging.Logger
}

// Log is the append-only durable log of one node. Every Append is flushed
// and synced before it returns. The first write failure is sticky: the log
// refuses all later appends.
type Log struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	logger logging.Logger

	mu     sync.Mutex
	failed error
	closed bool
}

// Open opens (creating if needed) the log file of nodeID inside dataDir.
func Open(dataDir string, nodeID int, opts Options) (*Log, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	if err := EnsureDir(dataDir); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := LogPath(dataDir, nodeID)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	repaired, err := terminateTail(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	if repaired {
		logger.Warn("durable log ended without a newline, terminated the partial record", logging.Path(path))
	}

	return &Log{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
		logger: logger,
	}, nil
}

// Path returns the file backing the log.
func (l *Log) Path() string {
	return l.path
}

// Append writes one record and syncs it to disk.
func (l *Log) Append(key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if l.failed != nil {
		return fmt.Errorf("%w: %w", ErrLogFailed, l.failed)
	}

	if _, err := l.writer.Write(encodeRecord(key, value)); err != nil {
		return l.fail("write", err)
	}
	if err := l.writer.Flush(); err != nil {
		return l.fail("flush", err)
	}
	if err := l.file.Sync(); err != nil {
		return l.fail("sync", err)
	}
	return nil
}

// fail records the sticky failure. Caller holds l.mu.
func (l *Log) fail(op string, err error) error {
	l.failed = fmt.Errorf("failed to %s log record: %w", op, err)
	l.logger.Error("durable log failed", logging.Path(l.path), logging.Error(err))
	return fmt.Errorf("%w: %w", ErrLogFailed, l.failed)
}

// Err returns a non-nil error once the log has failed.
func (l *Log) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failed != nil {
		return fmt.Errorf("%w: %w", ErrLogFailed, l.failed)
	}
	return nil
}

// Replay calls fn for every decodable record in append order. Malformed
// lines and a partial final line are skipped with a warning. Only I/O
// errors and errors returned by fn stop the replay.
//
// fn must not call Append on the same log.
func (l *Log) Replay(fn func(Record) error) (ReplayStats, error) {
	var stats ReplayStats

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return stats, ErrClosed
	}
	reader, err := mmap.Open(l.path)
	l.mu.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return stats, nil
		}
		return stats, fmt.Errorf("failed to map log file: %w", err)
	}
	defer reader.Close()

	br := bufio.NewReaderSize(io.NewSectionReader(reader, 0, int64(reader.Len())), replayBufferSize)
	lineNo := 0
	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return stats, fmt.Errorf("failed to read log file: %w", readErr)
		}
		if line == "" && readErr == io.EOF {
			break
		}
		lineNo++

		if readErr == io.EOF {
			// No terminating newline: the last append was cut short.
			stats.TruncatedTail = true
			stats.Skipped++
			l.logger.Warn("skipping truncated log record",
				logging.Path(l.path), logging.Int("line", lineNo))
			break
		}

		rec, err := decodeRecord(strings.TrimSuffix(line, "\n"))
		if err != nil {
			stats.Skipped++
			l.logger.Warn("skipping malformed log record",
				logging.Path(l.path), logging.Int("line", lineNo), logging.Error(err))
			continue
		}

		if err := fn(rec); err != nil {
			return stats, fmt.Errorf("failed to apply log record at line %d: %w", lineNo, err)
		}
		stats.Applied++
	}

	return stats, nil
}

// Close flushes, syncs, and closes the log file. It is safe to call more
// than once.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var flushErr error
	if l.failed == nil {
		if err := l.writer.Flush(); err != nil {
			flushErr = fmt.Errorf("failed to flush log: %w", err)
		} else if err := l.file.Sync(); err != nil {
			flushErr = fmt.Errorf("failed to sync log: %w", err)
		}
	}
	if err := l.file.Close(); err != nil && flushErr == nil {
		return fmt.Errorf("failed to close log: %w", err)
	}
	return flushErr
}
