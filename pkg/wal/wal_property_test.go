package wal

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// writesFrom pairs generated key indexes with values. A small key space
// makes overwrites common.
func writesFrom(keys []int, values []string) []Record {
	n := len(keys)
	if len(values) < n {
		n = len(values)
	}
	writes := make([]Record, n)
	for i := 0; i < n; i++ {
		writes[i] = Record{Key: string(rune('a' + keys[i])), Value: values[i]}
	}
	return writes
}

func lastWriteWins(writes []Record) map[string]string {
	state := make(map[string]string)
	for _, w := range writes {
		state[w.Key] = w.Value
	}
	return state
}

func replayInto(l *Log, state map[string]string) error {
	_, err := l.Replay(func(r Record) error {
		state[r.Key] = r.Value
		return nil
	})
	return err
}

func equalState(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// TestLogReplayProperties checks that replay reconstructs last-write-wins
// state for arbitrary write sequences, and that replaying again changes
// nothing.
func TestLogReplayProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	properties.Property("replay yields last value per key", prop.ForAll(
		func(keys []int, values []string) bool {
			writes := writesFrom(keys, values)

			l, err := Open(t.TempDir(), 1, Options{})
			if err != nil {
				return false
			}
			defer l.Close()

			for _, w := range writes {
				if err := l.Append(w.Key, w.Value); err != nil {
					return false
				}
			}

			state := make(map[string]string)
			if err := replayInto(l, state); err != nil {
				return false
			}
			return equalState(state, lastWriteWins(writes))
		},
		gen.SliceOf(gen.IntRange(0, 4)),
		gen.SliceOf(gen.AnyString()),
	))

	properties.Property("replaying twice equals replaying once", prop.ForAll(
		func(keys []int, values []string) bool {
			dir := t.TempDir()
			l, err := Open(dir, 1, Options{})
			if err != nil {
				return false
			}
			for _, w := range writesFrom(keys, values) {
				if err := l.Append(w.Key, w.Value); err != nil {
					l.Close()
					return false
				}
			}
			if err := l.Close(); err != nil {
				return false
			}

			reopened, err := Open(dir, 1, Options{})
			if err != nil {
				return false
			}
			defer reopened.Close()

			once := make(map[string]string)
			if err := replayInto(reopened, once); err != nil {
				return false
			}
			twice := make(map[string]string)
			if err := replayInto(reopened, twice); err != nil {
				return false
			}
			if err := replayInto(reopened, twice); err != nil {
				return false
			}
			return equalState(once, twice)
		},
		gen.SliceOf(gen.IntRange(0, 4)),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
