package kv

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get("x"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() error = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryStore_LastWriteWins(t *testing.T) {
	s := NewMemoryStore()
	s.Put("x", "1")
	s.Put("x", "2")

	got, err := s.Get("x")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != "2" {
		t.Errorf("Get() = %q, want 2", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestMemoryStore_EmptyValueIsPresent(t *testing.T) {
	s := NewMemoryStore()
	s.Put("k", "")
	if v, err := s.Get("k"); err != nil || v != "" {
		t.Errorf("Get() = %q, %v", v, err)
	}
}

func TestMemoryStore_KeysSorted(t *testing.T) {
	s := NewMemoryStore()
	for _, k := range []string{"c", "a", "b"} {
		s.Put(k, k)
	}
	keys := s.Keys()
	if fmt.Sprint(keys) != "[a b c]" {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestMemoryStore_SnapshotIsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.Put("x", "1")

	snap := s.Snapshot()
	snap["x"] = "mutated"
	snap["y"] = "new"

	if v, _ := s.Get("x"); v != "1" {
		t.Errorf("store changed through snapshot: x = %q", v)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(2)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Put(fmt.Sprintf("k%d", i), fmt.Sprintf("%d", g))
			}
		}(g)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Get(fmt.Sprintf("k%d", i))
				s.Len()
			}
		}()
	}
	wg.Wait()

	if s.Len() != 100 {
		t.Errorf("Len() = %d, want 100", s.Len())
	}
}
