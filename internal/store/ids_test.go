package store

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestIDSource_TimeDerived(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	src := NewIDSource(clock)

	if got, want := src.Next(), strconv.FormatInt(start.UnixMilli(), 10); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	clock.Advance(time.Second)
	if got, want := src.Next(), strconv.FormatInt(start.Add(time.Second).UnixMilli(), 10); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestIDSource_MonotonicWithinSameMillisecond(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := NewIDSource(clock)

	prev := int64(-1)
	for i := 0; i < 100; i++ {
		n, err := strconv.ParseInt(src.Next(), 10, 64)
		if err != nil {
			t.Fatalf("id is not numeric: %v", err)
		}
		if n <= prev {
			t.Fatalf("id %d does not increase over %d", n, prev)
		}
		prev = n
	}
}

func TestIDSource_Concurrent(t *testing.T) {
	src := NewIDSource(clockwork.NewFakeClock())

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := src.Next()
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate id %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 400 {
		t.Fatalf("expected 400 ids, got %d", len(seen))
	}
}
