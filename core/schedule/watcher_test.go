package schedule

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestWatch(t *testing.T) {
	now := time.Date(2021, time.March, 1, 9, 0, 0, 0, time.UTC)
	win := Window{ID: "a1", Start: now.Add(-time.Hour), End: now.Add(time.Hour)}

	var mu sync.Mutex
	clock := now
	nowFunc = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second) // each tick advances the mocked clock
		return clock
	}
	defer func() { nowFunc = time.Now }()

	snaps := make(chan Snapshot, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		Watch(ctx, time.Millisecond, func() []Window { return []Window{win} }, func(ss []Snapshot) {
			for _, s := range ss {
				select {
				case snaps <- s:
				default:
				}
			}
		})
	}()

	// statuses must be re-derived on every tick
	first := <-snaps
	if first.Status != StatusActive {
		t.Errorf("Watch() status = %v, want %v", first.Status, StatusActive)
	}
	second := <-snaps
	if asSeconds(second.Remaining) > asSeconds(first.Remaining) {
		t.Errorf("Watch() remaining increased: %v -> %v", first.Remaining, second.Remaining)
	}

	// cancellation tears the loop down
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch() did not stop after cancellation")
	}
}

func TestWatch_observesBoundaryCrossing(t *testing.T) {
	now := time.Date(2021, time.March, 1, 9, 0, 0, 0, time.UTC)
	win := Window{ID: "a1", Start: now.Add(-time.Hour), End: now.Add(2 * time.Second)}

	var mu sync.Mutex
	clock := now
	nowFunc = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(5 * time.Second) // jump straight past the end bound
		return clock
	}
	defer func() { nowFunc = time.Now }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Status, 1)
	go Watch(ctx, time.Millisecond, func() []Window { return []Window{win} }, func(ss []Snapshot) {
		select {
		case got <- ss[0].Status:
		default:
		}
	})

	select {
	case st := <-got:
		if st != StatusEnded {
			t.Errorf("Watch() status = %v, want %v", st, StatusEnded)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch() produced no snapshot")
	}
}
