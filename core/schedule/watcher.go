package schedule

import (
	"context"
	"time"
)

// DefaultInterval is the cadence at which displayed windows are re-derived.
const DefaultInterval = time.Second

type (
	// Window is a timed evaluation period under watch.
	Window struct {
		ID    string
		Start time.Time
		End   time.Time
	}

	// Snapshot is the state of a Window derived at one tick.
	Snapshot struct {
		ID         string         `json:"id"`
		Status     Status         `json:"status"`
		Remaining  Countdown      `json:"remaining"`   // meaningful while active
		UntilStart StartCountdown `json:"until_start"` // meaningful while upcoming
	}
)

// Derive computes the Snapshot of a single window at `now`.
func Derive(now time.Time, w Window) Snapshot {
	s := Snapshot{ID: w.ID, Status: StatusAt(now, w.Start, w.End)}
	switch s.Status {
	case StatusActive:
		s.Remaining = Remaining(now, w.End)
	case StatusUpcoming:
		s.UntilStart = UntilStart(now, w.Start)
	}
	return s
}

// Watch re-derives the status of every window returned by `windows` at a
// fixed cadence and hands the snapshots to `fn`. The status is derived anew
// on each tick so a boundary crossing between ticks is always observed.
// Watch blocks until ctx is canceled; the caller owns the loop and must
// cancel it when the displaying view is torn down.
func Watch(ctx context.Context, interval time.Duration, windows func() []Window, fn func([]Snapshot)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ws := windows()
			if len(ws) == 0 {
				continue
			}
			now := nowFunc()
			snaps := make([]Snapshot, 0, len(ws))
			for _, w := range ws {
				snaps = append(snaps, Derive(now, w))
			}
			fn(snaps)
		}
	}
}
