package schedule

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a timed evaluation window.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
)

var nowFunc = time.Now // mockable

// StatusAt derives the lifecycle state of a [start, end] window at `now`.
// Both bounds are inclusive: an instant equal to start or end is active.
func StatusAt(now, start, end time.Time) Status {
	if now.Before(start) {
		return StatusUpcoming
	}
	if now.After(end) {
		return StatusEnded
	}
	return StatusActive
}

// Countdown is a duration decomposed into whole hours, minutes and seconds
// for display. Decomposition truncates, never rounds.
type Countdown struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func (c Countdown) String() string {
	return fmt.Sprintf("%dh %dm %ds", c.Hours, c.Minutes, c.Seconds)
}

// StartCountdown is a duration until a window opens, decomposed into whole
// hours and minutes only (seconds are dropped).
type StartCountdown struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

func (c StartCountdown) String() string {
	return fmt.Sprintf("%dh %dm", c.Hours, c.Minutes)
}

// Remaining reports the time left until `end`. It is only meaningful while
// the window is active; negative durations clamp to zero.
func Remaining(now, end time.Time) Countdown {
	d := end.Sub(now)
	if d < 0 {
		d = 0
	}
	return Countdown{
		Hours:   int(d / time.Hour),
		Minutes: int(d % time.Hour / time.Minute),
		Seconds: int(d % time.Minute / time.Second),
	}
}

// UntilStart reports the time left until `start`. It is only meaningful while
// the window is upcoming; negative durations clamp to zero.
func UntilStart(now, start time.Time) StartCountdown {
	d := start.Sub(now)
	if d < 0 {
		d = 0
	}
	return StartCountdown{
		Hours:   int(d / time.Hour),
		Minutes: int(d % time.Hour / time.Minute),
	}
}

// ParseInstant parses an ISO-8601/RFC3339 timestamp into a timezone-aware
// instant. Timestamps without an explicit offset are rejected: comparing
// naive local times against aware ones is a correctness hazard.
func ParseInstant(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
