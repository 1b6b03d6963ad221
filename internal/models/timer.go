// internal/models/timer.go
package models

import (
	"encoding/json"
	"time"
)

// TimerKind names the sub-phase a countdown belongs to.
type TimerKind string

const (
	TimerQuestion   TimerKind = "QUESTION"
	TimerAnswering  TimerKind = "ANSWERING"
	TimerBidding    TimerKind = "BIDDING"
	TimerFinalPhase TimerKind = "FINAL_PHASE"
	TimerShowAnswer TimerKind = "SHOW_ANSWER"
)

// Timer describes the one outstanding countdown for a game. It is stored as
// a single expiring value; the store's expiration notification funnels the
// deadline back in as a queued action.
type Timer struct {
	Kind       TimerKind `json:"kind"`
	DurationMs int64     `json:"durationMs"`
	StartedAt  int64     `json:"startedAt"` // unix millis
	ElapsedMs  int64     `json:"elapsedMs"`
}

// NewTimer starts a countdown of the given duration now.
func NewTimer(kind TimerKind, d time.Duration) Timer {
	return Timer{
		Kind:       kind,
		DurationMs: d.Milliseconds(),
		StartedAt:  time.Now().UnixMilli(),
	}
}

// Remaining returns how much of the countdown is left, never negative.
func (t Timer) Remaining() time.Duration {
	rem := t.DurationMs - t.ElapsedMs
	if rem < 0 {
		rem = 0
	}
	return time.Duration(rem) * time.Millisecond
}

// Freeze records elapsed time at the pause instant so Unpause can resume with
// the remaining duration.
func (t Timer) Freeze(now time.Time) Timer {
	t.ElapsedMs += now.UnixMilli() - t.StartedAt
	if t.ElapsedMs > t.DurationMs {
		t.ElapsedMs = t.DurationMs
	}
	return t
}

// Marshal serializes the timer for the store.
func (t Timer) Marshal() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalTimer parses a stored timer value. Empty input yields nil.
func UnmarshalTimer(raw string) (*Timer, error) {
	if raw == "" {
		return nil, nil
	}
	var t Timer
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, err
	}
	return &t, nil
}
