package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextState_Transitions(t *testing.T) {
	cases := []struct {
		name    string
		state   SyncState
		event   SyncEvent
		attempt int
		want    SyncState
	}{
		{"idle start", StateIdle, EventStart, 0, StateSyncing},
		{"online start", StateOnline, EventStart, 0, StateSyncing},
		{"idle lock busy", StateIdle, EventLockBusy, 0, StateLockedOut},
		{"running lock busy keeps state", StateRetrying, EventLockBusy, 0, StateRetrying},
		{"success", StateSyncing, EventSucceeded, 0, StateOnline},
		{"first retryable failure", StateSyncing, EventRetryableFailure, 1, StateRetrying},
		{"last allowed retry", StateSyncing, EventRetryableFailure, 5, StateRetrying},
		{"retries exhausted", StateSyncing, EventRetryableFailure, 6, StateError},
		{"fatal", StateSyncing, EventFatalFailure, 0, StateError},
		{"retry due", StateRetrying, EventRetryDue, 0, StateSyncing},
		{"cancel while waiting", StateRetrying, EventCancelled, 0, StateIdle},
		{"success outside a run is ignored", StateIdle, EventSucceeded, 0, StateIdle},
		{"cancel when idle is ignored", StateOnline, EventCancelled, 0, StateOnline},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextState(tc.state, tc.event, tc.attempt, 5))
		})
	}
}

func TestBackoff_DelayDoublesUpToCap(t *testing.T) {
	b := DefaultBackoff()
	want := []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 32 * time.Second,
		60 * time.Second, 60 * time.Second,
	}
	for n, w := range want {
		assert.Equal(t, w, b.Delay(n), "n=%d", n)
	}
	assert.Equal(t, 60*time.Second, b.Delay(200))
	assert.Equal(t, 2*time.Second, b.Delay(-1))
}

func TestBackoff_JitterBounds(t *testing.T) {
	b := DefaultBackoff()
	assert.Equal(t, 8*time.Second, b.Jittered(2, 0.5))
	assert.InDelta(t, float64(8*time.Second)*0.8, float64(b.Jittered(2, 0)), float64(time.Millisecond))
	assert.InDelta(t, float64(8*time.Second)*1.2, float64(b.Jittered(2, 0.999999999)), float64(time.Millisecond))

	noJitter := Backoff{Base: time.Second, Cap: time.Minute}
	assert.Equal(t, 4*time.Second, noJitter.Jittered(2, 0.1))
}
