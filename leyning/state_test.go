package leyning

import "testing"

// TestControllerStateString tests the String() method for ControllerState.
func TestControllerStateString(t *testing.T) {
	tests := []struct {
		state    ControllerState
		expected string
	}{
		{StateNoSource, "no-source"},
		{StateInitializing, "initializing"},
		{StateIdle, "idle"},
		{StatePlaying, "playing"},
		{StateSeeking, "seeking"},
		{StateFinished, "finished"},
		{ControllerState(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.state.String(); result != tt.expected {
				t.Errorf("ControllerState.String() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAcceptsTransport(t *testing.T) {
	tests := []struct {
		state ControllerState
		want  bool
	}{
		{StateNoSource, false},
		{StateInitializing, false},
		{StateIdle, true},
		{StatePlaying, true},
		{StateSeeking, true},
		{StateFinished, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.AcceptsTransport(); got != tt.want {
				t.Errorf("AcceptsTransport() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestStateMachineTransitions tests valid and invalid transitions.
func TestStateMachineTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  ControllerState
		to    ControllerState
		valid bool
	}{
		{"initializing to idle", StateInitializing, StateIdle, true},
		{"initializing to playing", StateInitializing, StatePlaying, true},
		{"initializing to finished", StateInitializing, StateFinished, false},
		{"idle to seeking", StateIdle, StateSeeking, true},
		{"seeking to playing", StateSeeking, StatePlaying, true},
		{"playing to finished", StatePlaying, StateFinished, true},
		{"finished to seeking", StateFinished, StateSeeking, true},
		{"no source is terminal", StateNoSource, StateIdle, false},
		{"nothing returns to no source", StatePlaying, StateNoSource, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine(tt.from)
			if got := sm.Transition(tt.to); got != tt.valid {
				t.Errorf("Transition(%v -> %v) = %v, want %v", tt.from, tt.to, got, tt.valid)
			}
			want := tt.from
			if tt.valid {
				want = tt.to
			}
			if sm.Current() != want {
				t.Errorf("Current() = %v, want %v", sm.Current(), want)
			}
		})
	}
}

// TestStateMachineCallbacks tests enter and exit callbacks fire in order.
func TestStateMachineCallbacks(t *testing.T) {
	sm := NewStateMachine(StateIdle)

	var order []string
	sm.OnExit(StateIdle, func() { order = append(order, "exit idle") })
	sm.OnEnter(StatePlaying, func() { order = append(order, "enter playing") })

	if !sm.Transition(StatePlaying) {
		t.Fatal("idle -> playing should be valid")
	}

	if len(order) != 2 || order[0] != "exit idle" || order[1] != "enter playing" {
		t.Errorf("callback order = %v", order)
	}

	// Invalid transitions fire nothing.
	order = nil
	sm.Transition(StateNoSource)
	if len(order) != 0 {
		t.Errorf("callbacks fired on invalid transition: %v", order)
	}
}

func TestTrackStateString(t *testing.T) {
	if TrackReady.String() != "ready" || TrackFailed.String() != "failed" || TrackState(9).String() != "unknown" {
		t.Error("unexpected TrackState names")
	}
}
