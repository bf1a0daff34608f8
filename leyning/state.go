package leyning

// ControllerState is the aggregate state of a multi-track audio controller.
type ControllerState int

const (
	// StateNoSource means the reading has no synchronized audio.
	StateNoSource ControllerState = iota
	// StateInitializing means the current track's decoder is still resolving.
	StateInitializing
	// StateIdle means the current track is loaded and paused.
	StateIdle
	// StatePlaying means the current track is playing.
	StatePlaying
	// StateSeeking means a track switch is waiting for the new track to play.
	StateSeeking
	// StateFinished means the last track completed naturally.
	StateFinished
)

// String returns the string representation of the state.
func (s ControllerState) String() string {
	switch s {
	case StateNoSource:
		return "no-source"
	case StateInitializing:
		return "initializing"
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateSeeking:
		return "seeking"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// AcceptsTransport reports whether play, pause and toggle have any effect.
func (s ControllerState) AcceptsTransport() bool {
	return s != StateNoSource && s != StateInitializing
}

// TrackState is the lifecycle of a single audio track.
type TrackState int

const (
	TrackUninitialized TrackState = iota
	TrackLoading
	TrackReady
	TrackFailed
)

// String returns the string representation of the track state.
func (s TrackState) String() string {
	switch s {
	case TrackUninitialized:
		return "uninitialized"
	case TrackLoading:
		return "loading"
	case TrackReady:
		return "ready"
	case TrackFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateMachine manages controller state transitions. It is not safe for
// concurrent use; the owner serializes access.
type StateMachine struct {
	current     ControllerState
	transitions map[ControllerState][]ControllerState
	onEnter     map[ControllerState]func()
	onExit      map[ControllerState]func()
}

// NewStateMachine creates a state machine starting in the given state.
// NoSource is terminal.
func NewStateMachine(initial ControllerState) *StateMachine {
	return &StateMachine{
		current: initial,
		transitions: map[ControllerState][]ControllerState{
			StateNoSource:     {},
			StateInitializing: {StateIdle, StatePlaying, StateSeeking},
			StateIdle:         {StatePlaying, StateSeeking, StateInitializing, StateFinished},
			StatePlaying:      {StateIdle, StateSeeking, StateInitializing, StateFinished},
			StateSeeking:      {StatePlaying, StateIdle, StateInitializing, StateFinished},
			StateFinished:     {StateSeeking, StatePlaying, StateIdle, StateInitializing},
		},
		onEnter: make(map[ControllerState]func()),
		onExit:  make(map[ControllerState]func()),
	}
}

// CanTransition reports whether moving to the given state is allowed.
func (sm *StateMachine) CanTransition(to ControllerState) bool {
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			return true
		}
	}
	return false
}

// Transition attempts to transition to the specified state.
func (sm *StateMachine) Transition(to ControllerState) bool {
	if !sm.CanTransition(to) {
		return false
	}

	if exitFn, ok := sm.onExit[sm.current]; ok && exitFn != nil {
		exitFn()
	}

	sm.current = to

	if enterFn, ok := sm.onEnter[to]; ok && enterFn != nil {
		enterFn()
	}

	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() ControllerState {
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state ControllerState, fn func()) {
	sm.onEnter[state] = fn
}

// OnExit registers a callback for exiting a state.
func (sm *StateMachine) OnExit(state ControllerState, fn func()) {
	sm.onExit[state] = fn
}
