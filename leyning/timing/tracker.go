package timing

import (
	"slices"
	"sync"
	"time"
)

// WordFunc reports the currently spoken word.
type WordFunc func() (index int, active bool)

// Tracker polls a WordFunc and reports changes of the spoken word.
type Tracker struct {
	word       WordFunc
	updateRate time.Duration

	mu      sync.Mutex
	current int
	active  bool
	running bool

	onChangeCallbacks []func(index int, active bool)

	stopCh chan struct{}
	done   chan struct{}
}

// NewTracker creates a tracker polling at updateRate.
func NewTracker(updateRate time.Duration, word WordFunc) *Tracker {
	return &Tracker{
		word:       word,
		updateRate: updateRate,
	}
}

// Start begins polling. Calling Start on a running tracker does nothing.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(t.stopCh, t.done)
}

// Stop halts polling and waits for the loop to exit.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopCh)
	done := t.done
	t.mu.Unlock()

	<-done
}

// Current returns the last observed word.
func (t *Tracker) Current() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.active
}

// OnWordChange registers a callback for word changes. Callbacks run on the
// polling goroutine.
func (t *Tracker) OnWordChange(callback func(index int, active bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChangeCallbacks = append(t.onChangeCallbacks, callback)
}

func (t *Tracker) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.updateRate)
	defer ticker.Stop()

	t.update()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.update()
		}
	}
}

// update samples the word and notifies on change.
func (t *Tracker) update() {
	index, active := t.word()
	if !active {
		index = 0
	}

	t.mu.Lock()
	if index == t.current && active == t.active {
		t.mu.Unlock()
		return
	}
	t.current, t.active = index, active
	callbacks := slices.Clone(t.onChangeCallbacks)
	t.mu.Unlock()

	for _, callback := range callbacks {
		if callback != nil {
			callback(index, active)
		}
	}
}
