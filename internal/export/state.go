package export

import (
	"fmt"
	"sync"
)

// State is the lifecycle position of an Assembler.
type State int

// Idle -> Exporting -> Succeeded|Failed -> Idle.
const (
	StateIdle State = iota
	StateExporting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExporting:
		return "exporting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateIdle:      {StateExporting},
	StateExporting: {StateSucceeded, StateFailed},
	StateSucceeded: {StateIdle},
	StateFailed:    {StateIdle},
}

// TransitionFunc observes state changes.
type TransitionFunc func(from, to State)

type machine struct {
	mu        sync.Mutex
	state     State
	observers []TransitionFunc
}

func (m *machine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *machine) observe(fn TransitionFunc) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// advance moves to the next state, panicking on an illegal edge since that is a
// programming error inside this package.
func (m *machine) advance(to State) {
	m.mu.Lock()
	from := m.state
	allowed := false
	for _, s := range transitions[from] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		m.mu.Unlock()
		panic(fmt.Sprintf("export: illegal transition %s -> %s", from, to))
	}
	m.state = to
	observers := make([]TransitionFunc, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(from, to)
	}
}
