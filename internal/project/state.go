package project

import "fmt"

// State is the lifecycle position of a project. Transitions are strictly
// forward except the single Finishing->PhotosActive rollback edge.
type State string

const (
	StateCreated      State = "created"
	StatePhotosActive State = "photos_active"
	StateFinishing    State = "finishing"
	StateMerged       State = "merged"
	StateAbandoned    State = "abandoned"
)

// transitions enumerates every legal edge. Abandoned is reachable from any
// non-terminal state and is handled separately in CanTransition.
var transitions = map[State][]State{
	StateCreated:      {StatePhotosActive},
	StatePhotosActive: {StateFinishing},
	StateFinishing:    {StateMerged, StatePhotosActive}, // forward, or the one rollback edge
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateCreated, StatePhotosActive, StateFinishing, StateMerged, StateAbandoned:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == StateMerged || s == StateAbandoned }

// CanTransition reports whether the edge s -> to is legal.
func (s State) CanTransition(to State) bool {
	if to == StateAbandoned {
		return !s.Terminal()
	}
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns to if the edge is legal, or an error naming the
// rejected edge. It never skips intermediate states.
func (s State) Transition(to State) (State, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("illegal state transition %s -> %s", s, to)
	}
	return to, nil
}
