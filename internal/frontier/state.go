package frontier

import (
	"github.com/vburojevic/calltrace/internal/aggregate"
	"github.com/vburojevic/calltrace/internal/domain"
)

// State is a step of the traversal state machine
type State string

const (
	StateSeeding       State = "seeding"
	StateProcessing    State = "processing"
	StateExtracting    State = "extracting"
	StateExpanding     State = "expanding"
	StateDrained       State = "drained"
	StateDepthExceeded State = "depth_exceeded"
	StateCapReached    State = "cap_reached"
	StateCanceled      State = "canceled"
)

// Terminal reports whether s ends the traversal
func (s State) Terminal() bool {
	switch s {
	case StateDrained, StateDepthExceeded, StateCapReached, StateCanceled:
		return true
	}
	return false
}

func stopReason(s State) domain.StopReason {
	switch s {
	case StateDepthExceeded:
		return domain.StopDepthExceeded
	case StateCapReached:
		return domain.StopCapReached
	case StateCanceled:
		return domain.StopCanceled
	default:
		return domain.StopDrained
	}
}

// Observer receives progress callbacks. All calls happen on the
// coordinating goroutine.
type Observer interface {
	StateChanged(state State, depth int)
	DepthStarted(depth int, ids []domain.Identifier, targets []domain.SearchTarget)
	DepthDone(depth int, batch aggregate.Batch, history []domain.HistoryEntry)
	Discovered(id domain.Identifier)
}

// NopObserver ignores every callback
type NopObserver struct{}

func (NopObserver) StateChanged(State, int)                                      {}
func (NopObserver) DepthStarted(int, []domain.Identifier, []domain.SearchTarget) {}
func (NopObserver) DepthDone(int, aggregate.Batch, []domain.HistoryEntry)        {}
func (NopObserver) Discovered(domain.Identifier)                                 {}
