package intercept

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
)

// State is the lifecycle position of an Invocation.
type State int32

const (
	StateUnknown State = iota
	StateStarted
	StateExecuting
	StateCompleted
	StatePolicyApplied
	StateDelivered
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StatePolicyApplied:
		return "policy_applied"
	case StateDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// Mode is how an invocation's outcome is delivered.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// Invocation is one call to a target method, tracked through delivery.
// An Invocation may be passed to the pipeline once; it is owned by the
// pipeline until its outcome is delivered.
type Invocation struct {
	ID   string
	Key  policy.MethodKey
	Args []any

	async     atomic.Bool
	state     atomic.Int32
	delivered atomic.Bool
	recorded  atomic.Bool
}

// NewInvocation creates an invocation of key with args.
func NewInvocation(key policy.MethodKey, args ...any) *Invocation {
	inv := &Invocation{
		ID:   uuid.New().String(),
		Key:  key,
		Args: args,
	}
	inv.state.Store(int32(StateStarted))
	return inv
}

// State returns the current lifecycle state.
func (inv *Invocation) State() State {
	return State(inv.state.Load())
}

// IsAsync reports whether the invocation entered through InvokeAsync.
func (inv *Invocation) IsAsync() bool {
	return inv.async.Load()
}

// Mode returns the delivery mode.
func (inv *Invocation) Mode() Mode {
	if inv.IsAsync() {
		return ModeAsync
	}
	return ModeSync
}

// begin moves a fresh invocation into Executing. It fails if the invocation
// was already handed to a pipeline.
func (inv *Invocation) begin(async bool) bool {
	if !inv.state.CompareAndSwap(int32(StateStarted), int32(StateExecuting)) {
		return false
	}
	inv.async.Store(async)
	return true
}

func (inv *Invocation) advance(s State) {
	inv.state.Store(int32(s))
}

// markDelivered reports whether this is the first delivery.
func (inv *Invocation) markDelivered() bool {
	if !inv.delivered.CompareAndSwap(false, true) {
		return false
	}
	inv.advance(StateDelivered)
	return true
}

// Recorded reports whether a record of this invocation's failure was
// accepted by the recorder.
func (inv *Invocation) Recorded() bool {
	return inv.recorded.Load()
}

func (inv *Invocation) markRecorded() {
	inv.recorded.Store(true)
}
