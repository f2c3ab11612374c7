package replay

import (
	"fmt"

	"github.com/ChizhovVadim/CounterZero/internal/domain"
)

// Buffer is a FIFO window of training examples.
// States, policies and values live in three rings that share one head and one length,
// so they always hold the same number of examples.
// Buffer is not safe for concurrent use: it is owned by the training loop.
type Buffer struct {
	stateWidth  int
	policyWidth int
	states      []float32
	policies    []float32
	values      []float32
	head        int
	size        int
}

// NewBuffer creates a buffer for examples of domain.StateSize and domain.PolicySize.
func NewBuffer(capacity int) *Buffer {
	return NewBufferSize(capacity, domain.StateSize, domain.PolicySize)
}

func NewBufferSize(capacity, stateWidth, policyWidth int) *Buffer {
	var b = &Buffer{
		stateWidth:  stateWidth,
		policyWidth: policyWidth,
	}
	if capacity > 0 {
		b.alloc(capacity)
	}
	return b
}

func (b *Buffer) Len() int {
	return b.size
}

func (b *Buffer) Cap() int {
	return len(b.values)
}

// Bytes is the memory held by the rings.
func (b *Buffer) Bytes() int64 {
	return 4 * int64(len(b.states)+len(b.policies)+len(b.values))
}

// AppendMany adds examples at the back, keeping their order.
func (b *Buffer) AppendMany(e domain.Examples) {
	var n = len(e.Values)
	if len(e.States) != n*b.stateWidth || len(e.Policies) != n*b.policyWidth {
		panic(fmt.Sprintf("replay: inconsistent examples states=%v policies=%v values=%v",
			len(e.States), len(e.Policies), len(e.Values)))
	}
	if n == 0 {
		return
	}
	if b.size+n > b.Cap() {
		b.grow(b.size + n)
	}
	var capacity = b.Cap()
	for i := 0; i < n; {
		var tail = (b.head + b.size) % capacity
		var chunk = min(n-i, capacity-tail)
		copy(b.values[tail:tail+chunk], e.Values[i:i+chunk])
		copy(b.states[tail*b.stateWidth:(tail+chunk)*b.stateWidth],
			e.States[i*b.stateWidth:(i+chunk)*b.stateWidth])
		copy(b.policies[tail*b.policyWidth:(tail+chunk)*b.policyWidth],
			e.Policies[i*b.policyWidth:(i+chunk)*b.policyWidth])
		b.size += chunk
		i += chunk
	}
}

// TrimTo drops the oldest examples until at most maxSize remain.
func (b *Buffer) TrimTo(maxSize int) {
	if maxSize < 0 {
		maxSize = 0
	}
	if b.size <= maxSize {
		return
	}
	var drop = b.size - maxSize
	b.head = (b.head + drop) % b.Cap()
	b.size = maxSize
}

// Snapshot copies the window, oldest first, into dense arrays.
func (b *Buffer) Snapshot() domain.Batch {
	var result = domain.Batch{
		States:   make([]float32, b.size*b.stateWidth),
		Policies: make([]float32, b.size*b.policyWidth),
		Values:   make([]float32, b.size),
	}
	b.copyTo(result.States, result.Policies, result.Values)
	return result
}

func (b *Buffer) copyTo(states, policies, values []float32) {
	var capacity = b.Cap()
	for i := 0; i < b.size; {
		var from = (b.head + i) % capacity
		var chunk = min(b.size-i, capacity-from)
		copy(values[i:i+chunk], b.values[from:from+chunk])
		copy(states[i*b.stateWidth:(i+chunk)*b.stateWidth],
			b.states[from*b.stateWidth:(from+chunk)*b.stateWidth])
		copy(policies[i*b.policyWidth:(i+chunk)*b.policyWidth],
			b.policies[from*b.policyWidth:(from+chunk)*b.policyWidth])
		i += chunk
	}
}

func (b *Buffer) grow(required int) {
	var capacity = max(required, b.Cap()+b.Cap()/4)
	var states = make([]float32, capacity*b.stateWidth)
	var policies = make([]float32, capacity*b.policyWidth)
	var values = make([]float32, capacity)
	b.copyTo(states, policies, values)
	b.states, b.policies, b.values = states, policies, values
	b.head = 0
}

func (b *Buffer) alloc(capacity int) {
	b.states = make([]float32, capacity*b.stateWidth)
	b.policies = make([]float32, capacity*b.policyWidth)
	b.values = make([]float32, capacity)
	b.head = 0
	b.size = 0
}
