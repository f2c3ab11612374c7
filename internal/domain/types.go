package domain

import "github.com/ChizhovVadim/CounterZero/pkg/common"

const (
	PlaneCount = 18
	StateSize  = PlaneCount * 64
	PolicySize = common.PolicySize
)

// GameItem is one position of a self-play game as written by the play workers.
type GameItem struct {
	Fen    string
	Policy []float32
	Value  float64
}

// Examples holds decoded training examples as flat row-major arrays.
// States has StateSize values per example, Policies has PolicySize values per example.
type Examples struct {
	States   []float32
	Policies []float32
	Values   []float32
}

func (e *Examples) Len() int {
	return len(e.Values)
}

// Batch is a dense copy of a dataset handed to the fit step.
type Batch struct {
	States   []float32
	Policies []float32
	Values   []float32
}

func (b *Batch) Len() int {
	return len(b.Values)
}

func (b *Batch) State(i int) []float32 {
	return b.States[i*StateSize : (i+1)*StateSize]
}

func (b *Batch) Policy(i int) []float32 {
	return b.Policies[i*PolicySize : (i+1)*PolicySize]
}
