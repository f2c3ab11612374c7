package eval

import (
	"math"

	"github.com/ChizhovVadim/CounterZero/pkg/common"
)

var pieceValues = [...]float64{
	common.Pawn:   1,
	common.Knight: 3,
	common.Bishop: 3.25,
	common.Rook:   5,
	common.Queen:  14,
	common.King:   3,
}

// Evaluate returns a material score in (-1, 1).
// The score is from white's point of view when absolute is set, otherwise from the side to move.
func Evaluate(b *common.Board, absolute bool) float64 {
	var balance, total float64
	for _, piece := range b.Squares {
		if piece.Type == common.Empty {
			continue
		}
		var v = pieceValues[piece.Type]
		if piece.White {
			balance += v
		} else {
			balance -= v
		}
		total += v
	}
	if total == 0 {
		return 0
	}
	var score = balance / total
	if !absolute && !b.WhiteMove {
		score = -score
	}
	return math.Tanh(3 * score)
}
