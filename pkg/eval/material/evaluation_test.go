package eval

import (
	"math"
	"testing"

	"github.com/ChizhovVadim/CounterZero/pkg/common"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		fen      string
		absolute bool
		want     float64
	}{
		{"initial", common.InitialPositionFen, false, 0},
		{"bare kings", "4k3/8/8/8/8/8/8/4K3 w - - 0 1", false, 0},
		{"extra rook white to move", "4k3/8/8/8/8/8/8/R3K3 w - - 0 1", false, math.Tanh(3 * 5.0 / 11)},
		{"extra rook black to move", "4k3/8/8/8/8/8/8/R3K3 b - - 0 1", false, -math.Tanh(3 * 5.0 / 11)},
		{"extra rook absolute", "4k3/8/8/8/8/8/8/R3K3 b - - 0 1", true, math.Tanh(3 * 5.0 / 11)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got, err = evaluateFEN(tt.fen, tt.absolute)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Error(got, tt.want)
			}
		})
	}
}

func TestEvaluateBounded(t *testing.T) {
	var got, err = evaluateFEN("4k3/8/8/8/8/8/8/QQQQKQQQ w - - 0 1", false)
	if err != nil {
		t.Fatal(err)
	}
	if got <= 0 || got >= 1 {
		t.Error(got)
	}
}

func evaluateFEN(fen string, absolute bool) (float64, error) {
	var b, err = common.NewBoardFromFEN(fen)
	if err != nil {
		return 0, err
	}
	return Evaluate(&b, absolute), nil
}
