package dataset

import (
	"fmt"

	"github.com/ChizhovVadim/CounterZero/internal/domain"
	"github.com/ChizhovVadim/CounterZero/pkg/common"
	eval "github.com/ChizhovVadim/CounterZero/pkg/eval/material"
)

// ValueCertaintyPly is the game depth from which the recorded outcome is trusted fully.
const ValueCertaintyPly = 5

// Decode reads a game file and converts it to training examples.
func Decode(filename string) (domain.Examples, error) {
	var game, err = ReadGame(filename)
	if err != nil {
		return domain.Examples{}, err
	}
	examples, err := ConvertGame(game)
	if err != nil {
		return domain.Examples{}, fmt.Errorf("convert game %v: %w", filename, err)
	}
	return examples, nil
}

func ConvertGame(game []domain.GameItem) (domain.Examples, error) {
	var result = domain.Examples{
		States:   make([]float32, 0, len(game)*domain.StateSize),
		Policies: make([]float32, 0, len(game)*domain.PolicySize),
		Values:   make([]float32, 0, len(game)),
	}
	for i := range game {
		var item = &game[i]
		if len(item.Policy) != domain.PolicySize {
			return domain.Examples{}, fmt.Errorf("item %v: bad policy size %v", i, len(item.Policy))
		}
		var b, err = common.NewBoardFromFEN(item.Fen)
		if err != nil {
			return domain.Examples{}, fmt.Errorf("item %v: %w", i, err)
		}

		var policy = item.Policy
		if !b.WhiteMove {
			policy = common.MirrorPolicy(policy)
		}

		var staticEval = eval.Evaluate(&b, false)
		var value = TargetValue(item.Value, staticEval, b.MoveNumber)

		result.States = append(result.States, CanonicalPlanes(&b)...)
		result.Policies = append(result.Policies, policy...)
		result.Values = append(result.Values, float32(value))
	}
	return result, nil
}

// TargetValue blends the game outcome with the static evaluation.
// Early positions lean on the static evaluation, from ValueCertaintyPly on only the outcome counts.
func TargetValue(recorded, staticEval float64, ply int) float64 {
	var w = float64(common.Max(0, common.Min(ply, ValueCertaintyPly))) / ValueCertaintyPly
	return recorded*w + staticEval*(1-w)
}
