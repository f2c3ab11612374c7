package common

import "fmt"

// PolicySize is the number of UCI move labels a policy vector covers:
// queen-like and knight moves from every square plus under/over promotions.
const PolicySize = 1968

var (
	moveLabels  []string
	labelIndex  map[string]int
	mirrorIndex []int
)

func init() {
	moveLabels = createMoveLabels()
	if len(moveLabels) != PolicySize {
		panic(fmt.Sprintf("move labels size %v", len(moveLabels)))
	}
	labelIndex = make(map[string]int, len(moveLabels))
	for i, label := range moveLabels {
		labelIndex[label] = i
	}
	mirrorIndex = make([]int, len(moveLabels))
	for i, label := range moveLabels {
		var index, found = labelIndex[mirrorLabel(label)]
		if !found {
			panic("mirror label not found " + label)
		}
		mirrorIndex[i] = index
	}
}

func MoveLabelIndex(uci string) (int, bool) {
	var index, found = labelIndex[uci]
	return index, found
}

// MirrorPolicy maps a policy over moves to the same policy seen from the other side.
// Applying it twice returns the original vector.
func MirrorPolicy(policy []float32) []float32 {
	if len(policy) != PolicySize {
		panic(fmt.Sprintf("policy size %v", len(policy)))
	}
	var result = make([]float32, len(policy))
	for i, index := range mirrorIndex {
		result[i] = policy[index]
	}
	return result
}

func createMoveLabels() []string {
	var result []string
	var knightDeltas = [8][2]int{{-2, -1}, {-1, -2}, {-2, 1}, {1, -2}, {2, -1}, {-1, 2}, {2, 1}, {1, 2}}
	for file1 := FileA; file1 <= FileH; file1++ {
		for rank1 := Rank1; rank1 <= Rank8; rank1++ {
			var destinations [][2]int
			for t := 0; t < 8; t++ {
				destinations = append(destinations, [2]int{t, rank1})
			}
			for t := 0; t < 8; t++ {
				destinations = append(destinations, [2]int{file1, t})
			}
			for t := -7; t <= 7; t++ {
				destinations = append(destinations, [2]int{file1 + t, rank1 + t})
			}
			for t := -7; t <= 7; t++ {
				destinations = append(destinations, [2]int{file1 + t, rank1 - t})
			}
			for _, d := range knightDeltas {
				destinations = append(destinations, [2]int{file1 + d[0], rank1 + d[1]})
			}
			for _, d := range destinations {
				var file2, rank2 = d[0], d[1]
				if file2 == file1 && rank2 == rank1 {
					continue
				}
				if file2 < FileA || file2 > FileH || rank2 < Rank1 || rank2 > Rank8 {
					continue
				}
				result = append(result,
					SquareName(MakeSquare(file1, rank1))+SquareName(MakeSquare(file2, rank2)))
			}
		}
	}
	for file := FileA; file <= FileH; file++ {
		var l = string(fileNames[file])
		for _, p := range []string{"q", "r", "b", "n"} {
			result = append(result, l+"2"+l+"1"+p, l+"7"+l+"8"+p)
			if file > FileA {
				var left = string(fileNames[file-1])
				result = append(result, l+"2"+left+"1"+p, l+"7"+left+"8"+p)
			}
			if file < FileH {
				var right = string(fileNames[file+1])
				result = append(result, l+"2"+right+"1"+p, l+"7"+right+"8"+p)
			}
		}
	}
	return result
}

func mirrorLabel(label string) string {
	var result = []byte(label)
	for i, ch := range result {
		if ch >= '1' && ch <= '8' {
			result[i] = '1' + '8' - ch
		}
	}
	return string(result)
}
