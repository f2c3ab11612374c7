package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ChizhovVadim/CounterZero/internal/domain"
	"github.com/ChizhovVadim/CounterZero/pkg/common"
)

func oneHotPolicy(t *testing.T, uci string) []float32 {
	t.Helper()
	var index, found = common.MoveLabelIndex(uci)
	if !found {
		t.Fatal("label not found", uci)
	}
	var policy = make([]float32, domain.PolicySize)
	policy[index] = 1
	return policy
}

func TestTargetValue(t *testing.T) {
	var pairs = [][2]float64{{1, -0.3}, {-1, 0.8}, {0, 0}, {0.25, 0.5}}
	for _, pair := range pairs {
		var recorded, staticEval = pair[0], pair[1]
		if got := TargetValue(recorded, staticEval, 0); got != staticEval {
			t.Error("ply 0", got, staticEval)
		}
		for _, ply := range []int{5, 6, 40} {
			if got := TargetValue(recorded, staticEval, ply); got != recorded {
				t.Error("ply", ply, got, recorded)
			}
		}
		var lo, hi = math.Min(recorded, staticEval), math.Max(recorded, staticEval)
		var prev = TargetValue(recorded, staticEval, 0)
		for ply := 1; ply <= ValueCertaintyPly; ply++ {
			var got = TargetValue(recorded, staticEval, ply)
			if got < lo-1e-12 || got > hi+1e-12 {
				t.Error("out of bounds", ply, got, lo, hi)
			}
			if math.Abs(got-prev) > math.Abs(recorded-staticEval)/ValueCertaintyPly+1e-12 {
				t.Error("jump", ply, prev, got)
			}
			prev = got
		}
	}
}

func TestDecodeMirrorsPolicyForBlackOnly(t *testing.T) {
	for _, name := range []string{PlayFilename("0001", false), PlayFilename("0002", true)} {
		t.Run(name, func(t *testing.T) {
			var path = filepath.Join(t.TempDir(), name)
			var game = []domain.GameItem{
				{Fen: common.InitialPositionFen, Policy: oneHotPolicy(t, "e2e4"), Value: 0.5},
				{Fen: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", Policy: oneHotPolicy(t, "e7e5"), Value: -0.5},
			}
			if err := WriteGame(path, game); err != nil {
				t.Fatal(err)
			}
			var examples, err = Decode(path)
			if err != nil {
				t.Fatal(err)
			}
			if examples.Len() != 2 || len(examples.States) != 2*domain.StateSize || len(examples.Policies) != 2*domain.PolicySize {
				t.Fatal(examples.Len(), len(examples.States), len(examples.Policies))
			}
			var e2e4, _ = common.MoveLabelIndex("e2e4")
			var e7e5, _ = common.MoveLabelIndex("e7e5")
			var white = examples.Policies[:domain.PolicySize]
			var black = examples.Policies[domain.PolicySize:]
			if white[e2e4] != 1 {
				t.Error("white policy changed")
			}
			if black[e2e4] != 1 || black[e7e5] != 0 {
				t.Error("black policy not mirrored")
			}
			// move number 1: w = 0.2, static eval is 0 for equal material
			if math.Abs(float64(examples.Values[0])-0.1) > 1e-6 {
				t.Error(examples.Values[0])
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	var dir = t.TempDir()

	var badJSON = filepath.Join(dir, "play_bad.json")
	if err := os.WriteFile(badJSON, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(badJSON); err == nil {
		t.Error("expected error for bad json")
	}

	var badPolicy = filepath.Join(dir, "play_policy.json")
	if err := WriteGame(badPolicy, []domain.GameItem{{Fen: common.InitialPositionFen, Policy: []float32{1}}}); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(badPolicy); err == nil {
		t.Error("expected error for bad policy size")
	}

	var badFen = filepath.Join(dir, "play_fen.json")
	if err := WriteGame(badFen, []domain.GameItem{{Fen: "garbage", Policy: make([]float32, domain.PolicySize)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(badFen); err == nil {
		t.Error("expected error for bad fen")
	}

	if _, err := Decode(filepath.Join(dir, "play_missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCanonicalPlanes(t *testing.T) {
	var white, err = common.NewBoardFromFEN(common.InitialPositionFen)
	if err != nil {
		t.Fatal(err)
	}
	var planes = CanonicalPlanes(&white)
	if len(planes) != domain.StateSize {
		t.Fatal(len(planes))
	}
	// white king on e1: plane 0, row 7, file 4
	if planes[0*64+7*8+4] != 1 {
		t.Error("white king")
	}
	// black king on e8: plane 6, row 0, file 4
	if planes[6*64+0*8+4] != 1 {
		t.Error("black king")
	}
	for plane := castlingPlanes; plane < castlingPlanes+4; plane++ {
		if planes[plane*64] != 1 || planes[plane*64+63] != 1 {
			t.Error("castling plane", plane)
		}
	}

	black, err := common.NewBoardFromFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	var blackPlanes = CanonicalPlanes(&black)
	for i := range planes {
		if planes[i] != blackPlanes[i] {
			t.Fatal("symmetric position differs at", i)
		}
	}
}

func TestCanonicalPlanesEnPassant(t *testing.T) {
	var b, err = common.NewBoardFromFEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 7 1")
	if err != nil {
		t.Fatal(err)
	}
	var planes = CanonicalPlanes(&b)
	// e3 seen from black is e6: row 2, file 4
	if planes[epPlane*64+2*8+4] != 1 {
		t.Error("en passant square")
	}
	if planes[fiftyPlane*64] != 7 {
		t.Error("fifty move plane", planes[fiftyPlane*64])
	}
}

func TestGameFiles(t *testing.T) {
	var dir = t.TempDir()
	for _, name := range []string{"play_b.json", "play_a.json.zst", "notes.txt", "play_c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "play_dir.json"), 0755); err != nil {
		t.Fatal(err)
	}
	var files, err = GameFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	var want = []string{filepath.Join(dir, "play_a.json.zst"), filepath.Join(dir, "play_b.json")}
	if len(files) != len(want) {
		t.Fatal(files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Error(files[i], want[i])
		}
	}
}

func TestGameFilesMissingFolder(t *testing.T) {
	var files, err = GameFiles(filepath.Join(t.TempDir(), "not_yet"))
	if err != nil || len(files) != 0 {
		t.Error(files, err)
	}
}
