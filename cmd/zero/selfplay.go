package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/ChizhovVadim/CounterZero/internal/dataset"
	"github.com/ChizhovVadim/CounterZero/internal/domain"
	"github.com/ChizhovVadim/CounterZero/pkg/common"
)

type samplePly struct {
	fen  string
	move string
}

// sampleGame is a Ruy Lopez opening.
var sampleGame = []samplePly{
	{common.InitialPositionFen, "e2e4"},
	{"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", "e7e5"},
	{"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2", "g1f3"},
	{"rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2", "b8c6"},
	{"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3", "f1b5"},
	{"r1bqkbnr/pppp1ppp/2n5/1B2p3/4P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3", "a7a6"},
}

// sampleItems builds a game record with a policy concentrated on the played move
// and a random result, stored relative to the side to move.
func sampleItems(rnd *rand.Rand) ([]domain.GameItem, error) {
	var result = float64(rnd.Intn(3) - 1)
	var items = make([]domain.GameItem, 0, len(sampleGame))
	for _, ply := range sampleGame {
		var index, ok = common.MoveLabelIndex(ply.move)
		if !ok {
			return nil, fmt.Errorf("unknown move label %v", ply.move)
		}
		var policy = make([]float32, common.PolicySize)
		var noise = 0.1 * rnd.Float32()
		var other = rnd.Intn(common.PolicySize)
		policy[index] = 1 - noise
		policy[other] += noise
		var value = result
		if common.IsBlackTurn(ply.fen) {
			value = -value
		}
		items = append(items, domain.GameItem{
			Fen:    ply.fen,
			Policy: policy,
			Value:  value,
		})
	}
	return items, nil
}

func writeSampleGames(dir string, games int, compressed bool, rnd *rand.Rand) ([]string, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, err
	}
	var stamp = time.Now().Format("20060102-150405.000000")
	var paths []string
	for i := 0; i < games; i++ {
		items, err := sampleItems(rnd)
		if err != nil {
			return nil, err
		}
		var path = filepath.Join(dir, dataset.PlayFilename(fmt.Sprintf("%v-%04d", stamp, i), compressed))
		err = dataset.WriteGame(path, items)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func runSelfplaySample(args []string, logger *log.Logger) error {
	var flags = flag.NewFlagSet("selfplay-sample", flag.ContinueOnError)
	var dir = flags.String("data", "./data", "Directory to write game files to")
	var games = flags.Int("games", 10, "Number of games")
	var compressed = flags.Bool("zstd", false, "Write zstd compressed files")
	var seed = flags.Int64("seed", time.Now().UnixNano(), "Random seed")
	var err = flags.Parse(args)
	if err != nil {
		return err
	}
	paths, err := writeSampleGames(*dir, *games, *compressed, rand.New(rand.NewSource(*seed)))
	if err != nil {
		return err
	}
	logger.Println("Wrote sample games", len(paths), "to", *dir)
	return nil
}
