package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/ChizhovVadim/CounterZero/internal/domain"
)

// gameItemJSON is the on-disk tuple [fen, policy, value].
type gameItemJSON [3]json.RawMessage

// ReadGame reads a game file. Files ending with .zst are zstd compressed.
func ReadGame(path string) ([]domain.GameItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, zstdExt) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	var raw []gameItemJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode game %v: %w", path, err)
	}
	var result = make([]domain.GameItem, len(raw))
	for i := range raw {
		var item = &result[i]
		if err := json.Unmarshal(raw[i][0], &item.Fen); err != nil {
			return nil, fmt.Errorf("decode game %v item %v fen: %w", path, i, err)
		}
		if err := json.Unmarshal(raw[i][1], &item.Policy); err != nil {
			return nil, fmt.Errorf("decode game %v item %v policy: %w", path, i, err)
		}
		if err := json.Unmarshal(raw[i][2], &item.Value); err != nil {
			return nil, fmt.Errorf("decode game %v item %v value: %w", path, i, err)
		}
	}
	return result, nil
}

// WriteGame writes a game file in the format ReadGame expects.
func WriteGame(path string, items []domain.GameItem) error {
	var raw = make([][3]interface{}, len(items))
	for i, item := range items {
		raw[i] = [3]interface{}{item.Fen, item.Policy, item.Value}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !strings.HasSuffix(path, zstdExt) {
		if err := json.NewEncoder(f).Encode(raw); err != nil {
			return err
		}
		return f.Close()
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(raw); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}
