package loader

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/ChizhovVadim/CounterZero/internal/domain"
	"github.com/ChizhovVadim/CounterZero/internal/replay"
)

type Decoder interface {
	Decode(filename string) (domain.Examples, error)
}

type DecoderFunc func(filename string) (domain.Examples, error)

func (f DecoderFunc) Decode(filename string) (domain.Examples, error) {
	return f(filename)
}

type result struct {
	filename string
	examples domain.Examples
	err      error
}

// Loader decodes game files on a bounded pool and feeds the replay buffer.
type Loader struct {
	decoder    Decoder
	poolSize   int
	targetSize int
	logger     *log.Logger
	pending    []result

	// OnFile is called from the Fill caller's goroutine for every finished file.
	OnFile func(filename string, examples int, err error)
}

func NewLoader(decoder Decoder, poolSize, targetSize int, logger *log.Logger) *Loader {
	if poolSize < 1 {
		poolSize = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{
		decoder:    decoder,
		poolSize:   poolSize,
		targetSize: targetSize,
		logger:     logger,
	}
}

// Pending is the number of decoded files held back for the next Fill.
func (l *Loader) Pending() int {
	return len(l.pending)
}

// Fill decodes files from the front of the backlog until buf holds targetSize examples
// or the backlog is empty. At most poolSize files are decoded at once and every result
// is appended as soon as it arrives. Files that fail to decode contribute nothing.
// Tasks still running when the target is reached are awaited and their examples are
// appended by the next Fill. Fill reports whether any examples were appended.
func (l *Loader) Fill(ctx context.Context, buf *replay.Buffer, backlog *Backlog) (bool, error) {
	var updated bool
	for len(l.pending) != 0 && buf.Len() < l.targetSize {
		var r = l.pending[0]
		l.pending = l.pending[1:]
		if l.accept(buf, r) {
			updated = true
		}
	}
	if len(l.pending) == 0 {
		l.pending = nil
	}
	if buf.Len() >= l.targetSize || backlog.Len() == 0 {
		return updated, nil
	}

	var results = make(chan result, l.poolSize)
	var g errgroup.Group
	g.SetLimit(l.poolSize)

	var inFlight int
	var dispatch = func() {
		var filename, _ = backlog.Pop()
		inFlight++
		g.Go(func() error {
			results <- l.decode(filename)
			return nil
		})
	}

	for inFlight < l.poolSize && backlog.Len() != 0 {
		dispatch()
	}

	var err error
	for err == nil && inFlight != 0 && buf.Len() < l.targetSize {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case r := <-results:
			inFlight--
			if l.accept(buf, r) {
				updated = true
			}
			if buf.Len() < l.targetSize && backlog.Len() != 0 {
				dispatch()
			}
		}
	}

	g.Wait()
	close(results)
	for r := range results {
		l.pending = append(l.pending, r)
	}
	if len(l.pending) != 0 {
		l.logger.Println("fill stopped",
			"examples", buf.Len(),
			"pending", len(l.pending))
	}
	return updated, err
}

func (l *Loader) decode(filename string) (r result) {
	r.filename = filename
	defer func() {
		if p := recover(); p != nil {
			r.examples = domain.Examples{}
			r.err = fmt.Errorf("decode %v panic: %v", filename, p)
		}
	}()
	r.examples, r.err = l.decoder.Decode(filename)
	return r
}

func (l *Loader) accept(buf *replay.Buffer, r result) bool {
	var n = len(r.examples.Values)
	if r.err != nil {
		n = 0
		l.logger.Println("load game file failed",
			"filename", r.filename,
			"error", r.err)
	}
	if l.OnFile != nil {
		l.OnFile(r.filename, n, r.err)
	}
	if n == 0 {
		return false
	}
	buf.AppendMany(r.examples)
	return true
}
