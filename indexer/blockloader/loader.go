// Package blockloader fetches a contiguous range of Bitcoin blocks in
// parallel and forwards them to the sub-indexers strictly in ascending,
// gap-free height order (spec.md §4.3).
package blockloader

import (
	"context"
	"errors"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pixelnode/pixeld/chainrpc"
	"golang.org/x/sync/errgroup"
)

// Config parameterizes a single loading run.
type Config struct {
	Source chainrpc.Source

	// ChunkSize is the number of heights partitioned into one fetch
	// round (spec.md §4.3 rule 2).
	ChunkSize int

	// WorkerCount bounds how many heights are fetched concurrently.
	WorkerCount int

	// Confirmations is the confirmation depth subtracted from the best
	// height to compute the safe fetch target (spec.md §4.3 rule 1).
	Confirmations int32

	// RetryBackoff is how long a worker sleeps after a rate-limit error
	// before retrying the same height (spec.md §4.3 rule 4).
	RetryBackoff time.Duration
}

// LoadedBlock is a single fetched block, tagged with its height.
type LoadedBlock struct {
	Height int32
	Hash   chainhash.Hash
	Block  *wire.MsgBlock
}

// Result is one item on the loader's output channel: either a contiguous
// prefix of newly loaded blocks, or a terminal Finished/Cancelled signal.
type Result struct {
	Blocks    []LoadedBlock
	Finished  bool
	Cancelled bool
}

// Loader drives one parallel block-fetching run.
type Loader struct {
	cfg Config
}

// New returns a Loader configured by cfg.
func New(cfg Config) *Loader {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	return &Loader{cfg: cfg}
}

// Run starts loading blocks from startHeight through the confirmation-safe
// target height. The returned channel is closed once a terminal Result
// (Finished or Cancelled) has been sent.
func (l *Loader) Run(ctx context.Context, startHeight int32) (<-chan Result, error) {
	best, err := l.cfg.Source.BestHeight()
	if err != nil {
		return nil, err
	}

	target := best - (l.cfg.Confirmations - 1)
	out := make(chan Result, 1)

	if startHeight > target {
		go func() {
			defer close(out)
			out <- Result{Finished: true}
		}()
		return out, nil
	}

	chunks := partition(startHeight, target, int32(l.cfg.ChunkSize))

	go func() {
		defer close(out)
		for _, chunk := range chunks {
			if cancelled := l.loadChunk(ctx, out, chunk); cancelled {
				out <- Result{Cancelled: true}
				return
			}
		}
		out <- Result{Finished: true}
	}()

	return out, nil
}

// partition splits [start, end] into contiguous chunks of at most size
// heights each.
func partition(start, end, size int32) [][]int32 {
	if start > end {
		return nil
	}
	var chunks [][]int32
	for h := start; h <= end; h += size {
		top := h + size - 1
		if top > end {
			top = end
		}
		chunk := make([]int32, 0, top-h+1)
		for height := h; height <= top; height++ {
			chunk = append(chunk, height)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// loadChunk fetches every height in chunk with bounded concurrency,
// forwarding the longest contiguous ascending prefix to out as soon as it
// becomes available (spec.md §4.3 rules 3 and 5). It returns true if the
// context was cancelled before the chunk finished.
func (l *Loader) loadChunk(ctx context.Context, out chan<- Result, chunk []int32) bool {
	if len(chunk) == 0 {
		return false
	}

	resCh := make(chan LoadedBlock, len(chunk))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.WorkerCount)

	for _, height := range chunk {
		height := height
		g.Go(func() error {
			lb, err := l.fetchWithRetry(gCtx, height)
			if err != nil {
				return err
			}
			select {
			case resCh <- lb:
			case <-gCtx.Done():
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(resCh)
	}()

	pending := make(map[int32]LoadedBlock, len(chunk))
	next := chunk[0]
	last := chunk[len(chunk)-1]

	for {
		lb, ok := <-resCh
		if !ok {
			return <-done != nil
		}

		pending[lb.Height] = lb

		var ready []LoadedBlock
		for {
			got, has := pending[next]
			if !has {
				break
			}
			ready = append(ready, got)
			delete(pending, next)
			if next == last {
				break
			}
			next++
		}

		if len(ready) == 0 {
			continue
		}

		select {
		case out <- Result{Blocks: ready}:
		case <-ctx.Done():
			return true
		}
	}
}

// fetchWithRetry fetches one block by height, retrying forever (sleeping
// RetryBackoff between attempts after a rate-limit error) until it
// succeeds or ctx is cancelled (spec.md §4.3 rule 4).
func (l *Loader) fetchWithRetry(ctx context.Context, height int32) (LoadedBlock, error) {
	for {
		if err := ctx.Err(); err != nil {
			return LoadedBlock{}, err
		}

		hash, err := l.cfg.Source.BlockHashByHeight(height)
		if err == nil {
			var block *wire.MsgBlock
			block, err = l.cfg.Source.BlockByHash(hash)
			if err == nil {
				return LoadedBlock{Height: height, Hash: *hash, Block: block}, nil
			}
		}

		wait := time.Duration(0)
		if errors.Is(err, chainrpc.ErrRateLimited) {
			wait = l.cfg.RetryBackoff
		}
		log.Debugf("BLKL: fetch height %d failed (%v), retrying in %s", height, err, wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return LoadedBlock{}, ctx.Err()
		}
	}
}
