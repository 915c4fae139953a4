package database

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of hashes calculated between checks for
// cancellation and progress reports.
const DefaultBatchSize = 5_000

// SearchConfig describes the part of the nonce space a searcher covers.
// A searcher starts at Start and moves by Stride, so concurrent searchers
// given different starts and the same stride never try the same nonce.
type SearchConfig struct {
	Start     uint64
	Stride    uint64
	BatchSize uint64
	Progress  func(Progress)
}

// Progress represents a report on a nonce search that is underway.
type Progress struct {
	Nonce    uint64        `json:"nonce"`
	Attempts uint64        `json:"attempts"`
	Elapsed  time.Duration `json:"elapsed"`
	HashRate float64       `json:"hashRate"`
}

func (cfg SearchConfig) withDefaults() SearchConfig {
	if cfg.Stride == 0 {
		cfg.Stride = 1
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return cfg
}

// =============================================================================

// POW performs the work to find a nonce that gives the template a hash with
// difficulty leading zeros. The first nonce that solves the puzzle wins,
// so the result is reproducible for the same template and start nonce.
// There is no bound on the number of attempts, the search only stops when
// a solution is found or the context is cancelled.
func POW(ctx context.Context, tmpl Template, difficulty uint, cfg SearchConfig, ev EventHandler) (Block, error) {
	ev = ev.safe()
	cfg = cfg.withDefaults()

	if difficulty > MaxDifficulty {
		return Block{}, fmt.Errorf("%w: %d", ErrInvalidDifficulty, difficulty)
	}

	ev("database: POW: MINING: started: blk[%d]: start[%d]: stride[%d]", tmpl.Index, cfg.Start, cfg.Stride)
	defer ev("database: POW: MINING: completed: blk[%d]", tmpl.Index)

	h := newHasher(tmpl)
	start := time.Now()
	nonce := cfg.Start

	var attempts uint64
	for {

		// Give control back to the scheduler between batches so the
		// cancellation and progress reports are observed.
		if attempts%cfg.BatchSize == 0 {
			if ctx.Err() != nil {
				ev("database: POW: MINING: CANCELLED: attempts[%d]", attempts)
				return Block{}, ctx.Err()
			}

			if attempts > 0 {
				if cfg.Progress != nil {
					cfg.Progress(newProgress(nonce, attempts, time.Since(start)))
				}
				runtime.Gosched()
			}
		}

		attempts++

		hash := h.hash(nonce)
		if !isHashSolved(difficulty, hash) {
			nonce += cfg.Stride
			continue
		}

		ev("database: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", tmpl.PreviousHash, hash, attempts)

		block := Block{
			Index:        tmpl.Index,
			Hash:         hash,
			PreviousHash: tmpl.PreviousHash,
			Data:         tmpl.Data,
			Timestamp:    tmpl.Timestamp,
			Nonce:        nonce,
			Difficulty:   difficulty,
		}

		return block, nil
	}
}

// ParallelPOW splits the nonce space across the specified number of
// searchers. Searcher i tries Start+i, Start+i+workers and so on. The first
// searcher to report a solution wins and every other searcher is cancelled.
func ParallelPOW(ctx context.Context, tmpl Template, difficulty uint, workers int, cfg SearchConfig, ev EventHandler) (Block, error) {
	ev = ev.safe()
	cfg = cfg.withDefaults()

	if workers <= 1 {
		return POW(ctx, tmpl, difficulty, cfg, ev)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Combine the reports of all the searchers into one total.
	var total atomic.Uint64
	start := time.Now()
	progress := func(p Progress) {}
	if cfg.Progress != nil {
		var mu sync.Mutex
		progress = func(p Progress) {
			attempts := total.Add(cfg.BatchSize)

			mu.Lock()
			defer mu.Unlock()
			cfg.Progress(newProgress(p.Nonce, attempts, time.Since(start)))
		}
	}

	var (
		once  sync.Once
		found Block
		won   bool
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := range workers {
		wcfg := SearchConfig{
			Start:     cfg.Start + uint64(i)*cfg.Stride,
			Stride:    cfg.Stride * uint64(workers),
			BatchSize: cfg.BatchSize,
			Progress:  progress,
		}

		g.Go(func() error {
			block, err := POW(gctx, tmpl, difficulty, wcfg, ev)
			if err != nil {
				return err
			}

			once.Do(func() {
				found = block
				won = true
				ev("database: ParallelPOW: MINING: searcher[%d] won: nonce[%d]", i, block.Nonce)
			})
			cancel()

			return nil
		})
	}

	err := g.Wait()
	if won {
		return found, nil
	}

	if err == nil {
		err = ctx.Err()
	}

	return Block{}, err
}

func newProgress(nonce uint64, attempts uint64, elapsed time.Duration) Progress {
	var rate float64
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(attempts) / secs
	}

	return Progress{
		Nonce:    nonce,
		Attempts: attempts,
		Elapsed:  elapsed,
		HashRate: rate,
	}
}
