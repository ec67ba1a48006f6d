package tx

import (
	"context"
	"sync"
	"time"

	dErrors "condo/pkg/domain-errors"
)

// numShards spreads lock keys across mutexes so unrelated records do not
// contend with each other.
const numShards = 128

// MemoryRunner is the in-process Runner used with the in-memory stores.
// Transactions sharing a lock key are serialized. Writes are made visible
// immediately; stores register compensating actions with AddUndo and the
// runner replays them in reverse order when fn fails.
type MemoryRunner struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewMemoryRunner(timeout time.Duration) *MemoryRunner {
	return &MemoryRunner{timeout: timeout}
}

type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

type undoCtx struct{}

// AddUndo records a compensating action for the memory transaction bound to
// ctx. Outside a memory transaction it is a no-op.
func AddUndo(ctx context.Context, undo func()) {
	log, ok := ctx.Value(undoCtx{}).(*undoLog)
	if !ok {
		return
	}
	log.mu.Lock()
	log.steps = append(log.steps, undo)
	log.mu.Unlock()
}

func (l *undoLog) rollback() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.steps) - 1; i >= 0; i-- {
		l.steps[i]()
	}
	l.steps = nil
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoCtx{}).(*undoLog); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	ctx, cancel := withDeadline(ctx, r.timeout)
	defer cancel()

	shard := &r.shards[selectShard(lockKey(ctx))]
	shard.Lock()
	defer shard.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	log := &undoLog{}
	if err := fn(context.WithValue(ctx, undoCtx{}, log)); err != nil {
		log.rollback()
		return err
	}
	return nil
}

func selectShard(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % numShards)
}

// hashString is FNV-1a.
func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
