package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/RiemaLabs/modular-indexer-ordinals/internal/metrics"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/getter"
	"github.com/RiemaLabs/modular-indexer-ordinals/storage"
)

type State int32

const (
	StateUninitialized State = iota
	StateCatchingUp
	StateSynced
	StateRollingBack
)

var stateNames = [...]string{"uninitialized", "catching-up", "synced", "rolling-back"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

var stageOfState = map[State]float64{
	StateUninitialized: metrics.StageInitializing,
	StateCatchingUp:    metrics.StageCatchup,
	StateSynced:        metrics.StageSynced,
	StateRollingBack:   metrics.StageRollingBack,
}

// errReorg is raised when a fetched block does not build on the tip.
var errReorg = errors.New("block does not connect to the tip")

type CommitEvent struct {
	Height     ord.Height
	Hash       chainhash.Hash
	Commitment Commitment
	Result     *BlockResult
}

type RollbackEvent struct {
	Height ord.Height
	Hash   chainhash.Hash
}

// Builder replays the chain block by block into the store. It is the only
// writer of the store.
type Builder struct {
	store  *storage.Store
	getter getter.BlockGetter
	cfg    Config
	log    *logrus.Entry

	mu             sync.RWMutex
	state          State
	tip            storage.Tip
	hasTip         bool
	prevCommitment Commitment

	onCommit   []func(CommitEvent)
	onRollback []func(RollbackEvent)
}

func NewBuilder(store *storage.Store, g getter.BlockGetter, cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store.ReadOnly() {
		return nil, storage.ErrReadOnly
	}
	b := &Builder{
		store:  store,
		getter: g,
		cfg:    cfg,
		log:    logrus.WithField("component", "builder"),
	}
	if err := b.reloadTip(); err != nil {
		return nil, err
	}
	if b.hasTip && cfg.FeeAttribution != FeesNextBlock && len(b.tip.CarriedFees) > 0 {
		return nil, fmt.Errorf("%w: the store carries fees into height %d, it was built with %s fee attribution",
			ord.ErrConfiguration, b.tip.Height+1, FeesNextBlock)
	}
	b.setState(StateUninitialized)
	return b, nil
}

func (b *Builder) reloadTip() error {
	tip, ok, err := b.store.Tip()
	if err != nil {
		return err
	}
	var prev Commitment
	if ok {
		if prev, err = loadCommitment(b.store, tip.Height); err != nil {
			return err
		}
	}
	b.mu.Lock()
	b.tip, b.hasTip, b.prevCommitment = tip, ok, prev
	b.mu.Unlock()
	if ok {
		metrics.CurrentHeight.Set(float64(tip.Height))
	}
	return nil
}

// OnCommit registers fn to run after every committed height.
func (b *Builder) OnCommit(fn func(CommitEvent)) {
	b.onCommit = append(b.onCommit, fn)
}

// OnRollback registers fn to run after every rolled back height.
func (b *Builder) OnRollback(fn func(RollbackEvent)) {
	b.onRollback = append(b.onRollback, fn)
}

func (b *Builder) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Builder) setState(s State) {
	b.mu.Lock()
	prev := b.state
	b.state = s
	b.mu.Unlock()
	metrics.Stage.Set(stageOfState[s])
	if s == StateRollingBack && prev != StateRollingBack {
		metrics.Reorgs.Inc()
	}
	if s != prev {
		b.log.WithField("state", s).Info("State changed")
	}
}

// Tip returns the last committed tip, or false before the first commit.
func (b *Builder) Tip() (storage.Tip, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tip, b.hasTip
}

func (b *Builder) nextHeight() ord.Height {
	tip, ok := b.Tip()
	if !ok {
		return 0
	}
	return tip.Height + 1
}

func (b *Builder) stopReached() bool {
	tip, ok := b.Tip()
	return b.cfg.StopHeight > 0 && ok && tip.Height >= b.cfg.StopHeight
}

// apply executes block on top of the tip and commits the result atomically.
func (b *Builder) apply(block *getter.Block) (*CommitEvent, error) {
	started := time.Now()
	tip, hasTip := b.Tip()
	height, hash := block.Header.Height, block.Header.Hash

	if want := b.nextHeight(); height != want {
		return nil, integrity(height, hash, "blocks arrive in height order", fmt.Errorf("expected height %d", want))
	}
	if hasTip && block.Header.PrevHash != tip.Hash {
		return nil, errReorg
	}

	header := b.store.NewHeader(height, hash)
	if _, exists, err := header.Get(storage.HashKey(hash)); err != nil {
		return nil, err
	} else if exists {
		return nil, integrity(height, hash, "committed heights have distinct hashes", nil)
	}
	if err := header.Put(storage.HeightKey(height), hash[:]); err != nil {
		return nil, err
	}
	if err := header.Put(storage.HashKey(hash), storage.EncodeHeight(height)); err != nil {
		return nil, err
	}

	result, err := Exec(header, block, tip.CarriedFees, b.cfg.FeeAttribution)
	if err != nil {
		return nil, err
	}

	newTip := storage.Tip{Height: height, Hash: hash, CarriedFees: result.Carried}
	if err := header.Put(storage.TipKey, storage.EncodeTip(newTip)); err != nil {
		return nil, err
	}

	b.mu.RLock()
	prev := b.prevCommitment
	b.mu.RUnlock()
	journal := header.Journal().Encode()
	commitment := NextCommitment(prev, height, hash, journal)
	header.PutMeta(storage.JournalKey(height), journal)
	header.PutMeta(storage.CommitmentKey(height), commitment[:])
	if uint64(height) >= b.cfg.JournalDepth {
		header.DeleteMeta(storage.JournalKey(height - ord.Height(b.cfg.JournalDepth)))
	}

	if err := b.store.Commit(header); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.tip, b.hasTip, b.prevCommitment = newTip, true, commitment
	b.mu.Unlock()

	metrics.CurrentHeight.Set(float64(height))
	metrics.ObserveBlock("commit", started)
	b.log.WithFields(logrus.Fields{
		"height":  height,
		"hash":    hash,
		"txs":     len(block.Transactions),
		"created": len(result.Created),
		"spent":   len(result.Spent),
	}).Debug("Committed block")

	event := &CommitEvent{Height: height, Hash: hash, Commitment: commitment, Result: result}
	for _, fn := range b.onCommit {
		fn(*event)
	}
	return event, nil
}

// rollback removes the tip height in one atomic batch.
func (b *Builder) rollback() error {
	tip, ok := b.Tip()
	if !ok {
		return integrity(0, chainhash.Hash{}, "the genesis block never reorganizes", nil)
	}
	b.setState(StateRollingBack)

	_, err := b.store.Rollback(tip.Height, storage.CommitmentKey(tip.Height))
	switch {
	case errors.Is(err, storage.ErrJournalMissing):
		return integrity(tip.Height, tip.Hash, "reorgs stay within the retained journal depth", err)
	case errors.Is(err, storage.ErrJournalMismatch):
		return integrity(tip.Height, tip.Hash, "the store matches the undo journal", err)
	case err != nil:
		return err
	}

	if err := b.reloadTip(); err != nil {
		return err
	}
	if newTip, ok := b.Tip(); ok && newTip.Height+1 != tip.Height || !ok && tip.Height != 0 {
		return integrity(tip.Height, tip.Hash, "rollback removes exactly one height", nil)
	}

	metrics.RolledBackHeights.Inc()
	b.log.WithFields(logrus.Fields{"height": tip.Height, "hash": tip.Hash}).Warn("Rolled back block")
	for _, fn := range b.onRollback {
		fn(RollbackEvent{Height: tip.Height, Hash: tip.Hash})
	}
	return nil
}

// tipReorged reports whether the node no longer has the committed tip.
func (b *Builder) tipReorged(ctx context.Context) (bool, error) {
	tip, ok := b.Tip()
	if !ok {
		return false, nil
	}
	hash, err := b.getter.GetBlockHash(ctx, tip.Height)
	if errors.Is(err, getter.ErrBlockNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return hash != tip.Hash, nil
}

// Step advances the builder by one block or rolls back one height. It
// reports false once there is nothing to do until the node moves.
func (b *Builder) Step(ctx context.Context) (bool, error) {
	if b.stopReached() {
		return false, nil
	}
	block, err := b.getter.GetBlock(ctx, b.nextHeight())
	if errors.Is(err, getter.ErrBlockNotFound) {
		reorged, err := b.tipReorged(ctx)
		if err != nil {
			return false, err
		}
		if reorged {
			return true, b.rollback()
		}
		b.setState(StateSynced)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := b.apply(block); errors.Is(err, errReorg) {
		return true, b.rollback()
	} else if err != nil {
		return false, err
	}
	b.setState(StateCatchingUp)
	return true, nil
}

// catchUp fetches blocks ahead of the one being committed and applies them
// in order until the node runs out of blocks.
func (b *Builder) catchUp(ctx context.Context) (int, error) {
	next := b.nextHeight()
	blocks := make(chan *getter.Block, b.cfg.FetchAhead)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(blocks)
		for h := next; b.cfg.StopHeight == 0 || h <= b.cfg.StopHeight; h++ {
			started := time.Now()
			block, err := b.getter.GetBlock(gctx, h)
			if errors.Is(err, getter.ErrBlockNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			metrics.ObserveBlock("fetch", started)
			select {
			case blocks <- block:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	applied := 0
	g.Go(func() error {
		for block := range blocks {
			if gctx.Err() != nil {
				return nil
			}
			if _, err := b.apply(block); err != nil {
				return err
			}
			applied++
			b.setState(StateCatchingUp)
		}
		return nil
	})

	err := g.Wait()
	return applied, err
}

// Run indexes until ctx is cancelled, the stop height is committed, or an
// unrecoverable error occurs. Cancellation never interrupts a commit.
func (b *Builder) Run(ctx context.Context) error {
	if tip, ok := b.Tip(); ok {
		b.log.WithFields(logrus.Fields{"height": tip.Height, "hash": tip.Hash}).Info("Resuming from committed tip")
	} else {
		b.log.Info("Starting from genesis")
	}

	for {
		if ctx.Err() != nil || b.stopReached() {
			return nil
		}

		applied, err := b.catchUp(ctx)
		if errors.Is(err, errReorg) {
			if err := b.rollback(); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if applied > 0 {
			continue
		}

		reorged, err := b.tipReorged(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if reorged {
			if err := b.rollback(); err != nil {
				return err
			}
			continue
		}

		b.setState(StateSynced)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.cfg.PollInterval):
		}
	}
}
