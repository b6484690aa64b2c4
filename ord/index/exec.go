package index

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/getter"
	"github.com/RiemaLabs/modular-indexer-ordinals/storage"
)

// OutputRanges is one output created by a block with the ranges it holds.
type OutputRanges struct {
	OutPoint ord.OutPoint
	Ranges   []ord.SatRange
}

// BlockResult summarises what executing one block changed.
type BlockResult struct {
	Created []OutputRanges
	Spent   []ord.OutPoint
	// Ranges the coinbase did not claim. They leave circulation for good.
	Lost []ord.SatRange
	// Fee ranges handed to the next block's coinbase.
	Carried []ord.SatRange
}

type executor struct {
	header *storage.Header
	block  *getter.Block
	mode   FeeAttribution
	log    *logrus.Entry
	result BlockResult
}

// Exec applies every transaction of block to header. carried holds the fee
// ranges the previous block handed over, empty in same-block mode. The
// coinbase runs last so that its tape can include this block's fees.
func Exec(header *storage.Header, block *getter.Block, carried []ord.SatRange, mode FeeAttribution) (*BlockResult, error) {
	e := &executor{
		header: header,
		block:  block,
		mode:   mode,
		log: logrus.WithFields(logrus.Fields{
			"component": "index",
			"height":    block.Header.Height,
			"hash":      block.Header.Hash,
		}),
	}
	return e.run(carried)
}

func (e *executor) fail(invariant string, err error) error {
	return integrity(e.block.Header.Height, e.block.Header.Hash, invariant, err)
}

func (e *executor) run(carried []ord.SatRange) (*BlockResult, error) {
	height := e.block.Header.Height
	minted, err := ord.MintedRange(height)
	if err != nil {
		return nil, err
	}

	var coinbase *getter.Transaction
	fees := make([]ord.SatRange, 0)
	for i := range e.block.Transactions {
		tx := &e.block.Transactions[i]
		if tx.Coinbase {
			if coinbase != nil {
				return nil, e.fail("one coinbase per block", fmt.Errorf("second coinbase %s", tx.Txid))
			}
			coinbase = tx
			continue
		}
		fee, err := e.transfer(tx)
		if err != nil {
			return nil, err
		}
		fees = append(fees, fee...)
	}

	var tape []ord.SatRange
	switch e.mode {
	case FeesNextBlock:
		tape = append(append(tape, carried...), minted)
		e.result.Carried = fees
	default:
		tape = append(append(tape, minted), fees...)
		e.result.Carried = []ord.SatRange{}
	}

	if coinbase == nil {
		e.result.Lost = append(e.result.Lost, ord.Coalesce(tape)...)
	} else {
		alloc := ord.Transfer(tape, coinbase.Outputs)
		if err := ord.VerifyPartition(tape, alloc); err != nil {
			return nil, e.fail("coinbase outputs partition the coinbase tape", err)
		}
		if err := e.create(coinbase, alloc); err != nil {
			return nil, err
		}
		e.result.Lost = append(e.result.Lost, alloc.Fee...)
	}

	if len(e.result.Lost) > 0 {
		if err := e.header.Put(storage.LostKey(height), ord.EncodeSatRanges(e.result.Lost)); err != nil {
			return nil, err
		}
	}
	return &e.result, nil
}

// transfer spends the inputs of tx, hands their ranges to its outputs and
// returns the fee ranges.
func (e *executor) transfer(tx *getter.Transaction) ([]ord.SatRange, error) {
	var tape []ord.SatRange
	for _, op := range tx.Inputs {
		ranges, err := e.spend(op)
		if err != nil {
			return nil, err
		}
		tape = append(tape, ranges...)
	}

	alloc := ord.Transfer(tape, tx.Outputs)
	if err := ord.VerifyPartition(tape, alloc); err != nil {
		return nil, e.fail("outputs and fee partition the input tape", err)
	}
	if !alloc.Shortfall.IsZero() {
		e.log.WithFields(logrus.Fields{
			"txid":      tx.Txid,
			"shortfall": alloc.Shortfall.Dec(),
		}).Warn("Transaction outputs exceed its input ranges, short outputs keep what the tape held")
	}
	if err := e.create(tx, alloc); err != nil {
		return nil, err
	}
	return alloc.Fee, nil
}

func (e *executor) spend(op ord.OutPoint) ([]ord.SatRange, error) {
	key := storage.OutputKey(op)
	data, ok, err := e.header.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.fail("every input spends a tracked output", fmt.Errorf("unknown outpoint %s", op))
	}
	ranges, err := ord.DecodeSatRanges(data)
	if err != nil {
		return nil, e.fail("stored ranges decode", err)
	}

	if err := e.header.Delete(key); err != nil {
		return nil, err
	}
	for _, r := range ranges {
		if err := e.header.Delete(storage.RangeKey(r.Start)); err != nil {
			return nil, err
		}
	}
	spent := storage.Spent{Height: e.block.Header.Height, Ranges: ranges}
	if err := e.header.Put(storage.SpentKey(op), storage.EncodeSpent(spent)); err != nil {
		return nil, err
	}
	e.result.Spent = append(e.result.Spent, op)
	return ranges, nil
}

func (e *executor) create(tx *getter.Transaction, alloc ord.Allocation) error {
	for vout, ranges := range alloc.Outputs {
		op := tx.OutPoint(vout)
		key := storage.OutputKey(op)

		// Duplicate txids (BIP30) overwrite the earlier output; its ranges
		// can never be spent again.
		prev, exists, err := e.header.Get(key)
		if err != nil {
			return err
		}
		if exists {
			lost, err := ord.DecodeSatRanges(prev)
			if err != nil {
				return e.fail("stored ranges decode", err)
			}
			e.log.WithField("outpoint", op).Warn("Output created twice, the earlier ranges are lost")
			for _, r := range lost {
				if err := e.header.Delete(storage.RangeKey(r.Start)); err != nil {
					return err
				}
			}
			e.result.Lost = append(e.result.Lost, lost...)
		}

		if err := e.header.Put(key, ord.EncodeSatRanges(ranges)); err != nil {
			return err
		}
		for _, r := range ranges {
			rangeKey := storage.RangeKey(r.Start)
			if _, taken, err := e.header.Get(rangeKey); err != nil {
				return err
			} else if taken {
				return e.fail("every ordinal has one location", fmt.Errorf("range %s of %s is already owned", r, op))
			}
			if err := e.header.Put(rangeKey, storage.EncodeRangeValue(op, r.End)); err != nil {
				return err
			}
		}
		e.result.Created = append(e.result.Created, OutputRanges{OutPoint: op, Ranges: ranges})
	}
	return nil
}
