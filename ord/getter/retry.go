package getter

import (
	"context"
	"errors"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
)

// RetryGetter retries transient node failures with exponential backoff.
// ErrBlockNotFound and context cancellation are never retried.
type RetryGetter struct {
	inner      BlockGetter
	newBackOff func() backoff.BackOff
	log        *logrus.Entry
}

type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Zero retries forever.
	MaxElapsedTime time.Duration
}

var DefaultRetryConfig = RetryConfig{
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     30 * time.Second,
}

func WithRetry(inner BlockGetter, cfg RetryConfig) *RetryGetter {
	return &RetryGetter{
		inner: inner,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = cfg.InitialInterval
			b.MaxInterval = cfg.MaxInterval
			b.MaxElapsedTime = cfg.MaxElapsedTime
			b.Reset()
			return b
		},
		log: logrus.WithField("component", "getter"),
	}
}

func (r *RetryGetter) retry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrBlockNotFound) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(r.newBackOff(), ctx), func(err error, wait time.Duration) {
		r.log.WithError(err).WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
		}).Warnf("Node query failed, retrying in %s", wait)
	})
}

func (r *RetryGetter) GetLatestBlockHeight(ctx context.Context) (ord.Height, error) {
	var height ord.Height
	err := r.retry(ctx, "latest height", func() (err error) {
		height, err = r.inner.GetLatestBlockHeight(ctx)
		return err
	})
	return height, err
}

func (r *RetryGetter) GetBlockHash(ctx context.Context, height ord.Height) (chainhash.Hash, error) {
	var hash chainhash.Hash
	err := r.retry(ctx, "block hash", func() (err error) {
		hash, err = r.inner.GetBlockHash(ctx, height)
		return err
	})
	return hash, err
}

func (r *RetryGetter) GetBlock(ctx context.Context, height ord.Height) (*Block, error) {
	var block *Block
	err := r.retry(ctx, "block", func() (err error) {
		block, err = r.inner.GetBlock(ctx, height)
		return err
	})
	return block, err
}
