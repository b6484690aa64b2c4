package checkpoint

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/index"
)

const DefaultQueueSize = 64

// Reporter publishes checkpoints off the indexing path. Submit never blocks;
// when the queue is full the checkpoint is dropped.
type Reporter struct {
	id       IndexerIdentification
	uploader Uploader
	timeout  time.Duration
	queue    chan Checkpoint
	log      *logrus.Entry

	mu      sync.Mutex
	history UploadHistory
}

func NewReporter(id IndexerIdentification, uploader Uploader, timeout time.Duration, queueSize int) *Reporter {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Reporter{
		id:       id,
		uploader: uploader,
		timeout:  timeout,
		queue:    make(chan Checkpoint, queueSize),
		log:      logrus.WithField("component", "checkpoint"),
		history:  make(UploadHistory),
	}
}

func (r *Reporter) Submit(c Checkpoint) bool {
	select {
	case r.queue <- c:
		return true
	default:
		r.log.WithField("height", c.Height).Warn("Checkpoint queue is full, dropping checkpoint")
		return false
	}
}

// Track submits, after every commit, the checkpoint of the height that just
// reached BitcoinConfirmations confirmations.
func (r *Reporter) Track(b *index.Builder, reader *index.Reader) {
	b.OnCommit(func(e index.CommitEvent) {
		if uint64(e.Height) < ord.BitcoinConfirmations {
			return
		}
		height := e.Height - ord.Height(ord.BitcoinConfirmations)
		c, err := r.At(reader, height)
		if err != nil {
			r.log.WithError(err).WithField("height", height).Warn("Failed to build checkpoint")
			return
		}
		r.Submit(c)
	})
}

// At builds the checkpoint of a committed height.
func (r *Reporter) At(reader *index.Reader, height ord.Height) (Checkpoint, error) {
	v, err := reader.View()
	if err != nil {
		return Checkpoint{}, err
	}
	defer v.Release()
	hash, err := v.BlockHash(height)
	if err != nil {
		return Checkpoint{}, err
	}
	commitment, err := v.Commitment(height)
	if err != nil {
		return Checkpoint{}, err
	}
	return NewCheckpoint(&r.id, height, hash, commitment), nil
}

// Run uploads queued checkpoints until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-r.queue:
			r.upload(ctx, c)
		}
	}
}

func (r *Reporter) upload(ctx context.Context, c Checkpoint) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	err := r.uploader.Upload(ctx, &c)

	height, perr := strconv.ParseUint(c.Height, 10, 64)
	if perr != nil {
		r.log.WithError(perr).Error("Failed to convert checkpoint height to uint64")
		return
	}
	r.mu.Lock()
	if _, ok := r.history[height]; !ok {
		r.history[height] = make(map[string]bool)
	}
	r.history[height][c.ObjectKey()] = err == nil
	r.mu.Unlock()

	log := r.log.WithFields(logrus.Fields{"height": c.Height, "hash": c.Hash})
	if err != nil {
		log.WithError(err).Error("Checkpoint upload failed")
		return
	}
	log.Info("Checkpoint uploaded")
}

// Uploaded reports whether the checkpoint of height was published.
func (r *Reporter) Uploaded(height uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ok := range r.history[height] {
		if ok {
			return true
		}
	}
	return false
}

func (r *Reporter) History() UploadHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make(UploadHistory, len(r.history))
	for h, records := range r.history {
		res[h] = make(map[string]bool, len(records))
		for k, v := range records {
			res[h][k] = v
		}
	}
	return res
}
