package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/RiemaLabs/modular-indexer-ordinals/internal/cache"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
)

var (
	// ErrLocked means another process holds the writer lock of the data dir.
	ErrLocked = errors.New("data directory is locked by another writer")
	// ErrReadOnly is returned by write operations on a read-only store.
	ErrReadOnly = errors.New("store is read-only")
	// ErrJournalMissing means the undo journal of a height was pruned.
	ErrJournalMissing = errors.New("undo journal missing")
	// ErrJournalMismatch means the store no longer holds what a journal says
	// its height wrote.
	ErrJournalMismatch = errors.New("store does not match undo journal")
)

type Options struct {
	ReadOnly  bool
	CacheSize int
}

type Store struct {
	db       *leveldb.DB
	lock     *flock.Flock
	cache    *cache.LRUCache
	readOnly bool

	// beforeWrite runs after a commit batch is assembled and before it is
	// written. An error aborts the commit with nothing written.
	beforeWrite func(height ord.Height) error
}

// Open opens the store under dir. A writable store takes an exclusive lock on
// the directory and keeps it until Close.
func Open(dir string, opts Options) (*Store, error) {
	s := &Store{readOnly: opts.ReadOnly}
	if !opts.ReadOnly {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		s.lock = flock.New(filepath.Join(dir, "WRITER.lock"))
		locked, err := s.lock.TryLock()
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
	}

	db, err := leveldb.OpenFile(filepath.Join(dir, "index"), &opt.Options{ReadOnly: opts.ReadOnly})
	if err != nil {
		s.unlock()
		return nil, err
	}
	s.db = db

	if opts.CacheSize > 0 {
		if s.cache, err = cache.NewLRUCache(opts.CacheSize); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) unlock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
}

func (s *Store) Close() error {
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	s.unlock()
	return err
}

func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// SetBeforeWrite installs a hook that runs right before every commit or
// rollback batch is written.
func (s *Store) SetBeforeWrite(fn func(height ord.Height) error) {
	s.beforeWrite = fn
}

func (s *Store) get(key []byte) ([]byte, bool, error) {
	if s.cache != nil {
		if data, exists, ok := s.cache.Get(key); ok {
			return data, exists, nil
		}
	}
	data, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		if s.cache != nil {
			s.cache.InsertMissing(key)
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		s.cache.Insert(key, data)
	}
	return data, true, nil
}

// Get reads the latest committed value of key.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	data, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	return data, err == nil, err
}

// Tip returns the last committed tip, or false for an empty store.
func (s *Store) Tip() (Tip, bool, error) {
	data, ok, err := s.Get(TipKey)
	if err != nil || !ok {
		return Tip{}, false, err
	}
	tip, err := DecodeTip(data)
	return tip, err == nil, err
}

// Commit writes every change of the header, journaled and meta, in one
// synced batch.
func (s *Store) Commit(h *Header) error {
	if s.readOnly {
		return ErrReadOnly
	}
	journal := h.Journal()
	batch := new(leveldb.Batch)
	for _, e := range journal.Elements {
		if e.NewExists {
			batch.Put(e.Key, e.NewValue)
		} else {
			batch.Delete(e.Key)
		}
	}
	for _, m := range h.meta {
		if m.delete {
			batch.Delete(m.key)
		} else {
			batch.Put(m.key, m.value)
		}
	}
	if err := s.write(h.Height, batch); err != nil {
		return err
	}

	if s.cache != nil {
		for _, e := range journal.Elements {
			if e.NewExists {
				s.cache.Insert(e.Key, e.NewValue)
			} else {
				s.cache.InsertMissing(e.Key)
			}
		}
		for _, m := range h.meta {
			s.cache.Remove(m.key)
		}
	}
	return nil
}

func (s *Store) write(height ord.Height, batch *leveldb.Batch) error {
	if s.beforeWrite != nil {
		if err := s.beforeWrite(height); err != nil {
			return err
		}
	}
	return s.db.Write(batch, &opt.WriteOptions{Sync: true})
}

// Journal loads the undo journal of a committed height.
func (s *Store) Journal(height ord.Height) (Journal, error) {
	data, ok, err := s.Get(JournalKey(height))
	if err != nil {
		return Journal{}, err
	}
	if !ok {
		return Journal{}, fmt.Errorf("%w: height %d", ErrJournalMissing, height)
	}
	return DecodeJournal(data)
}

// Rollback undoes one committed height in one synced batch: every journaled
// key is restored and the height's journal and extra keys are deleted. The
// store must still hold exactly what the journal says the height wrote.
func (s *Store) Rollback(height ord.Height, extra ...[]byte) (Journal, error) {
	if s.readOnly {
		return Journal{}, ErrReadOnly
	}
	journal, err := s.Journal(height)
	if err != nil {
		return Journal{}, err
	}

	batch := new(leveldb.Batch)
	for i := len(journal.Elements) - 1; i >= 0; i-- {
		e := journal.Elements[i]
		cur, exists, err := s.Get(e.Key)
		if err != nil {
			return Journal{}, err
		}
		if exists != e.NewExists || !bytes.Equal(cur, e.NewValue) {
			return Journal{}, fmt.Errorf("%w: key %x at height %d", ErrJournalMismatch, e.Key, height)
		}
		if e.OldExists {
			batch.Put(e.Key, e.OldValue)
		} else {
			batch.Delete(e.Key)
		}
	}
	batch.Delete(JournalKey(height))
	for _, key := range extra {
		batch.Delete(key)
	}
	if err := s.write(height, batch); err != nil {
		return Journal{}, err
	}
	if s.cache != nil {
		s.cache.Purge()
	}
	return journal, nil
}

// Snapshot pins the current committed state for consistent reads.
func (s *Store) Snapshot() (*Snapshot, error) {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &Snapshot{snap: snap}, nil
}

type Snapshot struct {
	snap *leveldb.Snapshot
}

func (sn *Snapshot) Get(key []byte) ([]byte, bool, error) {
	data, err := sn.snap.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	return data, err == nil, err
}

func (sn *Snapshot) NewIterator(slice *util.Range) iterator.Iterator {
	return sn.snap.NewIterator(slice, nil)
}

func (sn *Snapshot) Tip() (Tip, bool, error) {
	data, ok, err := sn.Get(TipKey)
	if err != nil || !ok {
		return Tip{}, false, err
	}
	tip, err := DecodeTip(data)
	return tip, err == nil, err
}

func (sn *Snapshot) Release() {
	sn.snap.Release()
}
