package index

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
)

// ErrNotFound is returned by lookups that match nothing at the viewed height.
var ErrNotFound = errors.New("not found")

// IntegrityError reports node data or store contents that break an index
// invariant. Indexing halts on it; it is never retried.
type IntegrityError struct {
	Height    ord.Height
	Hash      chainhash.Hash
	Invariant string
	Err       error
}

func (e *IntegrityError) Error() string {
	msg := fmt.Sprintf("integrity violation at height %d (%s): %s", e.Height, e.Hash, e.Invariant)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

func integrity(height ord.Height, hash chainhash.Hash, invariant string, err error) error {
	return &IntegrityError{Height: height, Hash: hash, Invariant: invariant, Err: err}
}

// IsIntegrity reports whether err carries an IntegrityError.
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
