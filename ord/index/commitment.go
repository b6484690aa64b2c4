package index

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/sha3"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/storage"
)

const CommitmentSize = 32

// Commitment chains every committed height: two stores agree on a height's
// commitment only if they applied the same changes at every height up to it.
type Commitment [CommitmentSize]byte

func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

// NextCommitment is keccak256(prev || height || hash || journal).
func NextCommitment(prev Commitment, height ord.Height, hash chainhash.Hash, journal []byte) Commitment {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(prev[:])
	hasher.Write(binary.BigEndian.AppendUint64(nil, uint64(height)))
	hasher.Write(hash[:])
	hasher.Write(journal)
	var c Commitment
	copy(c[:], hasher.Sum(nil))
	return c
}

func DecodeCommitment(b []byte) (Commitment, bool) {
	var c Commitment
	if len(b) != CommitmentSize {
		return c, false
	}
	copy(c[:], b)
	return c, true
}

func loadCommitment(store *storage.Store, height ord.Height) (Commitment, error) {
	data, ok, err := store.Get(storage.CommitmentKey(height))
	if err != nil || !ok {
		return Commitment{}, err
	}
	c, _ := DecodeCommitment(data)
	return c, nil
}
