package checkpoint

type IndexerIdentification struct {
	URL          string
	Name         string
	Version      string
	MetaProtocol string
}

// Checkpoint attests the index state at one immutable height.
type Checkpoint struct {
	// Hex of the keccak commitment chained over every height up to this one
	Commitment string `json:"commitment"`
	// Hex of the BlockHash of the checkpoint
	Hash string `json:"hash"`
	// BlockHeight of the checkpoint
	Height string `json:"height"`
	// Protocol name used by the indexer, fixed as "ordinals" now
	MetaProtocol string `json:"metaProtocol"`
	// Name of the indexer
	Name string `json:"name"`
	// URL of the indexer service
	URL string `json:"url"`
	// Version number of the indexer
	Version string `json:"version"`
}

// UploadHistory records, per height, which objects were published.
type UploadHistory = map[uint64]map[string]bool
