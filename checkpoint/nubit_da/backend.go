package nubit_da

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/rollkit/go-da"
	"github.com/rollkit/go-da/proxy"
)

const (
	// NamespaceSize is the size of the hex encoded namespace string
	NamespaceSize = 29 * 2
	// Default local deployed Nubit Node
	DefaultNodeRPC       = "http://localhost:26658"
	DefaultSubmitTimeout = time.Minute
)

type NubitDABackend struct {
	Client        da.DA
	SubmitTimeout time.Duration
	Namespace     da.Namespace
}

func NewNubitDABackend(rpc, token, namespace string, submitTimeout time.Duration) (*NubitDABackend, error) {
	client, err := proxy.NewClient(rpc, token)
	if err != nil {
		return nil, err
	}
	ns, err := hex.DecodeString(padNamespaceLeft(hex.EncodeToString([]byte(namespace))))
	if err != nil {
		return nil, err
	}
	if submitTimeout <= 0 {
		submitTimeout = DefaultSubmitTimeout
	}
	return &NubitDABackend{
		Client:        client,
		SubmitTimeout: submitTimeout,
		Namespace:     ns,
	}, nil
}

func IsValidNamespaceID(nID string) bool {
	if nID == "" || len(nID) > 10 {
		return false
	}
	return len(hex.EncodeToString([]byte(nID))) <= NamespaceSize
}

func padNamespaceLeft(s string) string {
	if len(s) < NamespaceSize {
		return strings.Repeat("0", NamespaceSize-len(s)) + s
	}
	return s
}
