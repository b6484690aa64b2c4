package nubit_da

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/RiemaLabs/modular-indexer-ordinals/checkpoint"
)

// Upload submits c as one blob to the namespace of the backend.
func (b *NubitDABackend) Upload(ctx context.Context, c *checkpoint.Checkpoint) error {
	return UploadCheckpointByDA(ctx, b, c)
}

func UploadCheckpointByDA(ctx context.Context, backend *NubitDABackend, c *checkpoint.Checkpoint) error {
	checkpointJSON, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to generate checkpoint, err: %v", err)
	}
	ctx, cancel := context.WithTimeout(ctx, backend.SubmitTimeout)
	defer cancel()
	ids, err := backend.Client.Submit(ctx, [][]byte{checkpointJSON}, -1, backend.Namespace)
	if err != nil {
		return fmt.Errorf("blob submission failed: %w", err)
	}
	if len(ids) != 1 {
		return fmt.Errorf("blob submission returned %d ids", len(ids))
	}
	logrus.WithFields(logrus.Fields{
		"component": "checkpoint",
		"id":        hex.EncodeToString(ids[0]),
		"size":      len(checkpointJSON),
	}).Info("Blob submitted to DA")
	return nil
}
