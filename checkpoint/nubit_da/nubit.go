package nubit_da

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/RiemaLabs/nubit-da-sdk"
	"github.com/RiemaLabs/nubit-da-sdk/constant"

	"github.com/RiemaLabs/modular-indexer-ordinals/checkpoint"
)

// NubitUploader publishes checkpoints through the Nubit SDK.
type NubitUploader struct {
	PrivateKey  string
	GasCoupon   string
	NamespaceID string
	Network     string
}

func (u *NubitUploader) Upload(ctx context.Context, c *checkpoint.Checkpoint) error {
	return UploadCheckpointByNubit(ctx, c, u.PrivateKey, u.GasCoupon, u.NamespaceID, u.Network)
}

func setNetwork(network string) error {
	switch network {
	case "Pre-Alpha Testnet":
		sdk.SetNet(constant.PreAlphaTestNet)
	case "Testnet":
		sdk.SetNet(constant.TestNet)
	default:
		return fmt.Errorf("unknown network: %s", network)
	}
	return nil
}

func UploadCheckpointByNubit(ctx context.Context, c *checkpoint.Checkpoint, pk, gasCoupon, namespaceID, network string) error {
	if err := setNetwork(network); err != nil {
		return err
	}
	clientDA := sdk.NewNubit(sdk.WithCtx(ctx),
		sdk.WithGasCode(gasCoupon),
		sdk.WithPrivateKey(pk),
	)
	if clientDA == nil {
		return fmt.Errorf("failed to build the Nubit client")
	}

	checkpointJSON, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint to JSON: %v", err)
	}
	labels := map[string]interface{}{
		"contentType": "application/json",
	}
	if _, err := clientDA.UploadBytes(checkpointJSON, namespaceID, 0, labels); err != nil {
		return fmt.Errorf("failed to upload checkpoint: %v", err)
	}
	return nil
}
