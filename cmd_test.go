package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RiemaLabs/modular-indexer-ordinals/checkpoint/nubit_da"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/getter"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/index"
	"github.com/RiemaLabs/modular-indexer-ordinals/storage"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRuntimeArguments().MakeCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", writeConfig(t, "{}")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"index": {"dataDir": "/var/lib/ord", "pollInterval": "3s", "feeAttribution": "next-block"},
		"report": {"method": "S3", "s3": {"bucket": "checkpoints"}}
	}`)
	t.Setenv("ORD_INDEX_JOURNALDEPTH", "50")
	t.Setenv("ORD_SERVICE_NAME", "from-env")

	cfg, err := LoadConfig(path, true, nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ord", cfg.Index.DataDir)
	assert.Equal(t, 3*time.Second, cfg.Index.PollInterval)
	assert.Equal(t, uint64(50), cfg.Index.JournalDepth)
	assert.Equal(t, "from-env", cfg.Service.Name)
	assert.Equal(t, "checkpoints", cfg.Report.S3.Bucket)
	assert.Equal(t, ":8080", cfg.Service.Addr, "defaults fill what the file leaves out")

	indexCfg, err := cfg.IndexConfig()
	require.NoError(t, err)
	assert.Equal(t, index.FeesNextBlock, indexCfg.FeeAttribution)
	assert.Equal(t, index.DefaultConfig.FetchAhead, indexCfg.FetchAhead)

	id := cfg.Identification()
	assert.Equal(t, "from-env", id.Name)
	assert.Equal(t, "ordinals", id.MetaProtocol)
}

func TestLoadConfigErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	cfg, err := LoadConfig(missing, false, nil)
	require.NoError(t, err, "an implicit config file may be absent")
	assert.Equal(t, "./data", cfg.Index.DataDir)

	_, err = LoadConfig(missing, true, nil)
	assert.ErrorIs(t, err, ord.ErrConfiguration)

	_, err = LoadConfig(writeConfig(t, "{not json"), true, nil)
	assert.ErrorIs(t, err, ord.ErrConfiguration)

	cfg, err = LoadConfig(writeConfig(t, `{"index": {"feeAttribution": "whenever"}}`), true, nil)
	require.NoError(t, err)
	_, err = cfg.IndexConfig()
	assert.ErrorIs(t, err, ord.ErrConfiguration)

	cfg, err = LoadConfig(writeConfig(t, `{"index": {"journalDepth": 2}}`), true, nil)
	require.NoError(t, err)
	_, err = cfg.IndexConfig()
	assert.ErrorIs(t, err, ord.ErrConfiguration, "journals must cover the confirmation depth")

	cfg.Log.Format = "xml"
	assert.ErrorIs(t, SetupLogging(cfg), ord.ErrConfiguration)
	cfg.Log.Format, cfg.Log.Level = "json", "loud"
	assert.ErrorIs(t, SetupLogging(cfg), ord.ErrConfiguration)
}

func TestNewUploader(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{"report": {"method": "NUBIT", "nubit": {"namespaceID": "ns", "network": "Testnet"}}}`), true, nil)
	require.NoError(t, err)
	u, err := NewUploader(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, &nubit_da.NubitUploader{NamespaceID: "ns", Network: "Testnet"}, u)

	cfg.Report.Method = "DA"
	cfg.Report.Da.Namespace = ""
	_, err = NewUploader(context.Background(), cfg)
	assert.ErrorIs(t, err, ord.ErrConfiguration)

	cfg.Report.Method = "FTP"
	_, err = NewUploader(context.Background(), cfg)
	assert.ErrorIs(t, err, ord.ErrConfiguration)
}

func TestArithmeticCommands(t *testing.T) {
	out, err := run(t, "parse", "1.0")
	require.NoError(t, err)
	assert.Equal(t, "5000000000\n", out)

	out, err = run(t, "parse", "--to", "degree", "2067187500000000")
	require.NoError(t, err)
	assert.Equal(t, "1°0′0″0‴\n", out)

	_, err = run(t, "parse", "nope!")
	assert.ErrorIs(t, err, ord.ErrInvalidName)
	_, err = run(t, "parse", "--to", "hex", "0")
	assert.ErrorIs(t, err, ord.ErrConfiguration)

	out, err = run(t, "traits", "nvtdijuwxlp")
	require.NoError(t, err)
	var traits ord.Traits
	require.NoError(t, json.Unmarshal([]byte(out), &traits))
	assert.Equal(t, ord.Ordinal(0).Traits(), traits)

	out, err = run(t, "range", "210000")
	require.NoError(t, err)
	var hr heightRange
	require.NoError(t, json.Unmarshal([]byte(out), &hr))
	assert.Equal(t, 25*ord.CoinValue, hr.Subsidy)
	assert.Equal(t, uint64(ord.Height(210000).StartingOrdinal()), hr.Range.Start)
	_, err = run(t, "range", "tall")
	assert.ErrorIs(t, err, ord.ErrConfiguration)

	out, err = run(t, "epochs")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(ord.Epochs()))
	assert.Equal(t, "0", lines[0])
	assert.Equal(t, "1050000000000000", lines[1])

	out, err = run(t, "supply")
	require.NoError(t, err)
	var supply ord.SupplyInfo
	require.NoError(t, json.Unmarshal([]byte(out), &supply))
	assert.Equal(t, ord.Supplies(), supply)
}

func TestIndexQueryCommands(t *testing.T) {
	dir := t.TempDir()
	cb := getter.NewChainBuilder("cmd")
	genesis := cb.Coinbase(50 * ord.CoinValue)
	b0 := cb.Seal()
	cb.Coinbase(50 * ord.CoinValue)
	spend := cb.Spend([]ord.OutPoint{genesis.OutPoint(0)}, ord.CoinValue, 49*ord.CoinValue)
	b1 := cb.Seal()

	store, err := storage.Open(dir, storage.Options{})
	require.NoError(t, err)
	b, err := index.NewBuilder(store, getter.NewMemoryGetter(b0, b1), index.DefaultConfig)
	require.NoError(t, err)
	for {
		progressed, err := b.Step(context.Background())
		require.NoError(t, err)
		if !progressed {
			break
		}
	}
	require.NoError(t, store.Close())

	out, err := run(t, "--data-dir", dir, "find", "0")
	require.NoError(t, err)
	assert.Equal(t, spend.OutPoint(0).Encode()+":0\n", out)

	out, err = run(t, "--data-dir", dir, "find", "1.5")
	require.NoError(t, err)
	assert.Equal(t, b1.Transactions[0].OutPoint(0).Encode()+":5\n", out)

	_, err = run(t, "--data-dir", dir, "find", "2.0")
	assert.ErrorIs(t, err, index.ErrNotFound)

	out, err = run(t, "--data-dir", dir, "list", spend.OutPoint(1).Encode())
	require.NoError(t, err)
	assert.Equal(t, "[100000000,5000000000)\n", out)

	_, err = run(t, "--data-dir", dir, "list", genesis.OutPoint(0).Encode())
	assert.ErrorIs(t, err, index.ErrNotFound, "spent outputs are not listed")

	out, err = run(t, "--data-dir", dir, "info")
	require.NoError(t, err)
	var stats index.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, ord.Height(1), stats.Height)
	assert.Equal(t, b1.Header.Hash, stats.Hash)
	assert.Equal(t, uint64(3), stats.Outputs)
	assert.Equal(t, uint64(1), stats.Spent)
}
