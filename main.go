package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/RiemaLabs/modular-indexer-ordinals/apis"
	"github.com/RiemaLabs/modular-indexer-ordinals/checkpoint"
	"github.com/RiemaLabs/modular-indexer-ordinals/checkpoint/aws_s3"
	"github.com/RiemaLabs/modular-indexer-ordinals/checkpoint/nubit_da"
	"github.com/RiemaLabs/modular-indexer-ordinals/export"
	"github.com/RiemaLabs/modular-indexer-ordinals/internal/metrics"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/getter"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/index"
	"github.com/RiemaLabs/modular-indexer-ordinals/storage"
)

var (
	version = "latest"
	gitHash = "unknown"
)

// NewUploader builds the checkpoint publisher named by report.method.
func NewUploader(ctx context.Context, cfg *Config) (checkpoint.Uploader, error) {
	switch cfg.Report.Method {
	case "S3":
		s3cfg := cfg.Report.S3
		return aws_s3.NewUploader(ctx, s3cfg.AccessKey, s3cfg.SecretKey, s3cfg.Region, s3cfg.Bucket)
	case "DA":
		dacfg := cfg.Report.Da
		if !nubit_da.IsValidNamespaceID(dacfg.Namespace) {
			return nil, fmt.Errorf("%w: invalid DA namespace %q", ord.ErrConfiguration, dacfg.Namespace)
		}
		return nubit_da.NewNubitDABackend(dacfg.RPC, dacfg.AuthToken, dacfg.Namespace, cfg.ReportTimeout())
	case "NUBIT":
		ncfg := cfg.Report.Nubit
		return &nubit_da.NubitUploader{
			PrivateKey:  ncfg.PrivateKey,
			GasCoupon:   ncfg.GasCoupon,
			NamespaceID: ncfg.NamespaceID,
			Network:     ncfg.Network,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown report method %q", ord.ErrConfiguration, cfg.Report.Method)
	}
}

// Execution runs the index builder until ctx is done, the stop height is
// committed, or an integrity violation halts it.
func Execution(ctx context.Context, arguments *RuntimeArguments) error {
	cfg := arguments.config
	log := logrus.WithField("component", "main")

	go metrics.ListenAndServe(cfg.Metrics.Addr)
	metrics.Version.WithLabelValues(version).Set(1)
	metrics.Stage.Set(metrics.StageInitializing)

	indexCfg, err := cfg.IndexConfig()
	if err != nil {
		return err
	}

	btc, err := getter.NewBitcoinGetter(cfg.BitcoinRPC.Host, cfg.BitcoinRPC.User, cfg.BitcoinRPC.Password, cfg.BitcoinRPC.DisableTLS)
	if err != nil {
		return fmt.Errorf("failed to connect to the bitcoin node: %w", err)
	}
	defer btc.Close()

	store, err := storage.Open(cfg.Index.DataDir, storage.Options{CacheSize: cfg.Index.CacheSize})
	if err != nil {
		return err
	}
	defer store.Close()

	builder, err := index.NewBuilder(store, getter.WithRetry(btc, getter.DefaultRetryConfig), indexCfg)
	if err != nil {
		return err
	}
	reader := index.NewReader(store)

	if cfg.Export.DSN != "" {
		exporter, err := export.NewMySQLExporter(cfg.Export.DSN)
		if err != nil {
			return err
		}
		defer exporter.Close()
		exporter.Track(builder)
		log.Info("Mirroring committed outputs to MySQL")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if arguments.EnableCommittee {
		uploader, err := NewUploader(ctx, cfg)
		if err != nil {
			return err
		}
		reporter := checkpoint.NewReporter(cfg.Identification(), uploader, cfg.ReportTimeout(), checkpoint.DefaultQueueSize)
		reporter.Track(builder, reader)
		g.Go(func() error {
			reporter.Run(ctx)
			return nil
		})
	}

	if arguments.EnableService {
		g.Go(func() error {
			return apis.StartService(ctx, reader, cfg.Service.Addr, cfg.Service.EnablePprof, arguments.EnableDebug)
		})
	}

	g.Go(func() error {
		if err := builder.Run(ctx); err != nil {
			if index.IsIntegrity(err) {
				log.WithError(err).Error("Indexing halted")
			}
			return err
		}
		tip, _ := builder.Tip()
		log.WithField("height", tip.Height).Info("Indexer stopped")
		// Keep serving the final state until interrupted.
		if !arguments.EnableService {
			cancel()
		}
		return nil
	})

	return g.Wait()
}

// Serve answers queries from an index without writing to it.
func Serve(ctx context.Context, arguments *RuntimeArguments) error {
	cfg := arguments.config

	go metrics.ListenAndServe(cfg.Metrics.Addr)
	metrics.Version.WithLabelValues(version).Set(1)
	metrics.Stage.Set(metrics.StageServing)

	store, err := storage.Open(cfg.Index.DataDir, storage.Options{ReadOnly: true})
	if err != nil {
		return err
	}
	defer store.Close()

	return apis.StartService(ctx, index.NewReader(store), cfg.Service.Addr, cfg.Service.EnablePprof, arguments.EnableDebug)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.WithFields(logrus.Fields{"version": version, "git": gitHash}).Debug("Starting")

	arguments := NewRuntimeArguments()
	rootCmd := arguments.MakeCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("Failed to execute")
		stop()
		os.Exit(1)
	}
}
