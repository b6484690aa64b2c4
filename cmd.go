package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/index"
	"github.com/RiemaLabs/modular-indexer-ordinals/storage"
)

type RuntimeArguments struct {
	// ConfigFilePath: JSON config read through viper.
	ConfigFilePath string
	// EnableService: Provide APIs while indexing.
	EnableService bool
	// EnableCommittee: Upload checkpoints with the configured report method.
	EnableCommittee bool
	// EnableDebug: gin debug mode.
	EnableDebug bool

	config *Config
}

func NewRuntimeArguments() *RuntimeArguments {
	return &RuntimeArguments{ConfigFilePath: DefaultConfigFile}
}

// Config is loaded once the command line is parsed.
func (arguments *RuntimeArguments) Config() *Config {
	return arguments.config
}

func (arguments *RuntimeArguments) MakeCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "ordinals-indexer",
		Short: "Numbers every satoshi and tracks where each one is.",
		Long: `
		The ordinals indexer replays the Bitcoin chain from a fully validating node, assigns every satoshi its ordinal number, and records which output holds it. The index is kept durably in LevelDB and follows chain reorganizations.

		Besides "index" and "server", the remaining commands answer single questions about ordinals, either from arithmetic alone or from an existing index.
		`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(arguments.ConfigFilePath, cmd.Flags().Changed("config"), cmd.Flags())
			if err != nil {
				return err
			}
			if err := SetupLogging(cfg); err != nil {
				return err
			}
			arguments.config = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&arguments.ConfigFilePath, "config", "c", DefaultConfigFile, "Path of the JSON config file")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory of the index, overrides index.dataDir")
	rootCmd.PersistentFlags().String("log-level", "", "Log level, overrides log.level")

	rootCmd.AddCommand(
		arguments.indexCmd(),
		arguments.serverCmd(),
		arguments.findCmd(),
		arguments.listCmd(),
		parseCmd(),
		traitsCmd(),
		rangeCmd(),
		epochsCmd(),
		supplyCmd(),
		arguments.infoCmd(),
	)
	return rootCmd
}

func (arguments *RuntimeArguments) indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the index and keep following the node",
		Long: `
		Flags:
		- "--service/-s": Serves the query API from the index being built.
		- "--committee": Uploads a checkpoint for every height that reaches 6 confirmations, using report.method.
		- "--stop": Stops after committing this height.
		`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if arguments.EnableService {
				logrus.Info("Service mode is enabled.")
			}
			if arguments.EnableCommittee {
				logrus.Infof("Committee mode is enabled, reporting by %q.", arguments.config.Report.Method)
			}
			return Execution(cmd.Context(), arguments)
		},
	}
	cmd.Flags().BoolVarP(&arguments.EnableService, "service", "s", false, "Enable this flag to provide API service")
	cmd.Flags().BoolVarP(&arguments.EnableCommittee, "committee", "", false, "Enable this flag to upload checkpoints")
	cmd.Flags().BoolVarP(&arguments.EnableDebug, "debug", "", false, "Run the API in gin debug mode")
	cmd.Flags().String("addr", "", "API listen address, overrides service.addr")
	cmd.Flags().Uint64("stop", 0, "Stop after this height, overrides index.stopHeight")
	return cmd
}

func (arguments *RuntimeArguments) serverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the query API from an index no process is writing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Serve(cmd.Context(), arguments)
		},
	}
	cmd.Flags().BoolVarP(&arguments.EnableDebug, "debug", "", false, "Run the API in gin debug mode")
	cmd.Flags().String("addr", "", "API listen address, overrides service.addr")
	return cmd
}

func (arguments *RuntimeArguments) findCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <ordinal>",
		Short: "Print the satpoint currently holding an ordinal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := ord.Parse(args[0])
			if err != nil {
				return err
			}
			return arguments.withView(func(view *index.View) error {
				sp, err := view.Locate(n)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), sp.Encode())
				return err
			})
		},
	}
}

func (arguments *RuntimeArguments) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <outpoint>",
		Short: "Print the ordinal ranges an output holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := ord.DecodeOutPoint(args[0])
			if err != nil {
				return err
			}
			return arguments.withView(func(view *index.View) error {
				ranges, live, err := view.Output(op)
				if err != nil {
					return err
				}
				if !live {
					return fmt.Errorf("%s: %w", op, index.ErrNotFound)
				}
				for _, r := range ranges {
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "[%d,%d)\n", r.Start, r.End); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func parseCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "parse <repr>",
		Short: "Convert an ordinal between integer, decimal, degree, name and percentile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ord.ParseFormatName(to)
			if err != nil {
				return err
			}
			out, err := ord.Convert(args[0], format)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&to, "to", "t", ord.FormatInteger.String(), "Target representation")
	return cmd
}

func traitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "traits <repr>",
		Short: "Print every representation and property of an ordinal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := ord.Parse(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, n.Traits())
		},
	}
}

type heightRange struct {
	Height  uint64       `json:"height"`
	Subsidy uint64       `json:"subsidy"`
	Range   ord.SatRange `json:"range"`
}

func rangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "range <height>",
		Short: "Print the ordinals minted by the coinbase at a height",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			height, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: invalid height %q", ord.ErrConfiguration, args[0])
			}
			h := ord.Height(height)
			minted, err := ord.MintedRange(h)
			if err != nil {
				return err
			}
			return printJSON(cmd, heightRange{Height: height, Subsidy: h.Subsidy(), Range: minted})
		},
	}
}

func epochsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "epochs",
		Short: "Print the first ordinal of every epoch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, n := range ord.Epochs() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), n); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func supplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supply",
		Short: "Print the ordinal supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, ord.Supplies())
		},
	}
}

func (arguments *RuntimeArguments) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the committed tip and table sizes of the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return arguments.withView(func(view *index.View) error {
				stats, err := view.Stats()
				if err != nil {
					return err
				}
				return printJSON(cmd, stats)
			})
		},
	}
}

// withView opens the index read-only for a single query.
func (arguments *RuntimeArguments) withView(fn func(view *index.View) error) error {
	store, err := storage.Open(arguments.config.Index.DataDir, storage.Options{ReadOnly: true})
	if err != nil {
		return err
	}
	defer store.Close()

	view, err := index.NewReader(store).View()
	if err != nil {
		return err
	}
	defer view.Release()
	return fn(view)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
