package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chrisdamba/ridetopo/internal/logging"
	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string
	cfg      *models.Config
)

var rootCmd = &cobra.Command{
	Use:   "ridetopo",
	Short: "Topology dependence of on-demand ride-sharing",
	Long: `ridetopo reproduces a study of how the street network topology shapes the
performance of a single zero-detour ride-sharing bus. The study runs as four
stages: setup, fetch, simulate and figures.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = models.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		if err := logging.Setup(level); err != nil {
			return err
		}
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintln(os.Stderr, "Using config file:", used)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./.ridetopo.yaml or $HOME/.ridetopo.yaml)")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.Int64("seed", 42, "Random seed of the sweep")
	flags.String("data-dir", "data", "Directory for OSM extracts, networks and results")
	flags.String("figure-dir", "figures", "Directory for rendered figures")
	flags.Int("workers", 0, "Concurrent jobs (default number of CPUs)")
	flags.Int("shard-index", 0, "Shard handled by this process")
	flags.Int("shard-count", 1, "Total number of shards")
	flags.String("output-format", models.OutputFormatParquet, "Record format: parquet, csv, json or console")

	for key, flag := range map[string]string{
		"seed":          "seed",
		"data_dir":      "data-dir",
		"figure_dir":    "figure-dir",
		"workers":       "workers",
		"shard_index":   "shard-index",
		"shard_count":   "shard-count",
		"output_format": "output-format",
	} {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(flag)))
	}
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
