package cmd

import (
	"github.com/chrisdamba/ridetopo/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var setupOpts pipeline.Options

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the working directories and a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.Setup(cmd.Context(), cfg, viper.GetViper(), withDefaultConfigFile(setupOpts))
	},
}

// withDefaultConfigFile makes setup write ./.ridetopo.yaml when neither
// --write-config nor a loaded config file names one.
func withDefaultConfigFile(opts pipeline.Options) pipeline.Options {
	if opts.ConfigFile == "" && cfgFile == "" && viper.ConfigFileUsed() == "" {
		opts.ConfigFile = ".ridetopo.yaml"
	}
	return opts
}

func init() {
	setupCmd.Flags().StringVar(&setupOpts.ConfigFile, "write-config", "", "write the effective config to this file unless it exists (default ./.ridetopo.yaml when no config is in use)")
	setupCmd.Flags().BoolVar(&setupOpts.CheckSinks, "check-sinks", false, "open and close every enabled output")
	rootCmd.AddCommand(setupCmd)
}
