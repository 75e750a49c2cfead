package cmd

import (
	"github.com/chrisdamba/ridetopo/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var pipelineOpts pipeline.Options

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run setup, fetch, simulate and figures in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.Run(cmd.Context(), cfg, viper.GetViper(), withDefaultConfigFile(pipelineOpts))
	},
}

func init() {
	f := pipelineCmd.Flags()
	f.BoolVar(&pipelineOpts.Force, "force", false, "rebuild networks that already exist")
	f.StringSliceVar(&pipelineOpts.Topologies, "topology", nil, "simulate only these topologies")
	f.BoolVar(&pipelineOpts.AllowPartial, "allow-partial", false, "skip figure series without results")
	f.StringVar(&pipelineOpts.ConfigFile, "write-config", "", "write the effective config to this file unless it exists (default ./.ridetopo.yaml when no config is in use)")
	f.BoolVar(&pipelineOpts.CheckSinks, "check-sinks", false, "open and close every enabled output during setup")
	f.StringSliceVar(&pipelineOpts.Figures, "figure", nil, "render only these figures")
	rootCmd.AddCommand(pipelineCmd)
}
