package cmd

import (
	"fmt"

	"github.com/chrisdamba/ridetopo/internal/pipeline"
	"github.com/spf13/cobra"
)

var figuresOpts pipeline.Options

var figuresCmd = &cobra.Command{
	Use:   "figures",
	Short: "Render the figures from the simulation summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := pipeline.Figures(cfg, figuresOpts)
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return err
	},
}

func init() {
	figuresCmd.Flags().BoolVar(&figuresOpts.AllowPartial, "allow-partial", false, "skip series without results instead of failing")
	figuresCmd.Flags().StringSliceVar(&figuresOpts.Figures, "figure", nil, "render only these figures")
	rootCmd.AddCommand(figuresCmd)
}
