package cmd

import (
	"fmt"

	"github.com/chrisdamba/ridetopo/internal/pipeline"
	"github.com/spf13/cobra"
)

var fetchOpts pipeline.Options

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download OSM extracts and build the homogenized street networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := pipeline.Fetch(cmd.Context(), cfg, fetchOpts)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchOpts.Force, "force", false, "rebuild networks that already exist")
	rootCmd.AddCommand(fetchCmd)
}
