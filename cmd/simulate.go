package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/chrisdamba/ridetopo/internal/pipeline"
	"github.com/chrisdamba/ridetopo/internal/simulator"
	"github.com/spf13/cobra"
)

var (
	simulateOpts pipeline.Options
	listJobs     bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Sweep the request rate on every topology of this shard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listJobs {
			return printPlan(cmd)
		}
		return pipeline.Simulate(cmd.Context(), cfg, simulateOpts)
	},
}

func printPlan(cmd *cobra.Command) error {
	runner := simulator.NewRunner(cfg, nil)
	jobs, err := runner.Plan(simulateOpts.Topologies)
	if err != nil {
		return err
	}
	store := runner.Store()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "TOPOLOGY\tKIND\tNETWORK TYPE\tPOINTS\n")
	for _, j := range jobs {
		done := 0
		if s, err := store.Load(j.Name); err == nil {
			done = len(s.Points)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\n", j.Name, j.Kind, j.NetworkType, done, cfg.RateSteps)
	}
	return w.Flush()
}

func init() {
	simulateCmd.Flags().BoolVar(&listJobs, "list", false, "print the jobs of this shard and exit")
	simulateCmd.Flags().StringSliceVar(&simulateOpts.Topologies, "topology", nil, "simulate only these topologies")
	rootCmd.AddCommand(simulateCmd)
}
