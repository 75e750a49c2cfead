package simulator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/chrisdamba/ridetopo/internal/output"
	"github.com/chrisdamba/ridetopo/internal/results"
	"github.com/lucsky/cuid"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var log = logrus.WithField("module", "simulator")

type Runner struct {
	cfg    *models.Config
	store  *results.Store
	out    output.Destination
	runID  string
	netDir string
	// progress bar target, stderr unless replaced
	progress io.Writer
}

func NewRunner(cfg *models.Config, out output.Destination) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    results.NewStore(filepath.Join(cfg.DataDir, models.DirResults)),
		out:      out,
		runID:    cuid.New(),
		netDir:   filepath.Join(cfg.DataDir, models.DirNetworks),
		progress: os.Stderr,
	}
}

func (r *Runner) RunID() string { return r.runID }

func (r *Runner) Store() *results.Store { return r.store }

// Plan returns the jobs this invocation is responsible for: the selected
// topologies restricted to the configured shard. Without names the
// topologies of the config are used, and without those every job.
func (r *Runner) Plan(names []string) ([]Job, error) {
	if len(names) == 0 {
		names = r.cfg.Topologies
	}
	jobs, err := Select(Catalog(r.cfg), names)
	if err != nil {
		return nil, err
	}
	return Shard(jobs, r.cfg.ShardIndex, r.cfg.ShardCount), nil
}

// Run sweeps jobs with up to cfg.Workers of them in parallel.
func (r *Runner) Run(ctx context.Context, jobs []Job) error {
	if missing := MissingNetworks(r.netDir, jobs); len(missing) > 0 {
		return fmt.Errorf("street networks %v not built, run fetch first", missing)
	}
	log.WithFields(logrus.Fields{
		"run_id":  r.runID,
		"jobs":    len(jobs),
		"shard":   fmt.Sprintf("%d/%d", r.cfg.ShardIndex, r.cfg.ShardCount),
		"workers": r.cfg.Workers,
	}).Info("simulation starts")

	bar := progressbar.NewOptions(len(jobs)*r.cfg.RateSteps,
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionSetDescription("simulating"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			net, err := job.Network(r.netDir)
			if err != nil {
				return fmt.Errorf("failed to build network %s: %w", job.Name, err)
			}
			sweep := &Sweep{
				Config:  r.cfg,
				Store:   r.store,
				Output:  r.out,
				RunID:   r.runID,
				OnPoint: func() { _ = bar.Add(1) },
			}
			return sweep.Run(ctx, job, net)
		})
	}
	err := g.Wait()
	_ = bar.Finish()
	if err != nil {
		return err
	}
	log.WithField("run_id", r.runID).Info("simulation completed")
	return nil
}
