package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrisdamba/ridetopo/internal/figures"
	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/chrisdamba/ridetopo/internal/output"
	"github.com/chrisdamba/ridetopo/internal/simulator"
	"github.com/chrisdamba/ridetopo/internal/streetnet"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var log = logrus.WithField("module", "pipeline")

var (
	ErrMissingInput   = figures.ErrMissingInput
	ErrNotInitialised = errors.New("not initialised, run setup first")
)

type Options struct {
	// Setup writes the effective configuration here unless the file exists.
	ConfigFile string
	CheckSinks bool
	// Fetch rebuilds networks that already exist.
	Force        bool
	Topologies   []string
	Figures      []string
	AllowPartial bool
}

func dataDirs(cfg *models.Config) []string {
	return []string{
		filepath.Join(cfg.DataDir, models.DirOSM),
		filepath.Join(cfg.DataDir, models.DirNetworks),
		filepath.Join(cfg.DataDir, models.DirResults),
	}
}

// Setup prepares the working directories and, optionally, a config file and
// a connectivity check of every enabled destination.
func Setup(ctx context.Context, cfg *models.Config, v *viper.Viper, opts Options) error {
	for _, dir := range append(dataDirs(cfg), cfg.FigureDir) {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	log.Infof("created data dir %s and figure dir %s", cfg.DataDir, cfg.FigureDir)

	if opts.ConfigFile != "" {
		err := v.SafeWriteConfigAs(opts.ConfigFile)
		var exists viper.ConfigFileAlreadyExistsError
		switch {
		case errors.As(err, &exists):
			log.Infof("config %s exists, keeping it", opts.ConfigFile)
		case err != nil:
			return fmt.Errorf("failed to write config: %w", err)
		default:
			log.Infof("wrote config %s", opts.ConfigFile)
		}
	}

	if opts.CheckSinks {
		out, err := output.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("output check failed: %w", err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("output check failed: %w", err)
		}
		log.Info("all enabled outputs reachable")
	}
	return nil
}

// CheckInitialised fails with ErrNotInitialised when setup has not run.
func CheckInitialised(cfg *models.Config) error {
	for _, dir := range dataDirs(cfg) {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("%s missing: %w", dir, ErrNotInitialised)
		}
	}
	return nil
}

// Fetch builds every configured street network.
func Fetch(ctx context.Context, cfg *models.Config, opts Options) ([]string, error) {
	if err := CheckInitialised(cfg); err != nil {
		return nil, err
	}
	return streetnet.NewBuilder(cfg, opts.Force).BuildAll(ctx, cfg.StreetNetworks)
}

// Simulate sweeps the selected topologies of this shard.
func Simulate(ctx context.Context, cfg *models.Config, opts Options) error {
	if err := CheckInitialised(cfg); err != nil {
		return err
	}
	out, err := output.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Errorf("failed to close output: %v", err)
		}
	}()

	runner := simulator.NewRunner(cfg, out)
	jobs, err := runner.Plan(opts.Topologies)
	if err != nil {
		return err
	}
	netDir := filepath.Join(cfg.DataDir, models.DirNetworks)
	if missing := simulator.MissingNetworks(netDir, jobs); len(missing) > 0 {
		return fmt.Errorf("%w: street networks %v not built, run fetch first", ErrMissingInput, missing)
	}
	return runner.Run(ctx, jobs)
}

// Figures renders the selected figures.
func Figures(cfg *models.Config, opts Options) ([]string, error) {
	g := figures.NewGenerator(cfg, opts.AllowPartial)
	return g.RenderAll(figures.Catalog(cfg), opts.Figures)
}

// Run executes setup, fetch, simulate and figures in order and stops at the
// first failing stage.
func Run(ctx context.Context, cfg *models.Config, v *viper.Viper, opts Options) error {
	if err := Setup(ctx, cfg, v, opts); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	if _, err := Fetch(ctx, cfg, opts); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := Simulate(ctx, cfg, opts); err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	if _, err := Figures(cfg, opts); err != nil {
		return fmt.Errorf("figures: %w", err)
	}
	return nil
}
