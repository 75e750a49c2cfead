package simulator

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/chrisdamba/ridetopo/internal/network"
	"github.com/chrisdamba/ridetopo/internal/output"
	"github.com/chrisdamba/ridetopo/internal/results"
	"github.com/sirupsen/logrus"
)

// PointSeed derives the random seed of one rate point. It depends only on
// the global seed, the topology and the point index.
func PointSeed(seed int64, topology string, index int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%s/%d", seed, topology, index)
	return int64(h.Sum64())
}

// Sweep simulates the rate points of one topology.
type Sweep struct {
	Config *models.Config
	Store  *results.Store
	Output output.Destination
	RunID  string
	// called once per finished or skipped point
	OnPoint func()
}

func (s *Sweep) tick() {
	if s.OnPoint != nil {
		s.OnPoint()
	}
}

// Run simulates every point of job that is missing from its summary.
func (s *Sweep) Run(ctx context.Context, job Job, net *network.Network) error {
	logger := log.WithField("topology", job.Name)
	xs := s.Config.RateRange()
	if s.Store.Complete(job.Name, len(xs)) {
		logger.Info("results exist, doing nothing")
		for range xs {
			s.tick()
		}
		return nil
	}

	lAvg, err := net.AverageShortestPathLength(ctx, s.Config.Workers)
	if err != nil {
		return fmt.Errorf("%s: %w", job.Name, err)
	}
	logger.WithFields(logrus.Fields{
		"nodes": net.NumNodes(),
		"edges": net.NumEdges(),
		"l_avg": lAvg,
	}).Info("starting sweep")

	meta := models.Summary{
		Topology: job.Name,
		Kind:     job.Kind,
		Nodes:    net.NumNodes(),
		Edges:    net.NumEdges(),
		LAvg:     lAvg,
		RunID:    s.RunID,
	}
	done, err := s.Store.Load(job.Name)
	if err != nil {
		done = &models.Summary{}
	}

	for index, x := range xs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if done.HasPoint(index) {
			s.tick()
			continue
		}
		point, err := s.simulatePoint(ctx, job, net, lAvg, index, x)
		if err != nil {
			return err
		}
		if err := s.Output.WritePoint(ctx, point); err != nil {
			return fmt.Errorf("failed to write %s point %d: %w", job.Name, index, err)
		}
		if err := s.Store.SavePoint(meta, point.Summary); err != nil {
			return fmt.Errorf("failed to checkpoint %s: %w", job.Name, err)
		}
		logger.Debugf("point %d x=%.3f wait=%.3f", index, x, point.Summary.MeanWait)
		s.tick()
	}
	logger.Info("sweep finished")
	return nil
}

func (s *Sweep) simulatePoint(ctx context.Context, job Job, net *network.Network, lAvg float64, index int, x float64) (*models.PointResult, error) {
	rng := rand.New(rand.NewSource(PointSeed(s.Config.Seed, job.Name, index)))
	rate := x / (2 * lAvg)

	bus, err := NewZeroDetourBus(net, job.NetworkType, rng.Intn(net.NumNodes()))
	if err != nil {
		return nil, err
	}
	if err := bus.SimulateAll(UniformRequests(rng, net, s.Config.NumRequests, rate)); err != nil {
		return nil, fmt.Errorf("%s point %d: %w", job.Name, index, err)
	}
	summary, err := bus.Summary()
	if err != nil {
		return nil, err
	}
	summary.Index = index
	summary.X = x
	summary.Rate = rate

	requests, insertions := bus.Records(s.RunID, job.Name, index, x)
	return &models.PointResult{
		RunID:      s.RunID,
		Topology:   job.Name,
		Kind:       job.Kind,
		LAvg:       lAvg,
		Summary:    summary,
		Requests:   requests,
		Insertions: insertions,
	}, ctx.Err()
}
