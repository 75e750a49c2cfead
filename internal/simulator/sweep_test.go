package simulator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/chrisdamba/ridetopo/internal/results"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingOutput struct {
	mu     sync.Mutex
	points map[string][]int
}

func newCollectingOutput() *collectingOutput {
	return &collectingOutput{points: make(map[string][]int)}
}

func (c *collectingOutput) WritePoint(_ context.Context, p *models.PointResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points[p.Topology] = append(c.points[p.Topology], p.Summary.Index)
	return nil
}

func (c *collectingOutput) Close() error { return nil }

func testConfig(t *testing.T) *models.Config {
	return &models.Config{
		Seed:              7,
		DataDir:           t.TempDir(),
		NumRequests:       150,
		RateMin:           0.5,
		RateMax:           4,
		RateSteps:         3,
		Workers:           2,
		ShardCount:        1,
		OutputFormat:      models.OutputFormatConsole,
		OutputDestination: models.DestinationLocal,
		StreetNetworks:    models.DefaultStreetNetworks(),
	}
}

func jobNamed(t *testing.T, cfg *models.Config, name string) Job {
	jobs, err := Select(Catalog(cfg), []string{name})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	return jobs[0]
}

func TestSweepIsDeterministicAndResumable(t *testing.T) {
	cfg := testConfig(t)
	job := jobNamed(t, cfg, "grid_10")
	net, err := job.Network("")
	require.NoError(t, err)

	full := results.NewStore(filepath.Join(t.TempDir(), "a"))
	out := newCollectingOutput()
	ticks := 0
	sweep := &Sweep{Config: cfg, Store: full, Output: out, RunID: "a", OnPoint: func() { ticks++ }}
	require.NoError(t, sweep.Run(context.Background(), job, net))
	assert.Equal(t, []int{0, 1, 2}, out.points["grid_10"])
	assert.Equal(t, 3, ticks)

	expected, err := full.Load("grid_10")
	require.NoError(t, err)
	require.Len(t, expected.Points, 3)
	assert.Equal(t, 100, expected.Nodes)
	for i, p := range expected.Points {
		assert.Equal(t, 150, p.NumRequests)
		assert.InDelta(t, cfg.RateRange()[i]/(2*expected.LAvg), p.Rate, 1e-12)
		assert.GreaterOrEqual(t, p.MeanWait, 0.0)
	}

	// a second store that already holds point 1 only simulates the others
	partial := results.NewStore(filepath.Join(t.TempDir(), "b"))
	require.NoError(t, partial.SavePoint(models.Summary{Topology: "grid_10"}, expected.Points[1]))
	out = newCollectingOutput()
	sweep = &Sweep{Config: cfg, Store: partial, Output: out, RunID: "b"}
	require.NoError(t, sweep.Run(context.Background(), job, net))
	assert.Equal(t, []int{0, 2}, out.points["grid_10"])

	resumed, err := partial.Load("grid_10")
	require.NoError(t, err)
	assert.Equal(t, expected.Points, resumed.Points)

	// complete summaries are left alone
	out = newCollectingOutput()
	sweep = &Sweep{Config: cfg, Store: partial, Output: out, RunID: "c"}
	require.NoError(t, sweep.Run(context.Background(), job, net))
	assert.Empty(t, out.points)
}

func TestSweepStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	job := jobNamed(t, cfg, "ring_10")
	net, err := job.Network("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sweep := &Sweep{Config: cfg, Store: results.NewStore(t.TempDir()), Output: newCollectingOutput()}
	assert.ErrorIs(t, sweep.Run(ctx, job, net), context.Canceled)
}

func TestPointSeed(t *testing.T) {
	assert.Equal(t, PointSeed(1, "ring_10", 3), PointSeed(1, "ring_10", 3))
	assert.NotEqual(t, PointSeed(1, "ring_10", 3), PointSeed(1, "ring_10", 4))
	assert.NotEqual(t, PointSeed(1, "ring_10", 3), PointSeed(2, "ring_10", 3))
	assert.NotEqual(t, PointSeed(1, "ring_10", 3), PointSeed(1, "ring_100", 3))
}

func TestCatalogAndSharding(t *testing.T) {
	cfg := testConfig(t)
	jobs := Catalog(cfg)
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Name
	}
	assert.True(t, sort.StringsAreSorted(names))
	assert.Len(t, jobs, 12)
	assert.Contains(t, names, "street_berlin_homogenized_coarse_graining_meters_200_target_edge_length_800")

	street := jobNamed(t, cfg, "street_goe_homogenized")
	assert.True(t, street.Street)
	assert.Equal(t, models.NetworkTypeNoVolComp, street.NetworkType)
	assert.Equal(t, models.NetworkTypeTrigrid, jobNamed(t, cfg, "trigrid_13").NetworkType)

	seen := map[string]int{}
	for k := 0; k < 5; k++ {
		for _, j := range Shard(jobs, k, 5) {
			seen[j.Name]++
		}
	}
	assert.Len(t, seen, len(jobs))
	for _, c := range seen {
		assert.Equal(t, 1, c)
	}
	assert.Equal(t, []Job{jobs[1], jobs[6], jobs[11]}, Shard(jobs, 1, 5))

	_, err := Select(jobs, []string{"ring_10", "moebius"})
	assert.Error(t, err)

	assert.Equal(t, names[5:11], MissingNetworks(t.TempDir(), jobs))
}

func TestRunner(t *testing.T) {
	cfg := testConfig(t)
	out := newCollectingOutput()
	r := NewRunner(cfg, out)
	r.progress = io.Discard
	assert.NotEmpty(t, r.RunID())

	jobs, err := r.Plan([]string{"ring_10", "line_100", "star_100"})
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), jobs))
	assert.Len(t, out.points, 3)
	for _, name := range []string{"ring_10", "line_100", "star_100"} {
		assert.True(t, r.Store().Complete(name, cfg.RateSteps), name)
	}

	streetJobs, err := r.Plan([]string{"street_harz_homogenized"})
	require.NoError(t, err)
	assert.Error(t, r.Run(context.Background(), streetJobs))

	cfg.ShardIndex, cfg.ShardCount = 1, 2
	sharded, err := r.Plan(nil)
	require.NoError(t, err)
	assert.Len(t, sharded, 6)
}

func TestPlanUsesConfiguredTopologies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ridetopo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("topologies: [ring_10, grid_10]\n"), 0o644))
	cfg, err := models.LoadConfigFrom(viper.New(), path)
	require.NoError(t, err)

	r := NewRunner(cfg, nil)
	jobs, err := r.Plan(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"grid_10", "ring_10"}, lo.Map(jobs, func(j Job, _ int) string { return j.Name }))

	// explicit names win over the config
	jobs, err = r.Plan([]string{"star_100"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "star_100", jobs[0].Name)

	cfg.Topologies = []string{"ring_7"}
	_, err = r.Plan(nil)
	assert.Error(t, err)
}
