package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ridetopo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFrom(viper.New(), writeConfig(t, "seed: 7\n"))
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 10000, cfg.NumRequests)
	assert.Equal(t, 100, cfg.RateSteps)
	assert.Equal(t, OutputFormatParquet, cfg.OutputFormat)
	assert.Equal(t, 5*time.Minute, cfg.OSM.Timeout)
	assert.Len(t, cfg.StreetNetworks, 3)
	assert.GreaterOrEqual(t, cfg.Workers, 1)

	xs := cfg.RateRange()
	require.Len(t, xs, 100)
	assert.Equal(t, 0.1, xs[0])
	assert.Equal(t, 40.0, xs[99])
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
num_requests: 500
rate_steps: 4
output_format: csv
figure_formats: pdf,png
osm:
  timeout: 30s
street_networks:
  - name: town
    file: town.osm.pbf
    highway_tags: [residential]
    coarse_graining:
      meters: 50
      target_edge_length: 150
`)
	t.Setenv("RIDETOPO_SHARD_COUNT", "4")
	t.Setenv("SLURM_ARRAY_TASK_ID", "2")

	cfg, err := LoadConfigFrom(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.NumRequests)
	assert.Equal(t, []string{"pdf", "png"}, cfg.FigureFormats)
	assert.Equal(t, 30*time.Second, cfg.OSM.Timeout)
	require.Len(t, cfg.StreetNetworks, 1)
	assert.Equal(t, 150.0, cfg.StreetNetworks[0].CoarseGraining.TargetEdgeLength)
	assert.Equal(t, 4, cfg.ShardCount)
	assert.Equal(t, 2, cfg.ShardIndex)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("RIDETOPO_KAFKA_ENABLED", "true")
	t.Setenv("RIDETOPO_DATABASE_ENABLED", "true")
	t.Setenv("RIDETOPO_DATABASE_URL", "postgres://sweep@db/ridetopo")
	t.Setenv("RIDETOPO_MONGO_ENABLED", "true")
	t.Setenv("RIDETOPO_MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("RIDETOPO_OUTPUT_DESTINATION", "cloud")
	t.Setenv("RIDETOPO_CLOUD_STORAGE_BUCKET_NAME", "sweeps")
	t.Setenv("RIDETOPO_TOPOLOGIES", "ring_10,grid_10")

	cfg, err := LoadConfigFrom(viper.New(), writeConfig(t, "seed: 1\n"))
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "postgres://sweep@db/ridetopo", cfg.Database.URL)
	assert.True(t, cfg.Mongo.Enabled)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URI)
	assert.Equal(t, DestinationCloud, cfg.OutputDestination)
	assert.Equal(t, "sweeps", cfg.CloudStorage.BucketName)
	assert.Equal(t, []string{"ring_10", "grid_10"}, cfg.Topologies)
}

func TestLoadConfigShardFromSlurmArray(t *testing.T) {
	// --array=1-4: the last task must map to shard 3 of 4
	t.Setenv("SLURM_ARRAY_TASK_ID", "4")
	t.Setenv("SLURM_ARRAY_TASK_MIN", "1")
	t.Setenv("SLURM_ARRAY_TASK_COUNT", "4")

	cfg, err := LoadConfigFrom(viper.New(), writeConfig(t, "seed: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.ShardIndex)
	assert.Equal(t, 4, cfg.ShardCount)

	// an explicit setting wins over the array task
	t.Setenv("RIDETOPO_SHARD_INDEX", "0")
	cfg, err = LoadConfigFrom(viper.New(), writeConfig(t, "seed: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.ShardIndex)
}

func TestLoadConfigTopologiesFromFile(t *testing.T) {
	cfg, err := LoadConfigFrom(viper.New(), writeConfig(t, "topologies: [ring_10, star_100]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ring_10", "star_100"}, cfg.Topologies)
}

func TestLoadConfigValidation(t *testing.T) {
	for name, body := range map[string]string{
		"bad shard":       "shard_count: 2\nshard_index: 2\n",
		"bad format":      "output_format: xml\n",
		"cloud no bucket": "output_destination: cloud\n",
		"rates":           "rate_min: 5\nrate_max: 1\n",
		"street no input": "street_networks:\n  - name: x\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfigFrom(viper.New(), writeConfig(t, body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := LoadConfigFrom(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLinspace(t *testing.T) {
	assert.Equal(t, []float64{1, 1.5, 2}, Linspace(1, 2, 3))
	assert.Equal(t, []float64{3}, Linspace(3, 9, 1))
	assert.Nil(t, Linspace(0, 1, 0))
}
