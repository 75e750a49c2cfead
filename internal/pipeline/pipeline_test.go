package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="51.500" lon="9.900" visible="true" version="1"/>
  <node id="2" lat="51.502" lon="9.900" visible="true" version="1"/>
  <node id="3" lat="51.502" lon="9.903" visible="true" version="1"/>
  <node id="4" lat="51.500" lon="9.903" visible="true" version="1"/>
  <way id="10" visible="true" version="1">
    <nd ref="1"/><nd ref="2"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="11" visible="true" version="1">
    <nd ref="2"/><nd ref="3"/><nd ref="4"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="12" visible="true" version="1">
    <nd ref="4"/><nd ref="1"/>
    <tag k="highway" v="residential"/>
  </way>
</osm>
`

func testConfig(t *testing.T) *models.Config {
	dir := t.TempDir()
	osmFile := filepath.Join(dir, "sample.osm")
	require.NoError(t, os.WriteFile(osmFile, []byte(sampleOSM), 0o644))
	return &models.Config{
		Seed:              3,
		DataDir:           filepath.Join(dir, "data"),
		FigureDir:         filepath.Join(dir, "figures"),
		NumRequests:       40,
		RateMin:           0.5,
		RateMax:           2,
		RateSteps:         2,
		Workers:           2,
		ShardCount:        1,
		OutputFormat:      models.OutputFormatCSV,
		OutputDestination: models.DestinationLocal,
		FigureFormats:     []string{"png"},
		StreetNetworks: []models.StreetNetworkConfig{{
			Name:           "sample",
			File:           osmFile,
			HighwayTags:    []string{"residential"},
			CoarseGraining: models.CoarseGraining{TargetEdgeLength: 100},
		}},
	}
}

func TestStagesNeedSetup(t *testing.T) {
	cfg := testConfig(t)
	assert.ErrorIs(t, CheckInitialised(cfg), ErrNotInitialised)
	_, err := Fetch(context.Background(), cfg, Options{})
	assert.ErrorIs(t, err, ErrNotInitialised)
	assert.ErrorIs(t, Simulate(context.Background(), cfg, Options{}), ErrNotInitialised)
}

func TestSetupWritesConfigOnce(t *testing.T) {
	cfg := testConfig(t)
	v := viper.New()
	models.SetDefaults(v)
	cfgFile := filepath.Join(t.TempDir(), "ridetopo.yaml")

	require.NoError(t, Setup(context.Background(), cfg, v, Options{ConfigFile: cfgFile, CheckSinks: true}))
	assert.NoError(t, CheckInitialised(cfg))
	assert.DirExists(t, cfg.FigureDir)
	first, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.Contains(t, string(first), "num_requests")

	v.Set("num_requests", 5)
	require.NoError(t, Setup(context.Background(), cfg, v, Options{ConfigFile: cfgFile}))
	second, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSimulateNeedsStreetNetworks(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, Setup(context.Background(), cfg, viper.New(), Options{}))
	err := Simulate(context.Background(), cfg, Options{Topologies: []string{"street_sample_homogenized"}})
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = Figures(cfg, Options{Figures: []string{"wait_time"}})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestRunAllStages(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, Run(context.Background(), cfg, viper.New(), Options{}))

	for _, name := range []string{"wait_time", "stoplist", "efficiency", "street_wait_time"} {
		assert.FileExists(t, filepath.Join(cfg.FigureDir, name+".png"))
	}
	assert.NoFileExists(t, filepath.Join(cfg.FigureDir, "coarse_graining.png"))
	assert.FileExists(t, filepath.Join(cfg.DataDir, models.DirResults,
		"topology=street_sample_homogenized", "point=1", "requests.csv"))
	assert.FileExists(t, filepath.Join(cfg.DataDir, models.DirResults, "ring_100", "summary.json"))
}
