package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/chrisdamba/ridetopo/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineTakesEveryStageFlag(t *testing.T) {
	for _, stage := range []*cobra.Command{setupCmd, fetchCmd, simulateCmd, figuresCmd} {
		stage.Flags().VisitAll(func(f *pflag.Flag) {
			if stage == simulateCmd && f.Name == "list" {
				return
			}
			assert.NotNil(t, pipelineCmd.Flags().Lookup(f.Name), "%s --%s", stage.Name(), f.Name)
		})
	}
}

func TestDefaultConfigFile(t *testing.T) {
	assert.Equal(t, ".ridetopo.yaml", withDefaultConfigFile(pipeline.Options{}).ConfigFile)
	assert.Equal(t, "mine.yaml", withDefaultConfigFile(pipeline.Options{ConfigFile: "mine.yaml"}).ConfigFile)

	old := cfgFile
	cfgFile = "loaded.yaml"
	t.Cleanup(func() { cfgFile = old })
	assert.Empty(t, withDefaultConfigFile(pipeline.Options{}).ConfigFile)
}

func TestSimulateListHonoursConfiguredTopologies(t *testing.T) {
	old := cfg
	cfg = &models.Config{
		DataDir:        t.TempDir(),
		RateSteps:      100,
		ShardCount:     1,
		Topologies:     []string{"ring_10", "street_goe_homogenized"},
		StreetNetworks: models.DefaultStreetNetworks(),
	}
	t.Cleanup(func() { cfg = old })

	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	require.NoError(t, printPlan(c))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "ring_10 "), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "street_goe_homogenized "), lines[2])
	assert.Contains(t, lines[1], "0/100")
}
