package cloudwriter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalWriterPublishesOnClose(t *testing.T) {
	root := t.TempDir()
	f := NewLocalWriterFactory(root)

	w, err := f.NewWriter(context.Background(), "results/topology=ring_10/point=3/requests.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("a,b\n"))
	require.NoError(t, err)

	final := filepath.Join(root, "results", "topology=ring_10", "point=3", "requests.csv")
	assert.NoFileExists(t, final)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := &models.Config{
		OutputDestination: models.DestinationCloud,
		CloudStorage:      models.CloudStorageConfig{Provider: "azure", BucketName: "b"},
	}
	_, err := New(context.Background(), cfg, t.TempDir())
	assert.Error(t, err)

	cfg.OutputDestination = models.DestinationLocal
	f, err := New(context.Background(), cfg, "/data")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "x", "y.json"), f.Location("x/y.json"))
}

func TestWriteFileAtomicReplacesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results", "ring_10")
	path := filepath.Join(dir, "summary.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"points":[]}`)))
	require.NoError(t, WriteFileAtomic(path, []byte(`{"points":[1]}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"points":[1]}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "summary.json", entries[0].Name())
}
