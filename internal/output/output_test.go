package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IBM/sarama/mocks"
	"github.com/chrisdamba/ridetopo/internal/cloudwriter"
	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

func samplePoint() *models.PointResult {
	return &models.PointResult{
		RunID:    "run1",
		Topology: "ring_10",
		Kind:     models.KindRing,
		LAvg:     2.5,
		Summary: models.PointSummary{
			Index:              7,
			X:                  1.5,
			Rate:               0.3,
			NumRequests:        2,
			MeanWait:           5,
			MeanStoplistLength: 1.5,
			Efficiency:         0.8,
		},
		Requests: []models.RequestRecord{
			{RunID: "run1", Topology: "ring_10", PointIndex: 7, X: 1.5, RequestID: 1, Origin: 0, Destination: 3, RequestTime: 0.5, PickupTime: 1, DropoffTime: 4, WaitTime: 0.5, InVehicleTime: 3, DirectDistance: 3},
			{RunID: "run1", Topology: "ring_10", PointIndex: 7, X: 1.5, RequestID: 2, Origin: 2, Destination: 1, RequestTime: 0.9, PickupTime: 3, DropoffTime: 6, WaitTime: 2.1, InVehicleTime: 3, DirectDistance: 1},
		},
		Insertions: []models.InsertionRecord{
			{RunID: "run1", Topology: "ring_10", PointIndex: 7, X: 1.5, RequestID: 1, Time: 0.5, RouteVolume: 1, PickupIndex: 0, DropoffIndex: -1, PickupEnRoute: true},
			{RunID: "run1", Topology: "ring_10", PointIndex: 7, X: 1.5, RequestID: 2, Time: 0.9, StoplistLength: 1, RouteVolume: 4, RemainingRoute: 3, PickupIndex: 2, DropoffIndex: -1, PickupEnRoute: true},
		},
	}
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, "results/topology=grid_10/point=12/requests.parquet",
		PartitionKey("grid_10", 12, models.TopicRequests, "parquet"))
}

func TestCSVOutput(t *testing.T) {
	root := t.TempDir()
	out := NewCSVOutput(cloudwriter.NewLocalWriterFactory(root))
	require.NoError(t, out.WritePoint(context.Background(), samplePoint()))
	require.NoError(t, out.Close())

	f, err := os.Open(filepath.Join(root, filepath.FromSlash(PartitionKey("ring_10", 7, models.TopicRequests, "csv"))))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.RequestRecord{}.CSVHeader(), rows[0])
	assert.Equal(t, []string{"run1", "ring_10", "7", "1.5", "2", "2", "1", "0.9", "3", "6", "2.1", "3", "1"}, rows[2])

	assert.FileExists(t, filepath.Join(root, filepath.FromSlash(PartitionKey("ring_10", 7, models.TopicInsertions, "csv"))))
}

func TestJSONOutputOverwritesPoint(t *testing.T) {
	root := t.TempDir()
	out := NewJSONOutput(cloudwriter.NewLocalWriterFactory(root))
	p := samplePoint()
	require.NoError(t, out.WritePoint(context.Background(), p))
	p.Insertions = p.Insertions[:1]
	require.NoError(t, out.WritePoint(context.Background(), p))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(PartitionKey("ring_10", 7, models.TopicInsertions, "json"))))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var rec models.InsertionRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, p.Insertions[0], rec)
}

func TestLocalParquetOutput(t *testing.T) {
	root := t.TempDir()
	out := NewLocalParquetOutput(root)
	p := samplePoint()
	require.NoError(t, out.WritePoint(context.Background(), p))

	fr, err := local.NewLocalFileReader(filepath.Join(root, filepath.FromSlash(PartitionKey("ring_10", 7, models.TopicRequests, "parquet"))))
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(models.RequestRecord), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.EqualValues(t, 2, pr.GetNumRows())
	rows := make([]models.RequestRecord, 2)
	require.NoError(t, pr.Read(&rows))
	assert.Equal(t, p.Requests, rows)
}

func TestCloudParquetFileThroughWriterFactory(t *testing.T) {
	root := t.TempDir()
	out := NewParquetOutput(cloudwriter.NewLocalWriterFactory(root))
	require.NoError(t, out.WritePoint(context.Background(), samplePoint()))

	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(PartitionKey("ring_10", 7, models.TopicInsertions, "parquet"))))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	out := NewConsoleOutput(&buf)
	require.NoError(t, out.WritePoint(context.Background(), samplePoint()))
	assert.Equal(t, "[ring_10] point=7 x=1.500 requests=2 wait/l_avg=2.0000 stoplist=1.500 efficiency=0.8000\n", buf.String())
}

func TestKafkaOutput(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg PointMessage
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.Topology != "ring_10" || msg.Summary.Index != 7 || msg.RunID != "run1" {
			return errors.New("unexpected message")
		}
		return nil
	})
	out := NewKafkaOutputWithProducer(producer, "sweep_points")
	require.NoError(t, out.WritePoint(context.Background(), samplePoint()))
	require.NoError(t, out.Close())
	assert.Error(t, out.WritePoint(context.Background(), samplePoint()))
}

type recordingOutput struct {
	points []int
	err    error
	closed bool
}

func (r *recordingOutput) WritePoint(_ context.Context, p *models.PointResult) error {
	if r.err != nil {
		return r.err
	}
	r.points = append(r.points, p.Summary.Index)
	return nil
}

func (r *recordingOutput) Close() error {
	r.closed = true
	return nil
}

func TestMultiOutput(t *testing.T) {
	a, b := &recordingOutput{}, &recordingOutput{}
	m := NewMultiOutput(a, b)
	require.NoError(t, m.WritePoint(context.Background(), samplePoint()))
	require.NoError(t, m.Close())
	assert.Equal(t, []int{7}, a.points)
	assert.Equal(t, []int{7}, b.points)
	assert.True(t, a.closed && b.closed)

	failing := &recordingOutput{err: errors.New("boom")}
	c := &recordingOutput{}
	m = NewMultiOutput(failing, c)
	assert.Error(t, m.WritePoint(context.Background(), samplePoint()))
	assert.Empty(t, c.points)
}

func TestNewPrimaryOutputs(t *testing.T) {
	cfg := &models.Config{DataDir: t.TempDir(), OutputDestination: models.DestinationLocal}
	for format, expected := range map[string]Destination{
		models.OutputFormatCSV:     &CSVOutput{},
		models.OutputFormatJSON:    &JSONOutput{},
		models.OutputFormatParquet: &ParquetOutput{},
		models.OutputFormatConsole: &ConsoleOutput{},
	} {
		cfg.OutputFormat = format
		d, err := New(context.Background(), cfg)
		require.NoError(t, err, format)
		assert.IsType(t, expected, d, format)
	}

	cfg.OutputFormat = "xml"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

type memoryRepository struct {
	points map[string]*models.PointResult
	err    error
}

func (m *memoryRepository) Migrate(context.Context) error { return nil }

func (m *memoryRepository) ReplacePoint(_ context.Context, p *models.PointResult) error {
	if m.err != nil {
		return m.err
	}
	m.points[PartitionKey(p.Topology, p.Summary.Index, "point", "row")] = p
	return nil
}

func TestPostgresOutputReplacesPoint(t *testing.T) {
	repo := &memoryRepository{points: make(map[string]*models.PointResult)}
	out := NewPostgresOutputWithRepository(repo)

	require.NoError(t, out.WritePoint(context.Background(), samplePoint()))
	require.NoError(t, out.WritePoint(context.Background(), samplePoint()))
	require.Len(t, repo.points, 1)
	assert.Len(t, repo.points[PartitionKey("ring_10", 7, "point", "row")].Requests, 2)
	require.NoError(t, out.Close())

	repo.err = errors.New("connection reset")
	err := out.WritePoint(context.Background(), samplePoint())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ring_10 point 7")
}
