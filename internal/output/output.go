package output

import (
	"context"
	"fmt"
	"path"

	"github.com/chrisdamba/ridetopo/internal/cloudwriter"
	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "output")

// Destination receives the records of every simulated rate point.
// Implementations are safe for concurrent use.
type Destination interface {
	WritePoint(ctx context.Context, p *models.PointResult) error
	Close() error
}

// PartitionKey is the object path of one table of a point, laid out as hive
// partitions so that query engines can prune by topology and point.
func PartitionKey(topology string, point int, table, ext string) string {
	return path.Join(
		models.DirResults,
		"topology="+topology,
		fmt.Sprintf("point=%d", point),
		table+"."+ext,
	)
}

// New builds the configured destinations. The file format is always present;
// Postgres, MongoDB and Kafka are added when enabled.
func New(ctx context.Context, cfg *models.Config) (Destination, error) {
	var outputs []Destination
	closeAll := func() {
		for _, o := range outputs {
			_ = o.Close()
		}
	}

	primary, err := newPrimary(ctx, cfg)
	if err != nil {
		return nil, err
	}
	outputs = append(outputs, primary)

	if cfg.Database.Enabled {
		pg, err := NewPostgresOutput(ctx, cfg.Database)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to create Postgres output: %w", err)
		}
		outputs = append(outputs, pg)
	}
	if cfg.Mongo.Enabled {
		mg, err := NewMongoOutput(ctx, cfg.Mongo)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to create MongoDB output: %w", err)
		}
		outputs = append(outputs, mg)
	}
	if cfg.KafkaEnabled {
		k, err := NewKafkaOutput(cfg)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to create Kafka output: %w", err)
		}
		outputs = append(outputs, k)
	}

	if len(outputs) == 1 {
		return outputs[0], nil
	}
	return NewMultiOutput(outputs...), nil
}

func newPrimary(ctx context.Context, cfg *models.Config) (Destination, error) {
	if cfg.OutputFormat == models.OutputFormatConsole {
		return NewConsoleOutput(nil), nil
	}
	factory, err := cloudwriter.New(ctx, cfg, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create writer factory: %w", err)
	}
	switch cfg.OutputFormat {
	case models.OutputFormatCSV:
		return NewCSVOutput(factory), nil
	case models.OutputFormatJSON:
		return NewJSONOutput(factory), nil
	case models.OutputFormatParquet:
		if cfg.OutputDestination == models.DestinationLocal {
			return NewLocalParquetOutput(cfg.DataDir), nil
		}
		return NewParquetOutput(factory), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", cfg.OutputFormat)
	}
}
