package output

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chrisdamba/ridetopo/internal/cloudwriter"
	"github.com/chrisdamba/ridetopo/internal/models"
)

// JSONOutput writes newline-delimited JSON, one object per record.
type JSONOutput struct {
	factory cloudwriter.CloudWriterFactory
}

func NewJSONOutput(factory cloudwriter.CloudWriterFactory) *JSONOutput {
	return &JSONOutput{factory: factory}
}

func (j *JSONOutput) WritePoint(ctx context.Context, p *models.PointResult) error {
	if err := writeJSONLines(ctx, j.factory, PartitionKey(p.Topology, p.Summary.Index, models.TopicRequests, "json"), p.Requests); err != nil {
		return err
	}
	return writeJSONLines(ctx, j.factory, PartitionKey(p.Topology, p.Summary.Index, models.TopicInsertions, "json"), p.Insertions)
}

func writeJSONLines[T any](ctx context.Context, factory cloudwriter.CloudWriterFactory, key string, rows []T) error {
	w, err := factory.NewWriter(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to create file for %s: %w", key, err)
	}
	enc := json.NewEncoder(w)
	for i := range rows {
		if err := enc.Encode(&rows[i]); err != nil {
			w.Close()
			return fmt.Errorf("failed to write JSON record: %w", err)
		}
	}
	return w.Close()
}

func (j *JSONOutput) Close() error {
	return nil
}
