package output

import (
	"context"
	"encoding/csv"
	"fmt"

	"github.com/chrisdamba/ridetopo/internal/cloudwriter"
	"github.com/chrisdamba/ridetopo/internal/models"
)

type csvRow interface {
	CSVHeader() []string
	CSVRow() []string
}

type CSVOutput struct {
	factory cloudwriter.CloudWriterFactory
}

func NewCSVOutput(factory cloudwriter.CloudWriterFactory) *CSVOutput {
	return &CSVOutput{factory: factory}
}

func (c *CSVOutput) WritePoint(ctx context.Context, p *models.PointResult) error {
	if err := writeCSV(ctx, c.factory, PartitionKey(p.Topology, p.Summary.Index, models.TopicRequests, "csv"), p.Requests); err != nil {
		return err
	}
	return writeCSV(ctx, c.factory, PartitionKey(p.Topology, p.Summary.Index, models.TopicInsertions, "csv"), p.Insertions)
}

func writeCSV[T csvRow](ctx context.Context, factory cloudwriter.CloudWriterFactory, key string, rows []T) error {
	w, err := factory.NewWriter(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to create file for %s: %w", key, err)
	}
	cw := csv.NewWriter(w)
	var zero T
	if err := cw.Write(zero.CSVHeader()); err != nil {
		w.Close()
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.CSVRow()); err != nil {
			w.Close()
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		w.Close()
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	log.Debugf("wrote %d rows to %s", len(rows), factory.Location(key))
	return nil
}

func (c *CSVOutput) Close() error {
	return nil
}
