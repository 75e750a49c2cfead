package output

import (
	"context"
	"errors"

	"github.com/chrisdamba/ridetopo/internal/models"
)

// MultiOutput fans every point out to all its destinations in order and
// stops at the first failure.
type MultiOutput struct {
	outputs []Destination
}

func NewMultiOutput(outputs ...Destination) *MultiOutput {
	return &MultiOutput{outputs: outputs}
}

func (m *MultiOutput) WritePoint(ctx context.Context, p *models.PointResult) error {
	for _, o := range m.outputs {
		if err := o.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiOutput) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
