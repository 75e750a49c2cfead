package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/chrisdamba/ridetopo/internal/models"
)

// ConsoleOutput prints a one-line summary per point.
type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleOutput writes to w, or stdout when w is nil.
func NewConsoleOutput(w io.Writer) *ConsoleOutput {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleOutput{w: w}
}

func (c *ConsoleOutput) WritePoint(_ context.Context, p *models.PointResult) error {
	s := p.Summary
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "[%s] point=%d x=%.3f requests=%d wait/l_avg=%.4f stoplist=%.3f efficiency=%.4f\n",
		p.Topology, s.Index, s.X, s.NumRequests, s.MeanWait/p.LAvg, s.MeanStoplistLength, s.Efficiency)
	if err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	return nil
}

func (c *ConsoleOutput) Close() error {
	return nil
}
