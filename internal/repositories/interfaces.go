package repositories

import (
	"context"

	"github.com/chrisdamba/ridetopo/internal/models"
)

// PointRepository stores simulated points. ReplacePoint is idempotent: a
// point written twice keeps only the rows of the last write.
type PointRepository interface {
	Migrate(ctx context.Context) error
	ReplacePoint(ctx context.Context, p *models.PointResult) error
}
