package output

import (
	"context"
	"fmt"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/chrisdamba/ridetopo/internal/repositories"
	"github.com/chrisdamba/ridetopo/internal/repositories/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresOutput struct {
	repo      repositories.PointRepository
	closePool func()
}

func NewPostgresOutput(ctx context.Context, config models.DatabaseConfig) (*PostgresOutput, error) {
	pool, err := pgxpool.New(ctx, config.URL)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	repo := postgres.NewPointRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}
	return &PostgresOutput{repo: repo, closePool: pool.Close}, nil
}

// NewPostgresOutputWithRepository writes through an already migrated
// repository whose connections the caller owns.
func NewPostgresOutputWithRepository(repo repositories.PointRepository) *PostgresOutput {
	return &PostgresOutput{repo: repo, closePool: func() {}}
}

func (p *PostgresOutput) WritePoint(ctx context.Context, r *models.PointResult) error {
	if err := p.repo.ReplacePoint(ctx, r); err != nil {
		return fmt.Errorf("failed to store %s point %d: %w", r.Topology, r.Summary.Index, err)
	}
	return nil
}

func (p *PostgresOutput) Close() error {
	p.closePool()
	return nil
}
