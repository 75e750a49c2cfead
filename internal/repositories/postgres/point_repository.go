package postgres

import (
	"context"
	"fmt"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS sweep_points (
    topology             TEXT             NOT NULL,
    point_index          BIGINT           NOT NULL,
    run_id               TEXT             NOT NULL,
    kind                 TEXT             NOT NULL,
    l_avg                DOUBLE PRECISION NOT NULL,
    x                    DOUBLE PRECISION NOT NULL,
    rate                 DOUBLE PRECISION NOT NULL,
    num_requests         BIGINT           NOT NULL,
    mean_wait            DOUBLE PRECISION NOT NULL,
    mean_in_vehicle      DOUBLE PRECISION NOT NULL,
    mean_stoplist_length DOUBLE PRECISION NOT NULL,
    mean_route_volume    DOUBLE PRECISION NOT NULL,
    efficiency           DOUBLE PRECISION NOT NULL,
    mean_occupancy       DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (topology, point_index)
);
CREATE TABLE IF NOT EXISTS sweep_requests (
    run_id          TEXT             NOT NULL,
    topology        TEXT             NOT NULL,
    point_index     BIGINT           NOT NULL,
    x               DOUBLE PRECISION NOT NULL,
    request_id      BIGINT           NOT NULL,
    origin          BIGINT           NOT NULL,
    destination     BIGINT           NOT NULL,
    request_time    DOUBLE PRECISION NOT NULL,
    pickup_time     DOUBLE PRECISION NOT NULL,
    dropoff_time    DOUBLE PRECISION NOT NULL,
    wait_time       DOUBLE PRECISION NOT NULL,
    in_vehicle_time DOUBLE PRECISION NOT NULL,
    direct_distance BIGINT           NOT NULL
);
CREATE INDEX IF NOT EXISTS sweep_requests_point ON sweep_requests (topology, point_index);
CREATE TABLE IF NOT EXISTS sweep_insertions (
    run_id           TEXT             NOT NULL,
    topology         TEXT             NOT NULL,
    point_index      BIGINT           NOT NULL,
    x                DOUBLE PRECISION NOT NULL,
    request_id       BIGINT           NOT NULL,
    time             DOUBLE PRECISION NOT NULL,
    stoplist_length  BIGINT           NOT NULL,
    route_volume     BIGINT           NOT NULL,
    remaining_route  BIGINT           NOT NULL,
    pickup_index     BIGINT           NOT NULL,
    dropoff_index    BIGINT           NOT NULL,
    pickup_en_route  BOOLEAN          NOT NULL,
    dropoff_en_route BOOLEAN          NOT NULL
);
CREATE INDEX IF NOT EXISTS sweep_insertions_point ON sweep_insertions (topology, point_index);
`

var (
	requestColumns = []string{
		"run_id", "topology", "point_index", "x", "request_id", "origin", "destination",
		"request_time", "pickup_time", "dropoff_time", "wait_time", "in_vehicle_time", "direct_distance",
	}
	insertionColumns = []string{
		"run_id", "topology", "point_index", "x", "request_id", "time", "stoplist_length",
		"route_volume", "remaining_route", "pickup_index", "dropoff_index", "pickup_en_route", "dropoff_en_route",
	}
)

type PointRepository struct {
	pool *pgxpool.Pool
}

func NewPointRepository(pool *pgxpool.Pool) *PointRepository {
	return &PointRepository{pool: pool}
}

func (r *PointRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *PointRepository) ReplacePoint(ctx context.Context, p *models.PointResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	idx := int64(p.Summary.Index)
	for _, table := range []string{"sweep_points", "sweep_requests", "sweep_insertions"} {
		query := fmt.Sprintf("DELETE FROM %s WHERE topology = $1 AND point_index = $2", table)
		if _, err := tx.Exec(ctx, query, p.Topology, idx); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	s := p.Summary
	_, err = tx.Exec(ctx, `
        INSERT INTO sweep_points (
            topology, point_index, run_id, kind, l_avg, x, rate, num_requests,
            mean_wait, mean_in_vehicle, mean_stoplist_length, mean_route_volume,
            efficiency, mean_occupancy
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.Topology, idx, p.RunID, p.Kind, p.LAvg, s.X, s.Rate, int64(s.NumRequests),
		s.MeanWait, s.MeanInVehicle, s.MeanStoplistLength, s.MeanRouteVolume,
		s.Efficiency, s.MeanOccupancy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert point: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"sweep_requests"}, requestColumns,
		pgx.CopyFromSlice(len(p.Requests), func(i int) ([]any, error) {
			r := p.Requests[i]
			return []any{
				r.RunID, r.Topology, r.PointIndex, r.X, r.RequestID, r.Origin, r.Destination,
				r.RequestTime, r.PickupTime, r.DropoffTime, r.WaitTime, r.InVehicleTime, r.DirectDistance,
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("failed to copy requests: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"sweep_insertions"}, insertionColumns,
		pgx.CopyFromSlice(len(p.Insertions), func(i int) ([]any, error) {
			r := p.Insertions[i]
			return []any{
				r.RunID, r.Topology, r.PointIndex, r.X, r.RequestID, r.Time, r.StoplistLength,
				r.RouteVolume, r.RemainingRoute, r.PickupIndex, r.DropoffIndex, r.PickupEnRoute, r.DropoffEnRoute,
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("failed to copy insertions: %w", err)
	}

	return tx.Commit(ctx)
}
