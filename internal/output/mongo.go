package output

import (
	"context"
	"fmt"

	"github.com/chrisdamba/ridetopo/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type pointDocument struct {
	Topology            string  `bson:"topology"`
	RunID               string  `bson:"runId"`
	Kind                string  `bson:"kind"`
	LAvg                float64 `bson:"lAvg"`
	models.PointSummary `bson:",inline"`
}

// MongoOutput keeps one summary document per topology and point.
type MongoOutput struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoOutput(ctx context.Context, config models.MongoConfig) (*MongoOutput, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}
	return &MongoOutput{
		client: client,
		coll:   client.Database(config.Database).Collection(config.Collection),
	}, nil
}

func (m *MongoOutput) WritePoint(ctx context.Context, p *models.PointResult) error {
	filter := bson.D{{Key: "topology", Value: p.Topology}, {Key: "index", Value: p.Summary.Index}}
	doc := pointDocument{
		Topology:     p.Topology,
		RunID:        p.RunID,
		Kind:         p.Kind,
		LAvg:         p.LAvg,
		PointSummary: p.Summary,
	}
	_, err := m.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert %s point %d: %w", p.Topology, p.Summary.Index, err)
	}
	return nil
}

func (m *MongoOutput) Close() error {
	return m.client.Disconnect(context.Background())
}
