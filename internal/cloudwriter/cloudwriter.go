package cloudwriter

import (
	"context"
	"fmt"

	"github.com/chrisdamba/ridetopo/internal/models"
)

// CloudWriter buffers an object and stores it on Close.
type CloudWriter interface {
	Write(data []byte) (int, error)
	Close() error
}

type CloudWriterFactory interface {
	NewWriter(ctx context.Context, objectPath string) (CloudWriter, error)
	// Location describes where objectPath ends up, for logging.
	Location(objectPath string) string
}

// New picks the writer factory for the configured output destination. Local
// objects live below root.
func New(ctx context.Context, cfg *models.Config, root string) (CloudWriterFactory, error) {
	switch cfg.OutputDestination {
	case models.DestinationLocal:
		return NewLocalWriterFactory(root), nil
	case models.DestinationCloud:
		switch cfg.CloudStorage.Provider {
		case "s3":
			return NewS3WriterFactory(ctx, cfg.CloudStorage.Region, cfg.CloudStorage.BucketName)
		default:
			return nil, fmt.Errorf("unsupported cloud storage provider: %s", cfg.CloudStorage.Provider)
		}
	default:
		return nil, fmt.Errorf("unsupported output destination: %s", cfg.OutputDestination)
	}
}
