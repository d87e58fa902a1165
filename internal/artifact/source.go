package artifact

import (
	"context"
	"fmt"
	"io"

	"github.com/kebairia/reseed/internal/config"
)

// Source locates one dump artifact and hands it over as a stream.
type Source interface {
	// Acquire retrieves the artifact and returns a stream over its bytes.
	Acquire(ctx context.Context) (io.ReadCloser, error)
	// Identifier names this source for logs and run records.
	Identifier() string
}

// NewSourceFromConfig creates the appropriate Source based on configuration.
// An empty source means "local".
func NewSourceFromConfig(cfg config.ArtifactConfig) (Source, error) {
	switch cfg.Source {
	case "", "local":
		if cfg.Local.Path == "" {
			return nil, fmt.Errorf("artifact source is local but path is not configured")
		}
		return &LocalSource{Path: cfg.Local.Path}, nil

	case "s3":
		return NewS3Source(cfg.S3)

	default:
		return nil, fmt.Errorf("unsupported artifact source type: %s", cfg.Source)
	}
}
