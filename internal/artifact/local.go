package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
)

// LocalSource reads the dump artifact from a file on disk.
type LocalSource struct {
	Path string
}

// Acquire opens the file and returns it as a ReadCloser.
func (s *LocalSource) Acquire(ctx context.Context) (io.ReadCloser, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact at %s: %w", s.Path, err)
	}
	return file, nil
}

// Identifier returns the file path for traceability.
func (s *LocalSource) Identifier() string {
	return fmt.Sprintf("local:%s", s.Path)
}
