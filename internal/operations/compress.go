package operations

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// DecompressZstd wraps r with streaming Zstandard decompression. Close the
// returned decoder once the stream is drained to release its buffers.
func DecompressZstd(r io.Reader) (*zstd.Decoder, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create Zstandard reader: %w", err)
	}
	return decoder, nil
}
