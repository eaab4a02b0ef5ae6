package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Export writes matching records as zstd-compressed JSON lines, oldest
// first, and returns the record count.
func (s *Storage) Export(ctx context.Context, w io.Writer, q Query) (int, error) {
	records, err := s.Recent(ctx, q)
	if err != nil {
		return 0, err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd writer: %w", err)
	}

	out := json.NewEncoder(enc)
	// Recent returns newest first; exports read better in time order.
	for i := len(records) - 1; i >= 0; i-- {
		if err := out.Encode(records[i]); err != nil {
			enc.Close()
			return 0, fmt.Errorf("failed to encode record: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}
	return len(records), nil
}
