package generator

import (
	"context"
	"fmt"
	"io"
)

// Emit writes generated lines to w at the generator's rate until ctx is done,
// count lines have been written (count <= 0 means no limit), or a write
// fails. It returns the number of lines written.
func (g *Generator) Emit(ctx context.Context, w io.Writer, count int) (int, error) {
	ticker := NewTicker(g.rateLimiter)
	defer ticker.Stop()

	written := 0
	for count <= 0 || written < count {
		select {
		case <-ctx.Done():
			return written, nil
		case <-ticker.C:
			line, err := g.NextLine()
			if err != nil {
				return written, err
			}
			if _, err := w.Write(line); err != nil {
				return written, fmt.Errorf("failed to write sample: %w", err)
			}
			written++
		}
	}
	return written, nil
}
