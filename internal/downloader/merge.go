package downloader

import (
	"fmt"
	"io"
	"os"
)

// Merge concatenates the plan's chunk files in index order into destPath,
// deleting each chunk file as it is consumed. It refuses to run unless every
// chunk is marked complete, so a partial chunk set is never observable in
// the output.
func (d *Downloader) Merge(plan *Plan, destPath string) error {
	for i := range plan.Chunks {
		if !plan.Chunks[i].Done {
			return fmt.Errorf("chunk %d incomplete, refusing to merge", i)
		}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}

	var written int64
	for i := range plan.Chunks {
		n, err := appendAndCleanup(plan.Chunks[i].Path, out)
		if err != nil {
			out.Close()
			return err
		}
		written += n
	}

	if err := out.Close(); err != nil {
		return err
	}

	if written != plan.Size {
		return fmt.Errorf("merged size mismatch: expected %d, got %d", plan.Size, written)
	}

	return nil
}

func appendAndCleanup(srcPath string, dst io.Writer) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		// If a chunk file is missing, the whole artifact is corrupt.
		return 0, fmt.Errorf("missing chunk file %s: %w", srcPath, err)
	}

	// Stream the chunk into the final file
	n, err := io.Copy(dst, src)
	src.Close() // Close before removing

	if err != nil {
		return n, err
	}

	// Clean up the chunk immediately to free space
	return n, os.Remove(srcPath)
}
