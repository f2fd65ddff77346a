package downloader

import (
	"context"
	"fmt"
	"net/http"
)

// Chunk is one contiguous byte range of the remote file. Start and End are
// inclusive, matching the HTTP Range header form.
type Chunk struct {
	Index   int
	Start   int64
	End     int64
	Path    string
	Retries int
	Done    bool
}

func (c *Chunk) Len() int64 { return c.End - c.Start + 1 }

// Plan is an ordered set of chunks covering [0, Size) exactly once.
type Plan struct {
	URL    string
	Size   int64
	Chunks []Chunk
}

// BuildPlan partitions [0, size) into fixed-size contiguous ranges, the last
// truncated to the remainder.
func BuildPlan(url string, size, chunkSize int64) *Plan {
	count := size / chunkSize
	if size%chunkSize != 0 {
		count++
	}

	chunks := make([]Chunk, 0, count)
	for i := int64(0); i < count; i++ {
		start := i * chunkSize
		end := start + chunkSize - 1
		if end > size-1 {
			end = size - 1
		}
		chunks = append(chunks, Chunk{Index: int(i), Start: start, End: end})
	}

	return &Plan{URL: url, Size: size, Chunks: chunks}
}

// Plan probes the remote file for its total size and derives the chunk set.
func (d *Downloader) Plan(ctx context.Context, url string) (*Plan, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("size probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("size probe returned status %d", resp.StatusCode)
	}

	if resp.ContentLength <= 0 {
		return nil, fmt.Errorf("remote did not report a content length")
	}

	return BuildPlan(url, resp.ContentLength, d.cfg.ChunkSize), nil
}
