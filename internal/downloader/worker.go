package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type chunkResult struct {
	Chunk *Chunk
	Err   error
}

// runWorkerPool dispatches the plan's chunks to a bounded pool, retrying
// failed chunks up to the configured limit with a fixed inter-attempt delay.
// It returns only once every chunk has either completed or exhausted its
// retry budget.
func (d *Downloader) runWorkerPool(ctx context.Context, plan *Plan, onProgress func(int64)) error {
	total := len(plan.Chunks)

	workerCount := d.cfg.Workers
	if workerCount > total {
		workerCount = total
	}

	// Buffers sized so neither dispatch nor retry re-queueing can block.
	jobs := make(chan *Chunk, total+workerCount)
	results := make(chan chunkResult, total+workerCount)

	done := make(chan struct{})
	for w := 0; w < workerCount; w++ {
		go d.worker(ctx, plan.URL, jobs, results, done)
	}
	defer close(done)

	for i := range plan.Chunks {
		jobs <- &plan.Chunks[i]
	}

	completed := 0
	var finalErr error

	for completed < total {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-results:
			if res.Err != nil {
				// If we have retries left, put it back in the pipeline
				if res.Chunk.Retries < d.cfg.RetryLimit {
					res.Chunk.Retries++
					d.log.Warn("[Retry] Chunk %d: attempt %d/%d - %v",
						res.Chunk.Index, res.Chunk.Retries, d.cfg.RetryLimit, res.Err)

					// Re-queue via a timer so this loop never blocks.
					chunk := res.Chunk
					time.AfterFunc(d.cfg.RetryDelay, func() {
						select {
						case <-done:
						case jobs <- chunk:
						}
					})

					continue // not counted as completed yet
				}

				// Permanent failure
				d.log.Error("[FAIL] Chunk %d permanently failed: %v", res.Chunk.Index, res.Err)
				finalErr = fmt.Errorf("chunk %d failed after %d attempts: %w",
					res.Chunk.Index, d.cfg.RetryLimit+1, res.Err)
			} else {
				res.Chunk.Done = true
				if onProgress != nil {
					onProgress(res.Chunk.Len())
				}
			}
			completed++
		}
	}

	return finalErr
}

// worker pulls chunks off the queue and fetches them until the pool shuts down.
func (d *Downloader) worker(ctx context.Context, url string, jobs <-chan *Chunk, results chan<- chunkResult, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case chunk := <-jobs:
			err := d.fetchChunk(ctx, url, chunk)
			select {
			case results <- chunkResult{Chunk: chunk, Err: err}:
			case <-done:
				return
			}
		}
	}
}

// fetchChunk performs one range-qualified GET attempt for a chunk. The chunk
// file is truncated on every attempt: a retried chunk must never append onto
// a prior partial write, which would corrupt its contents.
func (d *Downloader) fetchChunk(ctx context.Context, url string, chunk *Chunk) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.RequestTimeout)
	defer cancel()

	f, err := os.OpenFile(chunk.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error opening chunk file: %w", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", chunk.Start, chunk.End))

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return err
	}
	if n != chunk.Len() {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", chunk.Len(), n)
	}

	return f.Close()
}
