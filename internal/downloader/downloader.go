package downloader

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ipagrab/ipagrab/internal/infra/config"
	"github.com/ipagrab/ipagrab/internal/infra/logger"
)

// Downloader retrieves large remote files in parallel byte-range chunks,
// producing one byte-identical local artifact.
type Downloader struct {
	cfg  config.DownloadConfig
	http *http.Client
	log  *logger.Logger
}

func New(cfg config.DownloadConfig, log *logger.Logger) *Downloader {
	return &Downloader{
		cfg:  cfg,
		http: &http.Client{},
		log:  log,
	}
}

// Download fetches every chunk of the plan into cacheDir. onProgress, if
// non-nil, is called with the byte count of each completed chunk; it is
// advisory only. On return with nil error, every chunk is complete on disk.
func (d *Downloader) Download(ctx context.Context, plan *Plan, cacheDir string, onProgress func(int64)) error {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create chunk cache dir: %w", err)
	}

	for i := range plan.Chunks {
		plan.Chunks[i].Path = filepath.Join(cacheDir, fmt.Sprintf("chunk.%d", i))
	}

	d.log.Info("Downloading %d bytes in %d chunks (%d workers)",
		plan.Size, len(plan.Chunks), d.cfg.Workers)

	return d.runWorkerPool(ctx, plan, onProgress)
}
