package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ipagrab/ipagrab/internal/domain"
	"github.com/ipagrab/ipagrab/internal/engine"
)

var (
	getEmail    string
	getPassword string
	getCode     string
	getAppID    string
	getVerID    string
	getOutput   string
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Fetch and relicense a single app without running the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if getEmail == "" || getPassword == "" || getAppID == "" {
			return fmt.Errorf("--email, --password and --app-id are required")
		}

		appCtx, err := newAppContext()
		if err != nil {
			return err
		}

		mgr := engine.NewManager(appCtx)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		progressCtx, stopProgress := context.WithCancel(ctx)
		go renderProgress(progressCtx, mgr)

		job, err := mgr.Acquire(ctx, domain.AcquireRequest{
			Email:     getEmail,
			Password:  getPassword,
			Code:      getCode,
			AppID:     getAppID,
			VersionID: getVerID,
		})
		stopProgress()
		fmt.Println()

		if err != nil {
			return err
		}

		dst := getOutput
		if dst == "" {
			dst = job.FileName
		}
		if err := copyFile(filepath.Join(job.Workspace, job.FileName), dst); err != nil {
			return err
		}

		// Artifact is delivered, reclaim the workspace now.
		mgr.Expire(job.ID)
		mgr.Shutdown()

		fmt.Printf("Saved %s\n", dst)
		return nil
	},
}

func init() {
	getCmd.Flags().StringVar(&getEmail, "email", "", "Apple account email")
	getCmd.Flags().StringVar(&getPassword, "password", "", "Apple account password")
	getCmd.Flags().StringVar(&getCode, "code", "", "two-factor code, if required")
	getCmd.Flags().StringVar(&getAppID, "app-id", "", "numeric app (adam) id")
	getCmd.Flags().StringVar(&getVerID, "app-ver-id", "", "external version id (optional)")
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "output path for the signed archive")
}

// renderProgress redraws a one-line progress bar while the download runs.
// Advisory only: throughput is computed from the delta between ticks.
func renderProgress(ctx context.Context, mgr *engine.Manager) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastBytes uint64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var job domain.JobSnapshot
			for _, j := range mgr.Jobs() {
				if j.Status == domain.StatusDownloading {
					job = j
					break
				}
			}
			if job.ID == "" || job.TotalBytes == 0 {
				continue
			}

			current := job.BytesWritten
			delta := current - lastBytes
			lastBytes = current

			speedMbps := float64(delta) * 8 / (1024 * 1024)
			percent := float64(current) / float64(job.TotalBytes) * 100

			const barWidth = 20
			completedWidth := int(percent / 100 * barWidth)
			bar := strings.Repeat("=", completedWidth)
			if completedWidth < barWidth {
				bar += ">" + strings.Repeat(" ", barWidth-completedWidth-1)
			}

			fmt.Printf("\r[%s] %5.1f%% | Speed: %6.2f Mbps | %d/%d MB      ",
				bar, percent, speedMbps, current/1024/1024, job.TotalBytes/1024/1024)
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
