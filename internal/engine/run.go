package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/ipagrab/ipagrab/internal/domain"
)

const cacheDirName = "cache"

// Acquire runs one full acquisition: authenticate, request the grant,
// download, merge, sign, then arm the expiry timer. It is synchronous; the
// caller gets back a snapshot of either a READY job or the failed one, along
// with the error of the failing stage. On any failure the workspace is
// purged before returning.
func (m *Manager) Acquire(ctx context.Context, req domain.AcquireRequest) (domain.JobSnapshot, error) {
	job := &domain.Job{
		ID:        ksuid.New().String(),
		AppID:     req.AppID,
		Status:    domain.StatusCreated,
		StartedAt: time.Now(),
	}
	job.Workspace = filepath.Join(m.app.Config.Download.DataDir, job.ID)

	if err := os.MkdirAll(filepath.Join(job.Workspace, cacheDirName), 0755); err != nil {
		return domain.JobSnapshot{}, fmt.Errorf("failed to create workspace: %w", err)
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	// Overall deadline so a stalled job cannot hold its workspace forever.
	ctx, cancel := context.WithTimeout(ctx, m.app.Config.Download.JobTimeout)
	defer cancel()

	if err := m.run(ctx, job, req); err != nil {
		m.fail(job, err)
		return m.snapshot(job), err
	}

	m.record(job)
	return m.snapshot(job), nil
}

func (m *Manager) run(ctx context.Context, job *domain.Job, req domain.AcquireRequest) error {
	m.setStatus(job, domain.StatusAuthenticating)
	session, err := m.app.Store.Authenticate(ctx, req.Email, req.Password, req.Code)
	if err != nil {
		return err
	}

	grant, err := m.app.Store.DownloadProduct(ctx, session, req.AppID, req.VersionID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	job.Status = domain.StatusGranted
	job.BundleID = grant.BundleID
	job.AppName = grant.AppName
	job.Version = grant.Version
	m.mu.Unlock()

	plan, err := m.dl.Plan(ctx, grant.URL)
	if err != nil {
		return err
	}

	m.mu.Lock()
	job.TotalBytes = uint64(plan.Size)
	job.Status = domain.StatusDownloading
	m.mu.Unlock()
	cacheDir := filepath.Join(job.Workspace, cacheDirName)
	onProgress := func(n int64) { job.BytesWritten.Add(uint64(n)) }
	if err := m.dl.Download(ctx, plan, cacheDir, onProgress); err != nil {
		return err
	}

	m.setStatus(job, domain.StatusMerging)
	mergedPath := filepath.Join(job.Workspace, "merged.ipa")
	if err := m.dl.Merge(plan, mergedPath); err != nil {
		return err
	}

	m.setStatus(job, domain.StatusSigning)
	fileName := artifactName(grant, job.AppID)
	if err := m.signer.Sign(mergedPath, filepath.Join(job.Workspace, fileName), grant, req.Email); err != nil {
		return err
	}
	os.Remove(mergedPath)

	m.mu.Lock()
	job.FileName = fileName
	job.Status = domain.StatusReady
	m.mu.Unlock()

	m.scheduleExpiry(job)
	return nil
}

func (m *Manager) setStatus(job *domain.Job, status domain.JobStatus) {
	m.mu.Lock()
	job.Status = status
	m.mu.Unlock()

	m.app.Logger.Debug("Job %s -> %s", job.ID, status)
}

var badNameChars = regexp.MustCompile(`[\\/:*?"<>|\s]`)

// artifactName builds the served file name from the grant's metadata.
func artifactName(grant *domain.Grant, appID string) string {
	base := grant.BundleID
	if base == "" {
		base = appID
	}

	name := fmt.Sprintf("%s_%s_%s.ipa", base, appID, grant.Version)
	name = badNameChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}
