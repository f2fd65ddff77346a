package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ipagrab/ipagrab/internal/app"
	"github.com/ipagrab/ipagrab/internal/domain"
	"github.com/ipagrab/ipagrab/internal/downloader"
	"github.com/ipagrab/ipagrab/internal/signer"
)

// Manager owns the lifecycle of acquisition jobs: it sequences the pipeline
// stages, isolates each job in its own workspace directory, and bounds how
// long a finished artifact stays on disk via explicit cancellable timers.
type Manager struct {
	app    *app.Context
	dl     *downloader.Downloader
	signer *signer.Signer

	mu     sync.RWMutex
	jobs   map[string]*domain.Job
	timers map[string]*time.Timer
}

func NewManager(appCtx *app.Context) *Manager {
	return &Manager{
		app:    appCtx,
		dl:     downloader.New(appCtx.Config.Download, appCtx.Logger),
		signer: signer.New(appCtx.Logger),
		jobs:   make(map[string]*domain.Job),
		timers: make(map[string]*time.Timer),
	}
}

// Job returns a snapshot of a job by id.
func (m *Manager) Job(id string) (domain.JobSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return domain.JobSnapshot{}, domain.ErrJobNotFound
	}
	return snapshotOf(job), nil
}

// Jobs returns snapshots of all known jobs.
func (m *Manager) Jobs() []domain.JobSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.JobSnapshot, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, snapshotOf(j))
	}
	return out
}

// snapshotOf copies the live job. Callers must hold m.mu.
func snapshotOf(job *domain.Job) domain.JobSnapshot {
	return domain.JobSnapshot{
		ID:           job.ID,
		AppID:        job.AppID,
		Status:       job.Status,
		BundleID:     job.BundleID,
		AppName:      job.AppName,
		Version:      job.Version,
		Workspace:    job.Workspace,
		FileName:     job.FileName,
		BytesWritten: job.BytesWritten.Load(),
		TotalBytes:   job.TotalBytes,
		StartedAt:    job.StartedAt,
		FinishedAt:   job.FinishedAt,
		Error:        job.Error,
	}
}

func (m *Manager) snapshot(job *domain.Job) domain.JobSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshotOf(job)
}

// Artifact resolves a served file path. The unpredictable job id plus the
// exact artifact name are the only access control on this surface.
func (m *Manager) Artifact(jobID, fileName string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return "", domain.ErrJobNotFound
	}
	if job.Status != domain.StatusReady || fileName == "" || fileName != job.FileName {
		return "", domain.ErrArtifactUnavailable
	}

	return filepath.Join(job.Workspace, job.FileName), nil
}

// Expire transitions a READY job to EXPIRED and purges its workspace.
func (m *Manager) Expire(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != domain.StatusReady {
		return
	}

	job.Status = domain.StatusExpired
	job.FinishedAt = time.Now()
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}

	if err := os.RemoveAll(job.Workspace); err != nil {
		m.app.Logger.Error("Failed to purge expired workspace %s: %v", job.Workspace, err)
		return
	}

	m.app.Logger.Info("Job %s expired, workspace purged", id)
}

// scheduleExpiry arms the TTL timer for a READY job.
func (m *Manager) scheduleExpiry(job *domain.Job) {
	ttl := m.app.Config.Serve.TTL

	m.mu.Lock()
	m.timers[job.ID] = time.AfterFunc(ttl, func() { m.Expire(job.ID) })
	m.mu.Unlock()

	m.app.Logger.Info("Job %s ready, artifact expires in %s", job.ID, ttl)
}

// fail marks the job FAILED and deletes its workspace immediately, so no
// partial artifact is ever observable.
func (m *Manager) fail(job *domain.Job, err error) {
	m.mu.Lock()
	job.Status = domain.StatusFailed
	job.FinishedAt = time.Now()
	job.Error = err.Error()
	m.mu.Unlock()

	if rmErr := os.RemoveAll(job.Workspace); rmErr != nil {
		m.app.Logger.Error("Failed to purge workspace %s: %v", job.Workspace, rmErr)
	}

	m.app.Logger.Error("Job %s failed: %v", job.ID, err)
	m.record(job)
}

// SweepExpired removes workspace directories in the data dir that no active
// job owns and whose mtime is older than the cutoff. It catches directories
// stranded by a process restart, when the in-memory timers are gone. Terminal
// job entries past the cutoff are dropped from the job map at the same time;
// their outcome lives on in history.
func (m *Manager) SweepExpired(ctx context.Context, olderThan time.Time) (int, error) {
	m.pruneTerminal(olderThan)

	entries, err := os.ReadDir(m.app.Config.Download.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if !e.IsDir() {
			continue
		}

		if m.ownsActive(e.Name()) {
			continue
		}

		info, err := e.Info()
		if err != nil || info.ModTime().After(olderThan) {
			continue
		}

		dir := filepath.Join(m.app.Config.Download.DataDir, e.Name())
		if err := os.RemoveAll(dir); err != nil {
			m.app.Logger.Error("Sweep failed to remove %s: %v", dir, err)
			continue
		}
		removed++
	}

	return removed, nil
}

// pruneTerminal drops EXPIRED and FAILED jobs that finished before the
// cutoff, so a long-running process does not accumulate dead entries.
func (m *Manager) pruneTerminal(olderThan time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, job := range m.jobs {
		if job.Status != domain.StatusExpired && job.Status != domain.StatusFailed {
			continue
		}
		if job.FinishedAt.IsZero() || !job.FinishedAt.Before(olderThan) {
			continue
		}
		delete(m.jobs, id)
	}
}

func (m *Manager) ownsActive(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return false
	}
	return job.Status != domain.StatusExpired && job.Status != domain.StatusFailed
}

// Shutdown stops all expiry timers. Workspaces are left for the next
// startup sweep.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}

func (m *Manager) record(job *domain.Job) {
	if m.app.History == nil {
		return
	}

	snap := m.snapshot(job)
	err := m.app.History.Record(domain.Acquisition{
		ID:       snap.ID,
		AppID:    snap.AppID,
		BundleID: snap.BundleID,
		AppName:  snap.AppName,
		Version:  snap.Version,
		Status:   string(snap.Status),
		Bytes:    snap.BytesWritten,
		Error:    snap.Error,
		Created:  snap.StartedAt,
	})
	if err != nil {
		m.app.Logger.Error("Failed to record acquisition %s: %v", snap.ID, err)
	}
}
