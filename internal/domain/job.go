package domain

import (
	"sync/atomic"
	"time"
)

type JobStatus string

const (
	StatusCreated        JobStatus = "created"
	StatusAuthenticating JobStatus = "authenticating"
	StatusGranted        JobStatus = "granted"
	StatusDownloading    JobStatus = "downloading"
	StatusMerging        JobStatus = "merging"
	StatusSigning        JobStatus = "signing"
	StatusReady          JobStatus = "ready"
	StatusExpired        JobStatus = "expired"
	StatusFailed         JobStatus = "failed"
)

// AcquireRequest carries everything one acquisition needs. Credentials live
// only for the duration of the request and are never persisted.
type AcquireRequest struct {
	Email     string
	Password  string
	Code      string
	AppID     string
	VersionID string
}

// Job represents one acquisition from credential to servable archive.
// Each job exclusively owns its Workspace directory and every file below it.
// The live struct is mutated by the pipeline under the manager's lock;
// everything outside the manager sees JobSnapshot copies instead.
type Job struct {
	ID     string
	AppID  string
	Status JobStatus

	BundleID string
	AppName  string
	Version  string

	Workspace string
	FileName  string

	BytesWritten atomic.Uint64
	TotalBytes   uint64

	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// JobSnapshot is an immutable point-in-time copy of a Job, safe to read and
// serialize while the pipeline is still mutating the live job.
type JobSnapshot struct {
	ID           string    `json:"id"`
	AppID        string    `json:"app_id"`
	Status       JobStatus `json:"status"`
	BundleID     string    `json:"bundle_id,omitempty"`
	AppName      string    `json:"app_name,omitempty"`
	Version      string    `json:"version,omitempty"`
	Workspace    string    `json:"-"`
	FileName     string    `json:"file_name,omitempty"`
	BytesWritten uint64    `json:"bytes_written"`
	TotalBytes   uint64    `json:"total_bytes"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
	Error        string    `json:"error,omitempty"`
}
