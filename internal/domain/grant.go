package domain

import "time"

// Session is the opaque result of store authentication. It is held only for
// the duration of one acquisition and never persisted.
type Session struct {
	DSID          string // account discriminator, sent as X-Dsid on later calls
	PasswordToken string
	GUID          string // device identifier the session authenticated with
}

// Sinf is a per-account licensing signature issued alongside a purchase.
// Only the blob with ID 0 is relevant to relicensing.
type Sinf struct {
	ID   int64  `plist:"id"`
	Data []byte `plist:"sinf"`
}

// Grant is the authenticated authorization to download one app version:
// a time-limited URL plus the signing material and metadata the archive
// must be patched with. Owned exclusively by the job that requested it.
type Grant struct {
	AppName  string
	BundleID string
	Version  string
	URL      string
	Sinfs    []Sinf
	Metadata map[string]any
}

// Sinf0 returns the signing blob with id 0, or ErrSinfMissing.
func (g *Grant) Sinf0() ([]byte, error) {
	for _, s := range g.Sinfs {
		if s.ID == 0 {
			return s.Data, nil
		}
	}
	return nil, ErrSinfMissing
}

// Acquisition is the persisted record of a finished job. Outcome data only:
// no credentials, tokens or signing material are ever stored.
type Acquisition struct {
	ID       string    `json:"id"`
	AppID    string    `json:"app_id"`
	BundleID string    `json:"bundle_id"`
	AppName  string    `json:"app_name"`
	Version  string    `json:"version"`
	Status   string    `json:"status"`
	Bytes    uint64    `json:"bytes"`
	Error    string    `json:"error,omitempty"`
	Created  time.Time `json:"created"`
}
