package domain

import "errors"

// ErrTwoFactorRequired indicates the account needs a one-time code appended
// to the password. This is resumable: the caller should retry with a code.
var ErrTwoFactorRequired = errors.New("two-factor authentication required")

// ErrAuthFailed indicates the store rejected the credentials outright.
var ErrAuthFailed = errors.New("authentication failed")

// ErrLicenseRequired indicates the account does not own (or cannot download)
// the requested app/version: the purchase response carried no song list entry.
var ErrLicenseRequired = errors.New("account has no license for this app")

// ErrManifestNotFound indicates the archive carries no SC_Info/Manifest.plist
// inside an app bundle, so there is nowhere to place the signature.
var ErrManifestNotFound = errors.New("no signing manifest found in archive")

// ErrSinfMissing indicates the purchase grant carried no signing blob with id 0.
var ErrSinfMissing = errors.New("grant carries no sinf with id 0")

// ErrJobNotFound indicates an unknown or already-purged job id.
var ErrJobNotFound = errors.New("job not found")

// ErrArtifactUnavailable indicates the job exists but its artifact is not
// (or no longer) servable.
var ErrArtifactUnavailable = errors.New("artifact not available")
