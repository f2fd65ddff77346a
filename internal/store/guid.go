package store

import (
	"strings"

	"github.com/google/uuid"
)

// NewGUID returns a fresh random device identifier in the 12-hex-digit
// uppercase form the store expects. Callers wanting a stable identity
// across restarts set store.guid in the config instead.
func NewGUID() string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return hex[:12]
}
