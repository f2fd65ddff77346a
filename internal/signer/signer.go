package signer

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"howett.net/plist"

	"github.com/ipagrab/ipagrab/internal/domain"
	"github.com/ipagrab/ipagrab/internal/infra/logger"
)

const (
	metadataEntry  = "iTunesMetadata.plist"
	manifestSuffix = ".app/SC_Info/Manifest.plist"
	payloadPrefix  = "Payload/"
)

// manifest is the archive-internal plist that declares where, inside the app
// bundle, the per-account signature must be placed.
type manifest struct {
	SinfPaths []string `plist:"SinfPaths"`
}

// Signer relicenses a purchased archive to an account by injecting purchaser
// metadata and the grant's signature blob. No code signature is recomputed.
type Signer struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Signer {
	return &Signer{log: log}
}

// Sign rewrites the archive at archivePath into outPath with two patched
// entries: iTunesMetadata.plist at the root, and the sinf blob at the path
// the archive's own manifest declares. Every other entry is copied raw, so
// it stays byte-identical to the input.
func (s *Signer) Sign(archivePath, outPath string, grant *domain.Grant, accountEmail string) error {
	sinf, err := grant.Sinf0()
	if err != nil {
		return err
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	sinfEntry, err := resolveSinfPath(&r.Reader)
	if err != nil {
		return err
	}

	metaBytes, err := buildMetadata(grant, accountEmail)
	if err != nil {
		return fmt.Errorf("failed to build purchaser metadata: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := zip.NewWriter(out)

	for _, f := range r.File {
		// The two patched entries are rewritten below; everything else is
		// copied without recompression.
		if f.Name == metadataEntry || f.Name == sinfEntry {
			continue
		}
		if err := w.Copy(f); err != nil {
			return fmt.Errorf("failed to copy %s: %w", f.Name, err)
		}
	}

	mw, err := w.Create(metadataEntry)
	if err != nil {
		return err
	}
	if _, err := mw.Write(metaBytes); err != nil {
		return err
	}

	sw, err := w.Create(sinfEntry)
	if err != nil {
		return err
	}
	if _, err := sw.Write(sinf); err != nil {
		return err
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	s.log.Info("Signed archive: wrote %s and %s", metadataEntry, sinfEntry)

	return out.Close()
}

// resolveSinfPath locates the app bundle's signing manifest inside the
// archive and returns the archive path the sinf must be written to.
func resolveSinfPath(r *zip.Reader) (string, error) {
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, payloadPrefix) || !strings.HasSuffix(f.Name, manifestSuffix) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open manifest: %w", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read manifest: %w", err)
		}

		var m manifest
		if _, err := plist.Unmarshal(data, &m); err != nil {
			return "", fmt.Errorf("failed to parse manifest: %w", err)
		}

		if len(m.SinfPaths) == 0 {
			return "", fmt.Errorf("%w: manifest declares no sinf paths", domain.ErrManifestNotFound)
		}

		// f.Name is Payload/<App>.app/SC_Info/Manifest.plist; the sinf path
		// is relative to the .app directory.
		appDir := strings.TrimSuffix(f.Name, "SC_Info/Manifest.plist")
		return path.Join(appDir, m.SinfPaths[0]), nil
	}

	return "", domain.ErrManifestNotFound
}

// buildMetadata merges the grant's metadata with the purchaser identity
// fields and serializes the result as an XML plist.
func buildMetadata(grant *domain.Grant, email string) ([]byte, error) {
	meta := make(map[string]any, len(grant.Metadata)+3)
	for k, v := range grant.Metadata {
		meta[k] = v
	}
	meta["apple-id"] = email
	meta["userName"] = email
	meta["user-name"] = email

	return plist.Marshal(meta, plist.XMLFormat)
}
