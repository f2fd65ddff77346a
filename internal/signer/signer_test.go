package signer

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"

	"github.com/ipagrab/ipagrab/internal/domain"
	"github.com/ipagrab/ipagrab/internal/infra/logger"
)

func testLogger() *logger.Logger {
	return logger.NewWriter(io.Discard, logger.LevelError)
}

func testGrant() *domain.Grant {
	return &domain.Grant{
		AppName:  "Demo",
		BundleID: "com.example.demo",
		Version:  "2.1",
		Sinfs:    []domain.Sinf{{ID: 0, Data: []byte("sinf-bytes")}},
		Metadata: map[string]any{
			"bundleDisplayName":       "Demo",
			"softwareVersionBundleId": "com.example.demo",
			"itemId":                  12345,
		},
	}
}

// writeTestArchive builds a minimal purchased archive on disk and returns
// its path plus the original entry contents.
func writeTestArchive(t *testing.T, sinfPaths []string) (string, map[string][]byte) {
	t.Helper()

	entries := map[string][]byte{
		"Payload/Demo.app/Demo":        bytes.Repeat([]byte{0xAA}, 2048),
		"Payload/Demo.app/Info.plist":  []byte("binary-info"),
		"Payload/Demo.app/Assets.car":  bytes.Repeat([]byte{0x42}, 512),
		"META-INF/com.apple.ZipMetadata.plist": []byte("zipmeta"),
	}

	if sinfPaths != nil {
		manifest, err := plist.Marshal(map[string]any{"SinfPaths": sinfPaths}, plist.XMLFormat)
		require.NoError(t, err)
		entries["Payload/Demo.app/SC_Info/Manifest.plist"] = manifest
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "app.ipa")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path, entries
}

func readEntries(t *testing.T, path string) map[string][]byte {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	out := make(map[string][]byte)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = data
	}
	return out
}

func TestSignPatchesExactlyTwoEntries(t *testing.T) {
	in, original := writeTestArchive(t, []string{"SC_Info/Demo.sinf"})
	out := filepath.Join(t.TempDir(), "signed.ipa")

	s := New(testLogger())
	require.NoError(t, s.Sign(in, out, testGrant(), "user@example.com"))

	got := readEntries(t, out)

	// The sinf lands at the path the manifest declared.
	assert.Equal(t, []byte("sinf-bytes"), got["Payload/Demo.app/SC_Info/Demo.sinf"])

	// Metadata entry carries the grant metadata plus the purchaser identity.
	var meta map[string]any
	_, err := plist.Unmarshal(got["iTunesMetadata.plist"], &meta)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", meta["apple-id"])
	assert.Equal(t, "user@example.com", meta["userName"])
	assert.Equal(t, "user@example.com", meta["user-name"])
	assert.Equal(t, "Demo", meta["bundleDisplayName"])

	// Every original entry survives byte-for-byte.
	for name, data := range original {
		assert.Equal(t, data, got[name], "entry %s changed", name)
	}
	assert.Len(t, got, len(original)+2)
}

func TestSignOverwritesExistingEntries(t *testing.T) {
	in, _ := writeTestArchive(t, []string{"SC_Info/Demo.sinf"})

	// Pre-seed the archive with stale versions of both patched entries.
	f, err := os.OpenFile(in, os.O_RDWR, 0644)
	require.NoError(t, err)
	info, err := f.Stat()
	require.NoError(t, err)
	r, err := zip.NewReader(f, info.Size())
	require.NoError(t, err)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, zf := range r.File {
		require.NoError(t, w.Copy(zf))
	}
	for _, name := range []string{"iTunesMetadata.plist", "Payload/Demo.app/SC_Info/Demo.sinf"} {
		e, err := w.Create(name)
		require.NoError(t, err)
		_, err = e.Write([]byte("stale"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	require.NoError(t, os.WriteFile(in, buf.Bytes(), 0644))

	out := filepath.Join(t.TempDir(), "signed.ipa")
	s := New(testLogger())
	require.NoError(t, s.Sign(in, out, testGrant(), "user@example.com"))

	got := readEntries(t, out)
	assert.Equal(t, []byte("sinf-bytes"), got["Payload/Demo.app/SC_Info/Demo.sinf"])
	assert.NotEqual(t, []byte("stale"), got["iTunesMetadata.plist"])

	// No duplicate entries for the patched names.
	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()
	counts := map[string]int{}
	for _, zf := range zr.File {
		counts[zf.Name]++
	}
	assert.Equal(t, 1, counts["iTunesMetadata.plist"])
	assert.Equal(t, 1, counts["Payload/Demo.app/SC_Info/Demo.sinf"])
}

func TestSignMissingManifest(t *testing.T) {
	in, _ := writeTestArchive(t, nil)
	out := filepath.Join(t.TempDir(), "signed.ipa")

	s := New(testLogger())
	err := s.Sign(in, out, testGrant(), "user@example.com")
	require.ErrorIs(t, err, domain.ErrManifestNotFound)
}

func TestSignEmptySinfPaths(t *testing.T) {
	in, _ := writeTestArchive(t, []string{})
	out := filepath.Join(t.TempDir(), "signed.ipa")

	s := New(testLogger())
	err := s.Sign(in, out, testGrant(), "user@example.com")
	require.ErrorIs(t, err, domain.ErrManifestNotFound)
}

func TestSignMissingSinfBlob(t *testing.T) {
	in, _ := writeTestArchive(t, []string{"SC_Info/Demo.sinf"})
	out := filepath.Join(t.TempDir(), "signed.ipa")

	grant := testGrant()
	grant.Sinfs = []domain.Sinf{{ID: 1, Data: []byte("wrong-id")}}

	s := New(testLogger())
	err := s.Sign(in, out, grant, "user@example.com")
	require.ErrorIs(t, err, domain.ErrSinfMissing)
}
