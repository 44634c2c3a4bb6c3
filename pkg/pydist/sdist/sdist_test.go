package sdist_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesap/reVX/pkg/pydist/metadata"
	"github.com/pesap/reVX/pkg/pydist/sdist"
	"github.com/pesap/reVX/pkg/pydist/version"
)

func testMetadata() *metadata.Metadata {
	return &metadata.Metadata{
		Name:    "reVX",
		Version: version.MustParse("0.3.57"),
		Summary: "reV eXchange tool",
	}
}

func testTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "revx"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "revx", "__pycache__"), 0o755))
	files := map[string]string{
		"setup.cfg":                        "[metadata]\nname = reVX\nversion = 0.3.57\n",
		"revx/__init__.py":                 "__version__ = \"0.3.57\"\n",
		"revx/__pycache__/__init__.pyc":    "binary",
		".git/HEAD":                        "ref: refs/heads/main\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func listTar(t *testing.T, archive []byte) map[string]string {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	entries := make(map[string]string)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[hdr.Name] = string(body)
	}
	return entries
}

func TestWrite(t *testing.T) {
	t.Parallel()
	dir := testTree(t)

	var buf bytes.Buffer
	filename, err := sdist.Write(&buf, testMetadata(), dir)
	require.NoError(t, err)
	assert.Equal(t, "reVX-0.3.57.tar.gz", filename)

	entries := listTar(t, buf.Bytes())
	assert.Contains(t, entries, "reVX-0.3.57/PKG-INFO")
	assert.Contains(t, entries, "reVX-0.3.57/setup.cfg")
	assert.Contains(t, entries, "reVX-0.3.57/revx/__init__.py")

	// pruned trees stay out of the archive
	for name := range entries {
		assert.NotContains(t, name, ".git")
		assert.NotContains(t, name, "__pycache__")
	}

	assert.Contains(t, entries["reVX-0.3.57/PKG-INFO"], "Name: reVX\n")
	assert.Contains(t, entries["reVX-0.3.57/PKG-INFO"], "Version: 0.3.57\n")
}

func TestWriteDeterministic(t *testing.T) {
	t.Parallel()
	dir := testTree(t)

	var bufA, bufB bytes.Buffer
	_, err := sdist.Write(&bufA, testMetadata(), dir)
	require.NoError(t, err)
	_, err = sdist.Write(&bufB, testMetadata(), dir)
	require.NoError(t, err)
	assert.Equal(t, bufA.Bytes(), bufB.Bytes())
}

func TestWriteMissingDir(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	_, err := sdist.Write(&buf, testMetadata(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
