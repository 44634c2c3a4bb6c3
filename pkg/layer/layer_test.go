package layer_test

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesap/reVX/pkg/layer"
)

func TestFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reVX-0.3.56.tar.gz"),
		[]byte("sdist"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reVX-0.3.56-py3-none-any.whl"),
		[]byte("wheel"), 0o644))

	l, err := layer.FromDir(dir, "dist")
	require.NoError(t, err)

	rc, err := l.Uncompressed()
	require.NoError(t, err)
	defer rc.Close()

	var names []string
	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	assert.Equal(t, []string{
		"dist/",
		"dist/reVX-0.3.56-py3-none-any.whl",
		"dist/reVX-0.3.56.tar.gz",
	}, names)
}

func TestFromDirReproducible(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "artifact"), []byte("x"), 0o644))

	a, err := layer.FromDir(dir, "dist")
	require.NoError(t, err)
	b, err := layer.FromDir(dir, "dist")
	require.NoError(t, err)

	aDigest, err := a.Digest()
	require.NoError(t, err)
	bDigest, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, aDigest, bDigest)
}

func TestImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "artifact"), []byte("x"), 0o644))

	l, err := layer.FromDir(dir, "dist")
	require.NoError(t, err)
	img, err := layer.Image(l)
	require.NoError(t, err)

	layers, err := img.Layers()
	require.NoError(t, err)
	assert.Len(t, layers, 1)
}
