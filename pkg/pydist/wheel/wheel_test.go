package wheel_test

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesap/reVX/pkg/pydist/metadata"
	"github.com/pesap/reVX/pkg/pydist/version"
	"github.com/pesap/reVX/pkg/pydist/wheel"
)

func testMetadata() *metadata.Metadata {
	return &metadata.Metadata{
		Name:           "reVX",
		Version:        version.MustParse("0.3.57"),
		Summary:        "reV eXchange tool",
		RequiresPython: ">=3.8",
	}
}

func testFiles() []wheel.File {
	return []wheel.File{
		{Name: "revx/__init__.py", Body: []byte("__version__ = \"0.3.57\"\n")},
		{Name: "revx/cli.py", Body: []byte("def main():\n    pass\n")},
	}
}

func TestWriteVerify(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	filename, err := wheel.Write(&buf, testMetadata(), testFiles())
	require.NoError(t, err)
	assert.Equal(t, "reVX-0.3.57-py3-none-any.whl", filename)

	md, err := wheel.Verify(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, "reVX", md.Name)
	assert.Equal(t, "0.3.57", md.Version.String())
}

func TestWriteLayout(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	_, err := wheel.Write(&buf, testMetadata(), testFiles())
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, file := range zr.File {
		names = append(names, file.Name)
	}
	infoDir := "reVX-0.3.57.dist-info"
	assert.Contains(t, names, path.Join(infoDir, "METADATA"))
	assert.Contains(t, names, path.Join(infoDir, "WHEEL"))
	assert.Contains(t, names, path.Join(infoDir, "RECORD"))
	assert.Contains(t, names, "revx/__init__.py")
	// RECORD is the final entry
	assert.Equal(t, path.Join(infoDir, "RECORD"), names[len(names)-1])

	for _, file := range zr.File {
		if file.Name != path.Join(infoDir, "WHEEL") {
			continue
		}
		rc, err := file.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Contains(t, string(body), "Wheel-Version: 1.0\n")
		assert.Contains(t, string(body), "Tag: py3-none-any")
	}
}

func TestWriteReproducible(t *testing.T) {
	t.Setenv("SOURCE_DATE_EPOCH", "1577836800")
	var bufA, bufB bytes.Buffer
	_, err := wheel.Write(&bufA, testMetadata(), testFiles())
	require.NoError(t, err)
	_, err = wheel.Write(&bufB, testMetadata(), testFiles())
	require.NoError(t, err)
	assert.Equal(t, bufA.Bytes(), bufB.Bytes())
}

func TestVerifyCorrupt(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	_, err := wheel.Write(&buf, testMetadata(), testFiles())
	require.NoError(t, err)

	// rebuild the zip with one payload byte changed but RECORD untouched
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var corrupt bytes.Buffer
	zw := zip.NewWriter(&corrupt)
	for _, file := range zr.File {
		rc, err := file.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		if file.Name == "revx/cli.py" {
			body = []byte("def main():\n    return 1\n")
		}
		fw, err := zw.Create(file.Name)
		require.NoError(t, err)
		_, err = fw.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	_, err = wheel.Verify(bytes.NewReader(corrupt.Bytes()), int64(corrupt.Len()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest mismatch")
}

func TestVerifyUnrecordedFile(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	_, err := wheel.Write(&buf, testMetadata(), testFiles())
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var evil bytes.Buffer
	zw := zip.NewWriter(&evil)
	for _, file := range zr.File {
		rc, err := file.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		fw, err := zw.Create(file.Name)
		require.NoError(t, err)
		_, err = fw.Write(body)
		require.NoError(t, err)
	}
	fw, err := zw.Create("revx/sneaky.py")
	require.NoError(t, err)
	_, err = fw.Write([]byte("oops\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = wheel.Verify(bytes.NewReader(evil.Bytes()), int64(evil.Len()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in RECORD")
}
