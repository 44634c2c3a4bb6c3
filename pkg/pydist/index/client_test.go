package index_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesap/reVX/pkg/pydist/index"
	"github.com/pesap/reVX/pkg/pydist/version"
)

func newSimpleServer(t *testing.T, fileContent []byte) *httptest.Server {
	t.Helper()
	digest := sha256.Sum256(fileContent)
	mux := http.NewServeMux()
	mux.HandleFunc("/simple/revx/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<!DOCTYPE html><html><body>
<a href="/files/reVX-0.3.56-py3-none-any.whl#sha256=%s">reVX-0.3.56-py3-none-any.whl</a>
<a href="/files/reVX-0.3.56.tar.gz">reVX-0.3.56.tar.gz</a>
<a href="/files/reVX-0.3.57a1-py3-none-any.whl" data-requires-python="&gt;=3.11">reVX-0.3.57a1-py3-none-any.whl</a>
</body></html>`, hex.EncodeToString(digest[:]))
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(fileContent)
	})
	return httptest.NewServer(mux)
}

func TestListPackageFiles(t *testing.T) {
	t.Parallel()
	srv := newSimpleServer(t, []byte("wheel bytes"))
	defer srv.Close()

	client := index.Client{BaseURL: srv.URL + "/simple/"}
	links, err := client.ListPackageFiles(context.Background(), "reVX")
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "reVX-0.3.56-py3-none-any.whl", links[0].Text)

	content, err := links[0].Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("wheel bytes"), content)
}

func TestGetChecksumMismatch(t *testing.T) {
	t.Parallel()
	digest := sha256.Sum256([]byte("advertised bytes"))
	mux := http.NewServeMux()
	mux.HandleFunc("/simple/revx/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<a href="/files/reVX-0.3.56-py3-none-any.whl#sha256=%s">reVX-0.3.56-py3-none-any.whl</a>
</body></html>`, hex.EncodeToString(digest[:]))
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tampered bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := index.Client{BaseURL: srv.URL + "/simple/"}
	links, err := client.ListPackageFiles(context.Background(), "reVX")
	require.NoError(t, err)
	require.Len(t, links, 1)

	_, err = links[0].Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestRequiresPythonFilter(t *testing.T) {
	t.Parallel()
	srv := newSimpleServer(t, []byte("wheel bytes"))
	defer srv.Close()

	py := version.MustParse("3.8")
	client := index.Client{BaseURL: srv.URL + "/simple/", Python: &py}
	links, err := client.ListPackageFiles(context.Background(), "reVX")
	require.NoError(t, err)
	// the 3.11-only pre-release is filtered out
	require.Len(t, links, 2)
	for _, link := range links {
		assert.NotContains(t, link.Text, "0.3.57a1")
	}
}

func TestListPackageFilesBadName(t *testing.T) {
	t.Parallel()
	client := index.Client{BaseURL: "http://127.0.0.1:1/simple/"}
	_, err := client.ListPackageFiles(context.Background(), "bad name!")
	assert.Error(t, err)
}

func TestHasVersion(t *testing.T) {
	t.Parallel()
	srv := newSimpleServer(t, []byte("wheel bytes"))
	defer srv.Close()

	client := index.Client{BaseURL: srv.URL + "/simple/"}

	has, err := client.HasVersion(context.Background(), "reVX", version.MustParse("0.3.56"))
	require.NoError(t, err)
	assert.True(t, has)

	has, err = client.HasVersion(context.Background(), "reVX", version.MustParse("0.3.57"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestHasVersionNewPackage(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client := index.Client{BaseURL: srv.URL + "/simple/"}
	has, err := client.HasVersion(context.Background(), "brand-new", version.MustParse("1.0"))
	require.NoError(t, err)
	assert.False(t, has)
}
