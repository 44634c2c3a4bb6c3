package index_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesap/reVX/pkg/pydist/index"
	"github.com/pesap/reVX/pkg/pydist/metadata"
	"github.com/pesap/reVX/pkg/pydist/version"
	"github.com/pesap/reVX/pkg/pydist/wheel"
)

func buildTestWheel(t *testing.T, dir string) string {
	t.Helper()
	md := &metadata.Metadata{
		Name:    "revx",
		Version: version.MustParse("0.3.56"),
		Summary: "Renewable energy extent tooling",
	}
	var buf bytes.Buffer
	name, err := wheel.Write(&buf, md, []wheel.File{
		{Name: "revx/__init__.py", Body: []byte("__version__ = \"0.3.56\"\n")},
	})
	require.NoError(t, err)
	filename := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(filename, buf.Bytes(), 0o644))
	return filename
}

func TestUpload(t *testing.T) {
	t.Parallel()
	var gotForm map[string]string
	var gotContentName string
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotForm = make(map[string]string)
		for key, vals := range r.MultipartForm.Value {
			gotForm[key] = vals[0]
		}
		if files := r.MultipartForm.File["content"]; len(files) == 1 {
			gotContentName = files[0].Filename
		}
	}))
	defer srv.Close()

	filename := buildTestWheel(t, t.TempDir())

	client := index.Client{
		UploadURL: srv.URL,
		Token:     "pypi-abc123",
	}
	require.NoError(t, client.Upload(context.Background(), filename))

	assert.Equal(t, "__token__", gotUser)
	assert.Equal(t, "pypi-abc123", gotPass)
	assert.Equal(t, "file_upload", gotForm[":action"])
	assert.Equal(t, "1", gotForm["protocol_version"])
	assert.Equal(t, "bdist_wheel", gotForm["filetype"])
	assert.Equal(t, "py3", gotForm["pyversion"])
	assert.Equal(t, "revx", gotForm["name"])
	assert.Equal(t, "0.3.56", gotForm["version"])
	assert.NotEmpty(t, gotForm["sha256_digest"])
	assert.Equal(t, filepath.Base(filename), gotContentName)
}

func TestUploadRequiresToken(t *testing.T) {
	t.Parallel()
	client := index.Client{UploadURL: "http://127.0.0.1:1/"}
	err := client.Upload(context.Background(), "reVX-0.3.56-py3-none-any.whl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestUploadServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "400 File already exists.", http.StatusBadRequest)
	}))
	defer srv.Close()

	filename := buildTestWheel(t, t.TempDir())
	client := index.Client{UploadURL: srv.URL, Token: "pypi-abc123"}
	err := client.Upload(context.Background(), filename)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File already exists")
}

func TestMintToken(t *testing.T) {
	t.Parallel()
	idSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ci-request-token", r.Header.Get("Authorization"))
		assert.Equal(t, "pypi", r.URL.Query().Get("audience"))
		_ = json.NewEncoder(w).Encode(map[string]string{"value": "signed.jwt.here"})
	}))
	defer idSrv.Close()

	mintSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_/oidc/mint-token", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "signed.jwt.here", body["token"])
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "pypi-minted"})
	}))
	defer mintSrv.Close()

	// the upload host plays no part in minting
	client := index.Client{
		UploadURL: "http://127.0.0.1:1/legacy/",
		MintURL:   mintSrv.URL + "/_/oidc/mint-token",
	}
	err := client.MintToken(context.Background(), &index.OIDCEnv{
		RequestURL:   idSrv.URL,
		RequestToken: "ci-request-token",
		Audience:     "pypi",
	})
	require.NoError(t, err)
	assert.Equal(t, "pypi-minted", client.Token)
}

func TestMintTokenDenied(t *testing.T) {
	t.Parallel()
	idSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer idSrv.Close()

	client := index.Client{}
	err := client.MintToken(context.Background(), &index.OIDCEnv{
		RequestURL:   idSrv.URL,
		RequestToken: "ci-request-token",
		Audience:     "pypi",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity token")
}
