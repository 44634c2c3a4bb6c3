package index

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pesap/reVX/pkg/pydist/metadata"
	"github.com/pesap/reVX/pkg/pydist/sdist"
	"github.com/pesap/reVX/pkg/pydist/wheel"
)

// Upload sends one distribution file to the index's legacy upload endpoint.
//
// The endpoint wants a multipart form carrying the file's core metadata, its
// digests, and the file content, with ":action=file_upload".  Wheels are
// verified against their RECORD before anything goes on the wire; sdists
// have their PKG-INFO read for metadata.
func (c Client) Upload(ctx context.Context, filename string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("index.Upload: %q: %w", filename, err)
		}
	}()
	c.fillDefaults()
	if c.Token == "" {
		return fmt.Errorf("no API token; set one or mint one via trusted publishing")
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	var md *metadata.Metadata
	var filetype, pyversion string
	base := filepath.Base(filename)
	switch {
	case strings.HasSuffix(base, ".whl"):
		fn, err := wheel.ParseFilename(base)
		if err != nil {
			return err
		}
		md, err = wheel.Verify(bytes.NewReader(content), int64(len(content)))
		if err != nil {
			return err
		}
		filetype = "bdist_wheel"
		pyversion = fn.Tag.Python
	case strings.HasSuffix(base, ".tar.gz"):
		md, err = sdist.ReadPkgInfo(bytes.NewReader(content))
		if err != nil {
			return err
		}
		filetype = "sdist"
		pyversion = "source"
	default:
		return fmt.Errorf("not a wheel or sdist")
	}

	sha256Sum := sha256.Sum256(content)
	md5Sum := md5.Sum(content)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		":action":          "file_upload",
		"protocol_version": "1",
		"filetype":         filetype,
		"pyversion":        pyversion,
		"sha256_digest":    hex.EncodeToString(sha256Sum[:]),
		"md5_digest":       hex.EncodeToString(md5Sum[:]),

		"metadata_version": metadata.MetadataVersion,
		"name":             md.Name,
		"version":          md.Version.String(),
		"summary":          md.Summary,
		"home_page":        md.HomePage,
		"author":           md.Author,
		"author_email":     md.AuthorEmail,
		"license":          md.License,
		"requires_python":  md.RequiresPython,
		"description":      md.Description,
	}
	for key, val := range fields {
		if val == "" && key != ":action" {
			continue
		}
		if err := form.WriteField(key, val); err != nil {
			return err
		}
	}
	fw, err := form.CreateFormFile("content", base)
	if err != nil {
		return err
	}
	if _, err := fw.Write(content); err != nil {
		return err
	}
	if err := form.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadURL, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("User-Agent", c.UserAgent)
	req.SetBasicAuth("__token__", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return err
	}
	if err := resp.Body.Close(); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{
			Status:     resp.Status,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	return nil
}
