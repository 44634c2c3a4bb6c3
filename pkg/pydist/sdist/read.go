package sdist

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/pesap/reVX/pkg/pydist/metadata"
)

// ReadPkgInfo extracts and parses the PKG-INFO of an sdist archive.
func ReadPkgInfo(r io.Reader) (*metadata.Metadata, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("sdist.ReadPkgInfo: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sdist.ReadPkgInfo: %w", err)
		}
		parts := strings.Split(strings.Trim(hdr.Name, "/"), "/")
		if len(parts) == 2 && parts[1] == "PKG-INFO" {
			body, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("sdist.ReadPkgInfo: %w", err)
			}
			md, err := metadata.Parse(bytes.NewReader(body))
			if err != nil {
				return nil, fmt.Errorf("sdist.ReadPkgInfo: %w", err)
			}
			return md, nil
		}
	}
	return nil, fmt.Errorf("sdist.ReadPkgInfo: no PKG-INFO in archive")
}
