// Package sdist builds source distributions: gzipped tarballs named
// {name}-{version}.tar.gz whose single top-level directory carries the
// project tree plus a generated PKG-INFO.
//
// https://packaging.python.org/specifications/source-distribution-format/
package sdist

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pesap/reVX/pkg/pydist/metadata"
	"github.com/pesap/reVX/pkg/reproducible"
)

// Filename returns the conventional sdist filename for md.
func Filename(md *metadata.Metadata) string {
	return md.Name + "-" + md.Version.String() + ".tar.gz"
}

// prune lists directory names that never belong in a source distribution.
var prune = map[string]struct{}{
	".git":          {},
	".github":       {},
	"__pycache__":   {},
	"dist":          {},
	"build":         {},
	".eggs":         {},
	".pytest_cache": {},
}

func skipFile(name string) bool {
	return strings.HasSuffix(name, ".pyc") ||
		strings.HasSuffix(name, ".egg-info") ||
		name == ".DS_Store"
}

// Write produces the sdist for the project rooted at srcDir, and returns the
// archive's conventional filename.  Timestamps are clamped for
// reproducibility.
func Write(w io.Writer, md *metadata.Metadata, srcDir string) (_ string, err error) {
	maybeSetErr := func(_err error) {
		if _err != nil && err == nil {
			err = _err
		}
	}

	root := md.Name + "-" + md.Version.String()

	gzWriter, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("sdist.Write: %w", err)
	}
	defer func() { maybeSetErr(gzWriter.Close()) }()
	gzWriter.ModTime = reproducible.Now()

	tarWriter := tar.NewWriter(gzWriter)
	defer func() { maybeSetErr(tarWriter.Close()) }()

	if err := tarWriter.WriteHeader(&tar.Header{
		Name:     root + "/",
		Typeflag: tar.TypeDir,
		Mode:     0o755,
		ModTime:  reproducible.Now(),
	}); err != nil {
		return "", fmt.Errorf("sdist.Write: %w", err)
	}

	// PKG-INFO first, at the root of the tree.
	var pkgInfo bytes.Buffer
	if err := md.Write(&pkgInfo); err != nil {
		return "", fmt.Errorf("sdist.Write: %w", err)
	}
	if err := writeFile(tarWriter, root+"/PKG-INFO", pkgInfo.Bytes(), 0o644, reproducible.Now()); err != nil {
		return "", fmt.Errorf("sdist.Write: %w", err)
	}

	err = filepath.Walk(srcDir, func(filename string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		name, err := filepath.Rel(srcDir, filename)
		if err != nil {
			return err
		}
		name = filepath.ToSlash(name)
		if name == "." {
			return nil
		}
		if info.IsDir() {
			if _, ok := prune[info.Name()]; ok {
				return filepath.SkipDir
			}
			return tarWriter.WriteHeader(&tar.Header{
				Name:     path.Join(root, name) + "/",
				Typeflag: tar.TypeDir,
				Mode:     0o755,
				ModTime:  reproducible.Clamp(info.ModTime()),
			})
		}
		if !info.Mode().IsRegular() || skipFile(info.Name()) || name == "PKG-INFO" {
			return nil
		}
		body, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		mode := int64(0o644)
		if info.Mode()&0o111 != 0 {
			mode = 0o755
		}
		return writeFile(tarWriter, path.Join(root, name), body, mode, reproducible.Clamp(info.ModTime()))
	})
	if err != nil {
		return "", fmt.Errorf("sdist.Write: %w", err)
	}

	return Filename(md), nil
}

func writeFile(tw *tar.Writer, name string, body []byte, mode int64, modTime time.Time) error {
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Typeflag: tar.TypeReg,
		Mode:     mode,
		Size:     int64(len(body)),
		ModTime:  modTime,
	}); err != nil {
		return err
	}
	_, err := tw.Write(body)
	return err
}
