// Package layer packages built distribution artifacts as an OCI image, so a
// release's dist/ directory can travel through a container registry.
package layer

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	ociv1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	ociv1tarball "github.com/google/go-containerregistry/pkg/v1/tarball"

	"github.com/pesap/reVX/pkg/reproducible"
)

// FromDir tars up dirname as a layer, rooted at prefix inside the layer.
// Timestamps are clamped for reproducibility.
func FromDir(dirname, prefix string) (ociv1.Layer, error) {
	clamp := reproducible.Now()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	if prefix != "" {
		var dirs []string
		for dir := path.Clean(prefix); dir != "." && dir != "/"; dir = path.Dir(dir) {
			dirs = append(dirs, dir)
		}
		for i := len(dirs) - 1; i >= 0; i-- {
			if err := tw.WriteHeader(&tar.Header{
				Name:     dirs[i] + "/",
				Typeflag: tar.TypeDir,
				Mode:     0o755,
				ModTime:  clamp,
			}); err != nil {
				return nil, fmt.Errorf("layer.FromDir: %w", err)
			}
		}
	}

	err := filepath.Walk(dirname, func(filename string, info fs.FileInfo, e error) error {
		if e != nil {
			return e
		}
		name, err := filepath.Rel(dirname, filename)
		if err != nil {
			return err
		}
		name = filepath.ToSlash(name)
		if name == "." {
			return nil
		}
		if prefix != "" {
			name = path.Join(prefix, name)
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = name
		if header.Typeflag == tar.TypeSymlink {
			if header.Linkname, err = os.Readlink(filename); err != nil {
				return err
			}
		}
		header.ModTime = reproducible.Clamp(header.ModTime)
		header.AccessTime = reproducible.Clamp(header.AccessTime)
		header.ChangeTime = reproducible.Clamp(header.ChangeTime)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if header.Typeflag == tar.TypeReg {
			reader, err := os.Open(filename)
			if err != nil {
				return err
			}
			if _, err := io.Copy(tw, reader); err != nil {
				_ = reader.Close()
				return err
			}
			if err := reader.Close(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("layer.FromDir: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("layer.FromDir: %w", err)
	}

	content := buf.Bytes()
	return ociv1tarball.LayerFromOpener(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(content)), nil
	})
}

// Image appends the layers to an empty base image.
func Image(layers ...ociv1.Layer) (ociv1.Image, error) {
	img, err := mutate.AppendLayers(empty.Image, layers...)
	if err != nil {
		return nil, fmt.Errorf("layer.Image: %w", err)
	}
	return img, nil
}

// Write writes img as a docker-save style tarball.
func Write(w io.Writer, img ociv1.Image) error {
	if err := ociv1tarball.Write(nil, img, w); err != nil {
		return fmt.Errorf("layer.Write: %w", err)
	}
	return nil
}
