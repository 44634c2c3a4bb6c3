package wheel

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pesap/reVX/pkg/pydist/metadata"
	"github.com/pesap/reVX/pkg/reproducible"
)

// A File is one payload file to archive, with an io/fs-style (slash
// separated, no leading "/") name.
type File struct {
	Name    string
	Body    []byte
	Mode    fs.FileMode
	ModTime time.Time
}

// Generator is the value written to the WHEEL file's Generator field.
const Generator = "revx"

func distInfoDir(md *metadata.Metadata) string {
	return escape(md.Name) + "-" + escape(md.Version.String()) + ".dist-info"
}

func urlsafeDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return "sha256=" + base64.RawURLEncoding.EncodeToString(sum[:])
}

// Write produces a pure-Python wheel for md containing files, and returns
// its conventional filename.  Timestamps are clamped for reproducibility.
func Write(w io.Writer, md *metadata.Metadata, files []File) (string, error) {
	fn := Filename{
		Distribution: md.Name,
		Version:      md.Version,
		Tag:          TagPurePy3,
	}

	infoDir := distInfoDir(md)

	var metadataBuf bytes.Buffer
	if err := md.Write(&metadataBuf); err != nil {
		return "", fmt.Errorf("wheel.Write: %w", err)
	}
	wheelBuf := strings.Join([]string{
		"Wheel-Version: 1.0",
		"Generator: " + Generator,
		"Root-Is-Purelib: true",
		"Tag: " + TagPurePy3.String(),
		"",
	}, "\n")

	all := make([]File, 0, len(files)+3)
	all = append(all, files...)
	all = append(all,
		File{Name: path.Join(infoDir, "METADATA"), Body: metadataBuf.Bytes()},
		File{Name: path.Join(infoDir, "WHEEL"), Body: []byte(wheelBuf)},
	)
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	// RECORD goes last; it lists every archived file, itself included but
	// without digest or size.
	var record bytes.Buffer
	recordName := path.Join(infoDir, "RECORD")
	csvWriter := csv.NewWriter(&record)
	for _, file := range all {
		if err := csvWriter.Write([]string{
			file.Name,
			urlsafeDigest(file.Body),
			strconv.Itoa(len(file.Body)),
		}); err != nil {
			return "", fmt.Errorf("wheel.Write: RECORD: %w", err)
		}
	}
	if err := csvWriter.Write([]string{recordName, "", ""}); err != nil {
		return "", fmt.Errorf("wheel.Write: RECORD: %w", err)
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return "", fmt.Errorf("wheel.Write: RECORD: %w", err)
	}
	all = append(all, File{Name: recordName, Body: record.Bytes()})

	zipWriter := zip.NewWriter(w)
	for _, file := range all {
		mode := file.Mode
		if mode == 0 {
			mode = 0o644
		}
		modTime := file.ModTime
		if modTime.IsZero() {
			modTime = reproducible.Now()
		}
		hdr := &zip.FileHeader{
			Name:     file.Name,
			Method:   zip.Deflate,
			Modified: reproducible.Clamp(modTime),
		}
		hdr.SetMode(mode)
		fw, err := zipWriter.CreateHeader(hdr)
		if err != nil {
			return "", fmt.Errorf("wheel.Write: %q: %w", file.Name, err)
		}
		if _, err := fw.Write(file.Body); err != nil {
			return "", fmt.Errorf("wheel.Write: %q: %w", file.Name, err)
		}
	}
	if err := zipWriter.Close(); err != nil {
		return "", fmt.Errorf("wheel.Write: %w", err)
	}
	return fn.String(), nil
}

// findDistInfoDir resolves the single "*.dist-info" directory of a wheel.
// Zero of them, or more than one, makes the wheel invalid.
func findDistInfoDir(zr *zip.Reader) (string, error) {
	infoDirs := make(map[string]struct{})
	for _, file := range zr.File {
		dirname := strings.Split(path.Clean(file.Name), "/")[0]
		if strings.HasSuffix(dirname, ".dist-info") {
			infoDirs[dirname] = struct{}{}
		}
	}
	switch len(infoDirs) {
	case 0:
		return "", fmt.Errorf(".dist-info directory not found")
	case 1:
		for infoDir := range infoDirs {
			return infoDir, nil
		}
		panic("not reached")
	default:
		list := make([]string, 0, len(infoDirs))
		for dir := range infoDirs {
			list = append(list, dir)
		}
		sort.Strings(list)
		return "", fmt.Errorf("multiple .dist-info directories found: %v", list)
	}
}

func readZipFile(zr *zip.Reader, filename string) ([]byte, error) {
	filename = path.Clean(filename)
	for _, file := range zr.File {
		if path.Clean(file.Name) == filename {
			rc, err := file.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%w in wheel zip archive: %q", fs.ErrNotExist, filename)
}

// Verify checks a wheel's RECORD against the archive contents and returns
// the wheel's core metadata.
func Verify(r io.ReaderAt, size int64) (*metadata.Metadata, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("wheel.Verify: %w", err)
	}
	infoDir, err := findDistInfoDir(zr)
	if err != nil {
		return nil, fmt.Errorf("wheel.Verify: %w", err)
	}

	recordName := path.Join(infoDir, "RECORD")
	recordBody, err := readZipFile(zr, recordName)
	if err != nil {
		return nil, fmt.Errorf("wheel.Verify: %w", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(recordBody)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("wheel.Verify: RECORD: %w", err)
	}

	recorded := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("wheel.Verify: RECORD: expected 3 columns, got %d", len(row))
		}
		name, digest, sizeStr := row[0], row[1], row[2]
		recorded[path.Clean(name)] = struct{}{}
		if path.Clean(name) == recordName {
			continue
		}
		if digest == "" {
			return nil, fmt.Errorf("wheel.Verify: RECORD: %q: missing digest", name)
		}
		body, err := readZipFile(zr, name)
		if err != nil {
			return nil, fmt.Errorf("wheel.Verify: %w", err)
		}
		if actual := urlsafeDigest(body); actual != digest {
			return nil, fmt.Errorf("wheel.Verify: %q: digest mismatch: expected=%s actual=%s",
				name, digest, actual)
		}
		if wantSize, err := strconv.Atoi(sizeStr); err != nil || wantSize != len(body) {
			return nil, fmt.Errorf("wheel.Verify: %q: size mismatch: expected=%s actual=%d",
				name, sizeStr, len(body))
		}
	}
	for _, file := range zr.File {
		name := path.Clean(file.Name)
		if strings.HasSuffix(name, "/") || file.FileInfo().IsDir() {
			continue
		}
		if _, ok := recorded[name]; !ok {
			return nil, fmt.Errorf("wheel.Verify: %q: present in archive but not in RECORD", name)
		}
	}

	metadataBody, err := readZipFile(zr, path.Join(infoDir, "METADATA"))
	if err != nil {
		return nil, fmt.Errorf("wheel.Verify: %w", err)
	}
	md, err := metadata.Parse(bytes.NewReader(metadataBody))
	if err != nil {
		return nil, fmt.Errorf("wheel.Verify: %w", err)
	}
	return md, nil
}
