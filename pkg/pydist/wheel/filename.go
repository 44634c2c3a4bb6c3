// Package wheel builds and verifies binary distributions: zip archives with
// a dist-info directory and a filename of the form
//
//	{distribution}-{version}(-{build tag})?-{python tag}-{abi tag}-{platform tag}.whl
//
// https://packaging.python.org/specifications/binary-distribution-format/
package wheel

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pesap/reVX/pkg/pydist/version"
)

// Tag is a compressed tag triple like "py3-none-any".
type Tag struct {
	Python   string
	ABI      string
	Platform string
}

// TagPurePy3 is the tag for a pure-Python 3 wheel, the only kind this
// toolchain builds.
var TagPurePy3 = Tag{Python: "py3", ABI: "none", Platform: "any"}

func (t Tag) String() string {
	return t.Python + "-" + t.ABI + "-" + t.Platform
}

// Filename is a parsed wheel filename.
type Filename struct {
	Distribution string
	Version      version.Version
	Build        string
	Tag          Tag
}

var escapeRe = regexp.MustCompile(`[^\w\d.]+`)

// escape replaces runs of non-word characters with a single underscore, as
// the wheel filename spec prescribes for the distribution name.
func escape(s string) string {
	return escapeRe.ReplaceAllString(s, "_")
}

func (fn Filename) String() string {
	parts := []string{
		escape(fn.Distribution),
		escape(fn.Version.String()),
	}
	if fn.Build != "" {
		parts = append(parts, fn.Build)
	}
	parts = append(parts, fn.Tag.Python, fn.Tag.ABI, fn.Tag.Platform)
	return strings.Join(parts, "-") + ".whl"
}

// ParseFilename splits a wheel filename in to its fields.
func ParseFilename(str string) (*Filename, error) {
	base, ok := strings.CutSuffix(str, ".whl")
	if !ok {
		return nil, fmt.Errorf("wheel.ParseFilename: not a .whl filename: %q", str)
	}
	parts := strings.Split(base, "-")
	var ret Filename
	switch len(parts) {
	case 5:
		// no build tag
	case 6:
		ret.Build = parts[2]
	default:
		return nil, fmt.Errorf("wheel.ParseFilename: expected 5 or 6 dash-separated fields: %q", str)
	}
	ret.Distribution = parts[0]
	ver, err := version.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("wheel.ParseFilename: %w", err)
	}
	ret.Version = *ver
	ret.Tag = Tag{
		Python:   parts[len(parts)-3],
		ABI:      parts[len(parts)-2],
		Platform: parts[len(parts)-1],
	}
	return &ret, nil
}
