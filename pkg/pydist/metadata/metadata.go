// Package metadata reads and writes Python core metadata, the RFC 822-style
// PKG-INFO/METADATA payload that travels inside sdists and wheels.
//
// https://packaging.python.org/specifications/core-metadata/
package metadata

import (
	"bufio"
	"fmt"
	"io"
	"net/textproto"
	"strings"

	"github.com/pesap/reVX/pkg/pydist/version"
)

// Metadata holds the subset of core metadata fields that a publish needs;
// unknown fields survive a Parse/Write round-trip in Extra.
type Metadata struct {
	Name           string
	Version        version.Version
	Summary        string
	HomePage       string
	Author         string
	AuthorEmail    string
	License        string
	RequiresPython string

	// Description is the long description, written as the message body.
	Description string

	// Extra holds any other header fields, in canonical form.
	Extra textproto.MIMEHeader
}

// MetadataVersion is the core-metadata spec version written by Write.
const MetadataVersion = "2.1"

// NormalizeName applies the index's name normalization: runs of "-", "_",
// and "." fold to a single "-", and the name is lowercased.
func NormalizeName(name string) string {
	var out strings.Builder
	run := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			run = true
			continue
		}
		if run && out.Len() > 0 {
			out.WriteByte('-')
		}
		run = false
		out.WriteRune(r)
	}
	return out.String()
}

func (md *Metadata) fields() []struct{ Key, Val string } {
	return []struct{ Key, Val string }{
		{"Metadata-Version", MetadataVersion},
		{"Name", md.Name},
		{"Version", md.Version.String()},
		{"Summary", md.Summary},
		{"Home-page", md.HomePage},
		{"Author", md.Author},
		{"Author-email", md.AuthorEmail},
		{"License", md.License},
		{"Requires-Python", md.RequiresPython},
	}
}

// Write renders md in the header/body wire form.
func (md *Metadata) Write(w io.Writer) error {
	if md.Name == "" {
		return fmt.Errorf("metadata.Write: Name is required")
	}
	if len(md.Version.Release) == 0 {
		return fmt.Errorf("metadata.Write: Version is required")
	}
	for _, field := range md.fields() {
		if field.Val == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", field.Key, foldValue(field.Val)); err != nil {
			return err
		}
	}
	for key, vals := range md.Extra {
		for _, val := range vals {
			if _, err := fmt.Fprintf(w, "%s: %s\n", key, foldValue(val)); err != nil {
				return err
			}
		}
	}
	if md.Description != "" {
		if _, err := fmt.Fprintf(w, "\n%s", md.Description); err != nil {
			return err
		}
	}
	return nil
}

// foldValue makes a multi-line value safe as a single header: continuation
// lines get the 8-space indent that the metadata spec prescribes.
func foldValue(val string) string {
	return strings.ReplaceAll(val, "\n", "\n        ")
}

// Parse reads the wire form back in to a Metadata.
func Parse(r io.Reader) (*Metadata, error) {
	tp := textproto.NewReader(bufio.NewReader(r))
	hdr, err := tp.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("metadata.Parse: %w", err)
	}
	body, err := io.ReadAll(tp.R)
	if err != nil {
		return nil, fmt.Errorf("metadata.Parse: %w", err)
	}

	md := &Metadata{
		Extra:       hdr,
		Description: string(body),
	}
	take := func(key string) string {
		val := hdr.Get(key)
		hdr.Del(key)
		return val
	}
	take("Metadata-Version")
	md.Name = take("Name")
	if verStr := take("Version"); verStr != "" {
		ver, err := version.Parse(verStr)
		if err != nil {
			return nil, fmt.Errorf("metadata.Parse: %w", err)
		}
		md.Version = *ver
	} else {
		return nil, fmt.Errorf("metadata.Parse: missing Version field")
	}
	md.Summary = take("Summary")
	md.HomePage = take("Home-page")
	md.Author = take("Author")
	md.AuthorEmail = take("Author-email")
	md.License = take("License")
	md.RequiresPython = take("Requires-Python")
	if len(md.Extra) == 0 {
		md.Extra = nil
	}
	return md, nil
}
