package setupcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pesap/reVX/pkg/pydist/metadata"
	"github.com/pesap/reVX/pkg/pydist/version"
)

// Load reads DIR/setup.cfg and returns the project's core metadata.
//
// The "[metadata]" section carries the descriptive fields, and
// "[options] python_requires" carries the interpreter requirement.  Values of
// the form "file: RELPATH" are resolved against dir, matching the setuptools
// directive of the same name.
func Load(dir string) (*metadata.Metadata, error) {
	cfgPath := filepath.Join(dir, "setup.cfg")
	fp, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("setupcfg.Load: %w", err)
	}
	defer fp.Close()

	cfg, err := parse(fp)
	if err != nil {
		return nil, fmt.Errorf("setupcfg.Load: %s: %w", cfgPath, err)
	}

	resolve := func(val string) (string, error) {
		if !strings.HasPrefix(val, "file:") {
			return val, nil
		}
		relPath := strings.TrimSpace(strings.TrimPrefix(val, "file:"))
		content, err := os.ReadFile(filepath.Join(dir, relPath))
		if err != nil {
			return "", err
		}
		return string(content), nil
	}

	name := cfg.Get("metadata", "name")
	if name == "" {
		return nil, fmt.Errorf("setupcfg.Load: %s: [metadata] name is required", cfgPath)
	}
	verStr, err := resolve(cfg.Get("metadata", "version"))
	if err != nil {
		return nil, fmt.Errorf("setupcfg.Load: resolve version: %w", err)
	}
	if strings.HasPrefix(cfg.Get("metadata", "version"), "attr:") {
		return nil, fmt.Errorf("setupcfg.Load: %s: 'attr:' version directives are not supported; "+
			"use a literal version or 'file:'", cfgPath)
	}
	ver, err := version.Parse(strings.TrimSpace(verStr))
	if err != nil {
		return nil, fmt.Errorf("setupcfg.Load: %s: %w", cfgPath, err)
	}

	longDescription, err := resolve(cfg.Get("metadata", "long_description"))
	if err != nil {
		return nil, fmt.Errorf("setupcfg.Load: resolve long_description: %w", err)
	}

	return &metadata.Metadata{
		Name:           name,
		Version:        *ver,
		Summary:        cfg.Get("metadata", "description"),
		HomePage:       cfg.Get("metadata", "url"),
		Author:         cfg.Get("metadata", "author"),
		AuthorEmail:    cfg.Get("metadata", "author_email"),
		License:        cfg.Get("metadata", "license"),
		RequiresPython: cfg.Get("options", "python_requires"),
		Description:    longDescription,
	}, nil
}
