// Package release implements the publishing pipeline: check out the project,
// validate its metadata, build the source and wheel distributions, and upload
// them to the package index.
package release

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"sigs.k8s.io/yaml"
)

// Config describes one pipeline run.  It is loaded from a YAML file and then
// overridden by the environment, so CI can inject endpoints and credentials
// without touching the committed config.
type Config struct {
	// Repo is the git URL to check out.  Empty means Dir already holds the
	// working tree and the checkout step is a no-op.
	Repo string `json:"repo"`
	// Ref is the git ref to check out; empty means the remote default.
	Ref string `json:"ref"`
	// Dir is the working tree; the project's setup.cfg must live at its
	// root.
	Dir string `json:"dir"`
	// DistDir is where built artifacts land; defaults to {Dir}/dist.
	DistDir string `json:"distDir"`

	// PythonRequires is the interpreter version the project must declare
	// support for.
	PythonRequires string `json:"pythonRequires"`

	Index IndexConfig `json:"index"`
}

type IndexConfig struct {
	// BaseURL is the simple-API root; defaults to PyPI.
	BaseURL string `json:"baseURL" env:"REVX_INDEX_URL"`
	// UploadURL is the legacy upload endpoint; defaults to PyPI.
	UploadURL string `json:"uploadURL" env:"REVX_UPLOAD_URL"`
	// MintURL is the trusted-publishing token exchange endpoint;
	// defaults to PyPI.
	MintURL string `json:"mintURL" env:"REVX_MINT_URL"`
	// Token is a long-lived API token.  Leave empty to mint a short-lived
	// one via trusted publishing.
	Token string `json:"-" env:"REVX_API_TOKEN"`
}

const defaultPythonRequires = "3.8"

// LoadConfig reads filename (YAML), applies environment overrides, and fills
// defaults.  An empty filename yields a pure defaults-plus-environment
// config.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config
	if filename != "" {
		content, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("release.LoadConfig: %w", err)
		}
		if err := yaml.UnmarshalStrict(content, &cfg); err != nil {
			return nil, fmt.Errorf("release.LoadConfig: %q: %w", filename, err)
		}
	}
	if err := env.Parse(&cfg.Index); err != nil {
		return nil, fmt.Errorf("release.LoadConfig: %w", err)
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.DistDir == "" {
		cfg.DistDir = cfg.Dir + "/dist"
	}
	if cfg.PythonRequires == "" {
		cfg.PythonRequires = defaultPythonRequires
	}
	return &cfg, nil
}
