package release

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/datawire/dlib/dexec"
	"github.com/datawire/dlib/dlog"

	"github.com/pesap/reVX/pkg/pydist/index"
	"github.com/pesap/reVX/pkg/pydist/metadata"
	"github.com/pesap/reVX/pkg/pydist/sdist"
	"github.com/pesap/reVX/pkg/pydist/setupcfg"
	"github.com/pesap/reVX/pkg/pydist/version"
	"github.com/pesap/reVX/pkg/pydist/wheel"
)

// Event is what triggered the pipeline.
type Event string

const (
	// EventRelease is a published release; the release tag must match the
	// project version.
	EventRelease Event = "release"
	// EventDispatch is a manual run; no tag is involved.
	EventDispatch Event = "dispatch"
)

func ParseEvent(str string) (Event, error) {
	switch Event(str) {
	case EventRelease, EventDispatch:
		return Event(str), nil
	default:
		return "", fmt.Errorf("invalid event %q (must be %q or %q)",
			str, EventRelease, EventDispatch)
	}
}

// Runner carries the state that flows between pipeline steps.
type Runner struct {
	Cfg   *Config
	Event Event
	// Tag is the release tag; required when Event is EventRelease.
	Tag string

	Client *index.Client

	// set by the provision step
	md *metadata.Metadata
	// set by the build step
	artifacts []string
}

// Steps returns the pipeline for this run: checkout, provision, build,
// publish, in that order.
func (r *Runner) Steps() Pipeline {
	return Pipeline{
		{Name: "checkout", Run: r.Checkout},
		{Name: "provision", Run: r.Provision},
		{Name: "build", Run: r.Build},
		{Name: "publish", Run: r.Publish},
	}
}

// Checkout brings Cfg.Dir to the requested ref.  With no Repo configured the
// existing working tree is used as-is.
func (r *Runner) Checkout(ctx context.Context) error {
	if r.Cfg.Repo == "" {
		dlog.Infof(ctx, "using existing working tree %q", r.Cfg.Dir)
		return nil
	}
	if _, err := os.Stat(filepath.Join(r.Cfg.Dir, ".git")); err == nil {
		cmd := dexec.CommandContext(ctx, "git", "-C", r.Cfg.Dir, "fetch", "--tags", "origin")
		if err := cmd.Run(); err != nil {
			return err
		}
	} else {
		cmd := dexec.CommandContext(ctx, "git", "clone", r.Cfg.Repo, r.Cfg.Dir)
		if err := cmd.Run(); err != nil {
			return err
		}
	}
	ref := r.Cfg.Ref
	if r.Event == EventRelease && ref == "" {
		ref = r.Tag
	}
	if ref != "" {
		cmd := dexec.CommandContext(ctx, "git", "-C", r.Cfg.Dir, "checkout", "--detach", ref)
		if err := cmd.Run(); err != nil {
			return err
		}
	}
	return nil
}

// Provision loads and validates the project metadata: the version must be a
// valid final-or-pre-release version, the project must declare support for
// the pinned interpreter, and on a release event the tag must name the
// version being built.
func (r *Runner) Provision(ctx context.Context) error {
	md, err := setupcfg.Load(r.Cfg.Dir)
	if err != nil {
		return err
	}

	want, err := version.Parse(r.Cfg.PythonRequires)
	if err != nil {
		return fmt.Errorf("invalid pythonRequires %q: %w", r.Cfg.PythonRequires, err)
	}
	if md.RequiresPython == "" {
		return fmt.Errorf("project declares no Requires-Python; need support for %s", want)
	}
	ok, err := version.HaveRequiredPython(*want, md.RequiresPython)
	if err != nil {
		return fmt.Errorf("invalid Requires-Python %q: %w", md.RequiresPython, err)
	}
	if !ok {
		return fmt.Errorf("project Requires-Python %q excludes Python %s",
			md.RequiresPython, want)
	}

	if r.Event == EventRelease {
		if r.Tag == "" {
			return fmt.Errorf("release event but no tag given")
		}
		tagVer, err := version.Parse(strings.TrimPrefix(r.Tag, "v"))
		if err != nil {
			return fmt.Errorf("release tag %q is not a version: %w", r.Tag, err)
		}
		if tagVer.Cmp(md.Version) != 0 {
			return fmt.Errorf("release tag %q does not match project version %q",
				r.Tag, md.Version)
		}
	}

	dlog.Infof(ctx, "provisioned %s %s (Requires-Python %s)",
		md.Name, md.Version, md.RequiresPython)
	r.md = md
	return nil
}

// Build writes the sdist and the wheel into Cfg.DistDir.
func (r *Runner) Build(ctx context.Context) error {
	if r.md == nil {
		if err := r.Provision(ctx); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(r.Cfg.DistDir, 0o777); err != nil {
		return err
	}

	sdistName := filepath.Join(r.Cfg.DistDir, sdist.Filename(r.md))
	sdistFile, err := os.Create(sdistName)
	if err != nil {
		return err
	}
	if _, err := sdist.Write(sdistFile, r.md, r.Cfg.Dir); err != nil {
		_ = sdistFile.Close()
		return err
	}
	if err := sdistFile.Close(); err != nil {
		return err
	}
	dlog.Infof(ctx, "built %s", sdistName)

	files, err := collectPyFiles(r.Cfg.Dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no Python packages under %q", r.Cfg.Dir)
	}
	wheelFile, err := os.CreateTemp(r.Cfg.DistDir, ".wheel-*")
	if err != nil {
		return err
	}
	wheelBase, err := wheel.Write(wheelFile, r.md, files)
	if err != nil {
		_ = wheelFile.Close()
		_ = os.Remove(wheelFile.Name())
		return err
	}
	if err := wheelFile.Close(); err != nil {
		_ = os.Remove(wheelFile.Name())
		return err
	}
	wheelName := filepath.Join(r.Cfg.DistDir, wheelBase)
	if err := os.Rename(wheelFile.Name(), wheelName); err != nil {
		_ = os.Remove(wheelFile.Name())
		return err
	}
	dlog.Infof(ctx, "built %s", wheelName)

	r.artifacts = []string{sdistName, wheelName}
	return nil
}

// DiscoverArtifacts fills the artifact list from Cfg.DistDir, so a prior
// build can be published on its own.
func (r *Runner) DiscoverArtifacts() error {
	entries, err := os.ReadDir(r.Cfg.DistDir)
	if err != nil {
		return fmt.Errorf("release.DiscoverArtifacts: %w", err)
	}
	var artifacts []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".whl") || strings.HasSuffix(entry.Name(), ".tar.gz") {
			artifacts = append(artifacts, filepath.Join(r.Cfg.DistDir, entry.Name()))
		}
	}
	if len(artifacts) == 0 {
		return fmt.Errorf("release.DiscoverArtifacts: no distributions in %q", r.Cfg.DistDir)
	}
	r.artifacts = artifacts
	return nil
}

// Publish uploads every built artifact.  Publishing a version the index
// already has is refused, and without a configured token a short-lived one is
// minted via trusted publishing.  There are no retries; a failed upload fails
// the run.
func (r *Runner) Publish(ctx context.Context) error {
	if r.md == nil || len(r.artifacts) == 0 {
		return fmt.Errorf("nothing built to publish")
	}
	client := r.Client
	if client == nil {
		client = &index.Client{
			BaseURL:   r.Cfg.Index.BaseURL,
			UploadURL: r.Cfg.Index.UploadURL,
			MintURL:   r.Cfg.Index.MintURL,
			Token:     r.Cfg.Index.Token,
		}
	}

	has, err := client.HasVersion(ctx, r.md.Name, r.md.Version)
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("index already has %s==%s; bump the version before publishing",
			r.md.Name, r.md.Version)
	}

	if client.Token == "" {
		oidc, err := index.OIDCEnvFromEnviron()
		if err != nil {
			return err
		}
		if err := client.MintToken(ctx, oidc); err != nil {
			return err
		}
		dlog.Infof(ctx, "minted short-lived upload token via trusted publishing")
	}

	for _, filename := range r.artifacts {
		if err := client.Upload(ctx, filename); err != nil {
			return err
		}
		dlog.Infof(ctx, "uploaded %s", filepath.Base(filename))
	}
	return nil
}

// collectPyFiles gathers the .py files of every top-level package (a
// directory with an __init__.py) for the wheel payload.
func collectPyFiles(dir string) ([]wheel.File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []wheel.File
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pkgDir := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(pkgDir, "__init__.py")); err != nil {
			continue
		}
		err := filepath.Walk(pkgDir, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if info.Name() == "__pycache__" {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(path, ".py") {
				return nil
			}
			body, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files = append(files, wheel.File{
				Name:    filepath.ToSlash(rel),
				Body:    body,
				Mode:    info.Mode().Perm(),
				ModTime: info.ModTime(),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
