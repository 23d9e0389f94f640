// Package testutil provides workspace fixtures shared by the integration
// suites.
package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/envship/envship/internal/manifest"
)

// RandomString generates a random string of n characters
func RandomString(n int) string {
	bytes := make([]byte, n/2+1)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)[:n]
}

// TempFile creates a temporary file with content
type TempFile struct {
	Path string
}

// NewTempFile creates a temp file with content
func NewTempFile(content string) (*TempFile, error) {
	dir := os.TempDir()
	name := fmt.Sprintf("envship-test-%s.json", RandomString(8))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, err
	}

	return &TempFile{Path: path}, nil
}

// Read reads the file content
func (f *TempFile) Read() (string, error) {
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// Exists checks if the file exists
func (f *TempFile) Exists() bool {
	_, err := os.Stat(f.Path)
	return err == nil
}

// Cleanup removes the temp file
func (f *TempFile) Cleanup() {
	os.Remove(f.Path)
}

// TempDir creates a temporary directory
type TempDir struct {
	Path string
}

// NewTempDir creates a temp directory
func NewTempDir() (*TempDir, error) {
	path, err := os.MkdirTemp("", "envship-test-*")
	if err != nil {
		return nil, err
	}
	return &TempDir{Path: path}, nil
}

// CreateFile creates a file in the temp directory
func (d *TempDir) CreateFile(name, content string) (*TempFile, error) {
	path := filepath.Join(d.Path, name)

	// Create parent directories if needed
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, err
	}

	return &TempFile{Path: path}, nil
}

// CreateSubDir creates a subdirectory
func (d *TempDir) CreateSubDir(name string) (string, error) {
	path := filepath.Join(d.Path, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", err
	}
	return path, nil
}

// Cleanup removes the temp directory and all contents
func (d *TempDir) Cleanup() {
	os.RemoveAll(d.Path)
}

// ---- Fleet Workspace ----

// Fleet assembles a complete workspace in a temp directory: service
// checkouts, a staging root, deploy roots, and the manifest tying them
// together. Every integration spec starts from one.
type Fleet struct {
	Root        *TempDir
	SourceRoot  string
	DeployRoots []string

	services []manifest.Service
	targets  map[string]manifest.Target
}

// NewFleet creates an empty fleet with a staging root and one deploy root.
func NewFleet() (*Fleet, error) {
	root, err := NewTempDir()
	if err != nil {
		return nil, err
	}
	sourceRoot, err := root.CreateSubDir("services")
	if err != nil {
		root.Cleanup()
		return nil, err
	}
	deployRoot, err := root.CreateSubDir("deploy")
	if err != nil {
		root.Cleanup()
		return nil, err
	}
	return &Fleet{
		Root:        root,
		SourceRoot:  sourceRoot,
		DeployRoots: []string{deployRoot},
		targets:     make(map[string]manifest.Target),
	}, nil
}

// AddService registers a service backed by a checkout holding the given
// files, keyed by name relative to the checkout root.
func (f *Fleet) AddService(name string, files map[string]string) error {
	repo, err := f.Root.CreateSubDir(filepath.Join("repos", name))
	if err != nil {
		return err
	}
	for rel, content := range files {
		if _, err := f.Root.CreateFile(filepath.Join("repos", name, rel), content); err != nil {
			return err
		}
	}
	f.services = append(f.services, manifest.Service{Name: name, Repo: repo})
	return nil
}

// AddStaged registers a service and writes files straight into its staging
// directory, bypassing pull.
func (f *Fleet) AddStaged(name string, files map[string]string) error {
	f.services = append(f.services, manifest.Service{Name: name})
	for rel, content := range files {
		path := filepath.Join(f.SourceRoot, name, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

// AddDeployRoot adds another destination root.
func (f *Fleet) AddDeployRoot(name string) (string, error) {
	path, err := f.Root.CreateSubDir(name)
	if err != nil {
		return "", err
	}
	f.DeployRoots = append(f.DeployRoots, path)
	return path, nil
}

// AddTarget registers a named push target.
func (f *Fleet) AddTarget(name, remote string) {
	f.targets[name] = manifest.Target{Remote: remote}
}

// Load writes the manifest file into the workspace root and loads it through
// the regular layered loader.
func (f *Fleet) Load() (*manifest.Manifest, error) {
	m := manifest.Manifest{
		SourceRoot:   f.SourceRoot,
		Destinations: f.DeployRoots,
		Services:     f.services,
		Targets:      f.targets,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(manifest.ProjectManifestPath(f.Root.Path), data, 0644); err != nil {
		return nil, err
	}
	return manifest.Load(f.Root.Path)
}

// Cleanup removes the workspace.
func (f *Fleet) Cleanup() {
	f.Root.Cleanup()
}

// ---- Environment Helpers ----

// Isolate points the manifest loader's environment and global-config layers
// at a scratch directory so a developer's real configuration never leaks
// into a suite.
func Isolate() error {
	scratch, err := os.MkdirTemp("", "envship-isolate-*")
	if err != nil {
		return err
	}
	for _, v := range []string{
		"ENVSHIP_MANIFEST",
		"ENVSHIP_MANIFEST_CONTENT",
		"ENVSHIP_SOURCE_ROOT",
		"ENVSHIP_DESTINATIONS",
		"ENVSHIP_RESOLUTION",
		"ENVSHIP_LOG_LEVEL",
		"ENVSHIP_LOG_FILE",
	} {
		os.Unsetenv(v)
	}
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(scratch, "config"))
	os.Setenv("XDG_DATA_HOME", filepath.Join(scratch, "data"))
	os.Setenv("XDG_STATE_HOME", filepath.Join(scratch, "state"))
	os.Setenv("XDG_CACHE_HOME", filepath.Join(scratch, "cache"))
	return nil
}
