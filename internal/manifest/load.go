package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// current is the manifest installed by the last successful Load.
var current *Manifest

// Load assembles the manifest from layered sources, most specific first:
//
//  1. ENVSHIP_* environment variables
//  2. ENVSHIP_MANIFEST_CONTENT inline JSON
//  3. ENVSHIP_MANIFEST file override
//  4. Project manifest (envship.json/.jsonc/.yaml in directory)
//  5. Global manifest (~/.config/envship/)
//  6. Built-in defaults
//
// Later layers only fill fields earlier layers left empty. Exactly one
// manifest file per layer is read; .json wins over .jsonc over .yaml.
func Load(directory string) (*Manifest, error) {
	b := newBuilder()
	b.withEnv()
	b.withInline(os.Getenv("ENVSHIP_MANIFEST_CONTENT"))
	if path := os.Getenv("ENVSHIP_MANIFEST"); path != "" {
		b.withFile(path)
	}
	if directory != "" {
		b.withFirstOf(
			filepath.Join(directory, "envship.json"),
			filepath.Join(directory, "envship.jsonc"),
			filepath.Join(directory, "envship.yaml"),
		)
	}
	globalDir := GetPaths().Config
	b.withFirstOf(
		filepath.Join(globalDir, "envship.json"),
		filepath.Join(globalDir, "envship.jsonc"),
		filepath.Join(globalDir, "envship.yaml"),
	)
	b.withDefaults()

	m, err := b.build()
	if err != nil {
		return nil, err
	}

	current = m
	return m, nil
}

// Get returns the manifest from the last Load, or built-in defaults when
// nothing was loaded.
func Get() *Manifest {
	if current == nil {
		return defaults()
	}
	return current
}

// Reset clears the loaded manifest (for testing).
func Reset() {
	current = nil
}

// builder accumulates manifest layers before the merge.
type builder struct {
	layers []*Manifest
	err    error
}

func newBuilder() *builder {
	return &builder{layers: make([]*Manifest, 0, 6)}
}

// build merges the layers in order into a fresh manifest; earlier layers
// win because the merge never overwrites a field that is already set.
func (b *builder) build() (*Manifest, error) {
	if b.err != nil {
		return nil, fmt.Errorf("load manifest: %w", b.err)
	}

	m := new(Manifest)
	for _, layer := range b.layers {
		if err := mergo.Merge(m, layer); err != nil {
			return nil, fmt.Errorf("merge manifest layers: %w", err)
		}
	}
	return m, m.validate()
}

// withEnv adds the ENVSHIP_* environment layer.
func (b *builder) withEnv() {
	layer := &Manifest{}
	if err := env.ParseWithOptions(layer, env.Options{Prefix: "ENVSHIP_"}); err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("environment overrides: %w", err))
		return
	}
	b.layers = append(b.layers, layer)
}

// withInline adds an inline JSON layer, used mostly by scripting and tests.
func (b *builder) withInline(content string) {
	if content == "" {
		return
	}
	layer := &Manifest{}
	if err := json.Unmarshal(interpolate([]byte(content)), layer); err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("inline manifest: %w", err))
		return
	}
	b.layers = append(b.layers, layer)
}

// withFile adds a manifest file layer. The file must exist and parse.
func (b *builder) withFile(path string) {
	layer, err := parseFile(path)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return
	}
	b.layers = append(b.layers, layer)
}

// withFirstOf adds the first existing candidate as a layer; none existing is
// fine.
func (b *builder) withFirstOf(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		b.withFile(path)
		return
	}
}

// withDefaults adds the built-in final layer.
func (b *builder) withDefaults() {
	b.layers = append(b.layers, defaults())
}

// parseFile reads one manifest file, strips JSONC comments or decodes YAML
// by extension, and applies {env:VAR} interpolation.
func parseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	data = interpolate(data)

	m := &Manifest{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parse manifest %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), m); err != nil {
			return nil, fmt.Errorf("parse manifest %s: %w", path, err)
		}
	}
	return m, nil
}

var envPlaceholder = regexp.MustCompile(`\{env:([^}]+)\}`)

// interpolate replaces {env:VAR} placeholders with process environment
// values. This is manifest-level templating only; artifact resolution never
// sees the process environment.
func interpolate(data []byte) []byte {
	return envPlaceholder.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPlaceholder.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}
