package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/envship/envship/internal/envfile"
)

var (
	ErrUnknownService = errors.New("unknown service")
	ErrUnknownTarget  = errors.New("unknown target")
)

// defaultIncludes selects which files pull stages when a service declares no
// patterns of its own.
var defaultIncludes = []string{".env*"}

var serviceNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Manifest is the explicit configuration structure for a fleet: which
// services exist, where their sources live, where artifacts go, and which
// remote targets receive them. Nothing about the fleet is hard-coded
// elsewhere.
type Manifest struct {
	Schema string `json:"$schema,omitempty" yaml:"schema,omitempty"`

	// SourceRoot is the staging root holding <sourceRoot>/<service>/.env*.
	SourceRoot string `json:"sourceRoot,omitempty" yaml:"sourceRoot,omitempty" env:"SOURCE_ROOT"`

	// Destinations are the artifact roots; every root receives an identical
	// copy of each artifact.
	Destinations []string `json:"destinations,omitempty" yaml:"destinations,omitempty" env:"DESTINATIONS" envSeparator:":"`

	// Services is the fixed set of managed services for a run.
	Services []Service `json:"services,omitempty" yaml:"services,omitempty"`

	// Targets names the remote sync destinations for push.
	Targets map[string]Target `json:"targets,omitempty" yaml:"targets,omitempty"`

	// Resolution selects the substitution strategy: single-pass (default)
	// or fixed-point.
	Resolution string `json:"resolution,omitempty" yaml:"resolution,omitempty" env:"RESOLUTION"`

	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty" envPrefix:"LOG_"`
}

// Service is one managed deployable unit.
type Service struct {
	Name string `json:"name" yaml:"name"`

	// Repo is the local checkout pull copies source files from.
	Repo string `json:"repo,omitempty" yaml:"repo,omitempty"`

	// Include overrides the default .env* staging patterns.
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
}

// IncludePatterns returns the service's staging patterns, falling back to
// the default .env* set.
func (s *Service) IncludePatterns() []string {
	if len(s.Include) > 0 {
		return s.Include
	}
	return defaultIncludes
}

// Matches reports whether a file base name matches the include patterns.
func (s *Service) Matches(name string) bool {
	for _, pattern := range s.IncludePatterns() {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Target is a named remote sync destination.
type Target struct {
	// Remote is the transfer destination in user@host:path form.
	Remote string `json:"remote" yaml:"remote"`
}

// LogConfig controls the log stream.
type LogConfig struct {
	Level string `json:"level,omitempty" yaml:"level,omitempty" env:"LEVEL"`
	File  string `json:"file,omitempty" yaml:"file,omitempty" env:"FILE"`
}

// defaults returns the layer every load ends with.
func defaults() *Manifest {
	return &Manifest{
		SourceRoot:   "services",
		Destinations: []string{"deploy"},
		Resolution:   string(envfile.StrategySinglePass),
		Log:          LogConfig{Level: "info"},
	}
}

// validate rejects manifests the engine cannot act on. These are
// configuration errors: the batch never starts.
func (m *Manifest) validate() error {
	if m.SourceRoot == "" {
		return errors.New("manifest: sourceRoot must not be empty")
	}
	if len(m.Destinations) == 0 {
		return errors.New("manifest: at least one destination root is required")
	}
	if _, err := envfile.ParseStrategy(m.Resolution); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}

	seen := make(map[string]bool, len(m.Services))
	for _, svc := range m.Services {
		if !serviceNameRe.MatchString(svc.Name) {
			return fmt.Errorf("manifest: invalid service name %q", svc.Name)
		}
		if seen[svc.Name] {
			return fmt.Errorf("manifest: duplicate service %q", svc.Name)
		}
		seen[svc.Name] = true
	}

	for name, target := range m.Targets {
		host, _, ok := strings.Cut(target.Remote, ":")
		if !ok || host == "" {
			return fmt.Errorf("manifest: target %q remote %q is not host:path", name, target.Remote)
		}
	}
	return nil
}

// Service looks up a managed service by name.
func (m *Manifest) Service(name string) (*Service, error) {
	for i := range m.Services {
		if m.Services[i].Name == name {
			return &m.Services[i], nil
		}
	}
	return nil, fmt.Errorf("%w %q%s", ErrUnknownService, name, suggest(name, m.ServiceNames()))
}

// Target looks up a named remote target.
func (m *Manifest) Target(name string) (Target, error) {
	if t, ok := m.Targets[name]; ok {
		return t, nil
	}
	names := make([]string, 0, len(m.Targets))
	for n := range m.Targets {
		names = append(names, n)
	}
	return Target{}, fmt.Errorf("%w %q%s", ErrUnknownTarget, name, suggest(name, names))
}

// ServiceNames returns the configured service names in manifest order.
func (m *Manifest) ServiceNames() []string {
	names := make([]string, 0, len(m.Services))
	for _, svc := range m.Services {
		names = append(names, svc.Name)
	}
	return names
}

// Strategy returns the parsed resolution strategy.
func (m *Manifest) Strategy() envfile.Strategy {
	s, err := envfile.ParseStrategy(m.Resolution)
	if err != nil {
		return envfile.StrategySinglePass
	}
	return s
}

// suggest offers the closest known name when a lookup misses.
func suggest(input string, known []string) string {
	best := ""
	bestDist := 4
	for _, name := range known {
		if d := levenshtein.ComputeDistance(input, name); d < bestDist {
			best, bestDist = name, d
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}
