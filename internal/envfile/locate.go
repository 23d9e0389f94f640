package envfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoUsableSource reports that neither the base nor the tier override file
// exists for a service. The tier-local file alone is never sufficient.
var ErrNoUsableSource = errors.New("no usable source file")

// templateMarker excludes example/template files from processing wherever it
// appears in a candidate path.
const templateMarker = "example"

// CandidateKind is a slot in the override precedence chain.
type CandidateKind int

const (
	KindBase CandidateKind = iota
	KindTier
	KindTierLocal
)

func (k CandidateKind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindTier:
		return "tier"
	case KindTierLocal:
		return "tier.local"
	}
	return "unknown"
}

// Candidate describes one override file in the chain. Absent files are
// recorded with Present false rather than dropped, so callers can report
// exactly what was consulted.
type Candidate struct {
	Path     string
	Kind     CandidateKind
	Present  bool
	Template bool
}

// Source is the located override chain for one (service, tier) pair, in
// precedence order: base first, tier-local last.
type Source struct {
	Service    string
	Tier       Tier
	Candidates []Candidate
}

// Locate stats the override chain for service under root: .env, .env.<tier>,
// .env.<tier>.local. Missing files are never an error; a missing service
// directory is, and the caller decides whether it fails the whole run.
func Locate(root, service string, tier Tier) (Source, error) {
	dir := filepath.Join(root, service)
	info, err := os.Stat(dir)
	if err != nil {
		return Source{}, fmt.Errorf("service directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Source{}, fmt.Errorf("service path %s is not a directory", dir)
	}

	chain := []struct {
		kind CandidateKind
		name string
	}{
		{KindBase, ".env"},
		{KindTier, ".env." + string(tier)},
		{KindTierLocal, ".env." + string(tier) + ".local"},
	}

	src := Source{Service: service, Tier: tier}
	for _, link := range chain {
		path := filepath.Join(dir, link.name)
		c := Candidate{
			Path:     path,
			Kind:     link.kind,
			Template: strings.Contains(path, templateMarker),
		}
		if fi, statErr := os.Stat(path); statErr == nil && fi.Mode().IsRegular() {
			c.Present = true
		}
		src.Candidates = append(src.Candidates, c)
	}
	return src, nil
}

// Usable reports whether the chain can produce a document: the base or the
// tier candidate must be present and not a template.
func (s Source) Usable() bool {
	for _, c := range s.Candidates {
		if c.Kind == KindTierLocal {
			continue
		}
		if c.Present && !c.Template {
			return true
		}
	}
	return false
}
