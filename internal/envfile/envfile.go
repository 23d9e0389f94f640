// Package envfile implements the override merge and variable resolution
// pipeline for per-service environment files: locating the override chain,
// concatenating it with fixed precedence, sanitizing comments and whitespace,
// and resolving ${VAR} references against the document's own assignments.
package envfile

import (
	"fmt"
	"strings"
)

// Tier is the deployment environment context deciding which override file
// suffix is consulted.
type Tier string

const (
	TierDevelopment Tier = "development"
	TierProduction  Tier = "production"
)

// Tiers returns every tier in processing order.
func Tiers() []Tier {
	return []Tier{TierDevelopment, TierProduction}
}

// ParseTier validates a tier name from flags or manifest values.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierDevelopment, TierProduction:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown tier %q (valid: %s, %s)", s, TierDevelopment, TierProduction)
}

// Document is an ordered sequence of raw lines flowing through the pipeline.
// No stage deduplicates lines; later duplicate-key assignments win at
// resolution time while both lines stay in the output.
type Document []string

// Bytes renders the document as newline-terminated text. An empty document
// renders as empty output, not a lone newline.
func (d Document) Bytes() []byte {
	if len(d) == 0 {
		return nil
	}
	return []byte(strings.Join(d, "\n") + "\n")
}

// Len returns the number of lines.
func (d Document) Len() int {
	return len(d)
}

// Assignment is a KEY=VALUE line split at the first equals sign.
type Assignment struct {
	Key   string
	Value string
}

// Assignments returns the document's assignment lines in order of
// appearance, duplicates included.
func (d Document) Assignments() []Assignment {
	var out []Assignment
	for _, line := range d {
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			continue
		}
		out = append(out, Assignment{Key: key, Value: value})
	}
	return out
}
