package envfile

import (
	"fmt"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Strategy selects how substitution passes run over the document.
type Strategy string

const (
	// StrategySinglePass substitutes once over the values captured at scan
	// time. A reference whose target value itself contains a reference stays
	// partially unresolved.
	StrategySinglePass Strategy = "single-pass"

	// StrategyFixedPoint repeats substitution until the document stops
	// changing, bounded by maxResolvePasses so reference cycles terminate.
	StrategyFixedPoint Strategy = "fixed-point"
)

const maxResolvePasses = 8

var (
	braceRef = regexp.MustCompile(`\$\{(\w+)\}`)
	bareRef  = regexp.MustCompile(`\$(\w+)`)
)

// ParseStrategy validates a strategy name; the empty string selects the
// single-pass default.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "":
		return StrategySinglePass, nil
	case StrategySinglePass, StrategyFixedPoint:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown resolution strategy %q (valid: %s, %s)", s, StrategySinglePass, StrategyFixedPoint)
}

// Unresolved is a ${KEY} reference that survived substitution, either because
// no assignment bound the key or because the strategy stopped before reaching
// it. Line is 1-based.
type Unresolved struct {
	Line int
	Name string
}

// Resolve substitutes ${KEY} and bare $KEY references in every line,
// assignments and passthrough lines alike, against a table built from the
// document's own assignments. The table is filled in one scan with later
// assignments overwriting earlier ones, and only from simple lines: a valid
// identifier key and a value carrying no whitespace. The process environment
// is never consulted.
//
// References to unbound keys stay literal and are reported, not failed.
func Resolve(doc Document, strategy Strategy) (Document, []Unresolved) {
	table := bindingTable(doc)
	out := make(Document, len(doc))
	copy(out, doc)

	passes := 1
	if strategy == StrategyFixedPoint {
		passes = maxResolvePasses
	}
	for p := 0; p < passes; p++ {
		changed := false
		for i, line := range out {
			if next := substitute(line, table); next != line {
				out[i] = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return out, unresolvedRefs(out)
}

// bindingTable collects the substitutable keys. Values are taken literally,
// references inside them included; multi-word values never enter the table.
func bindingTable(doc Document) map[string]string {
	table := make(map[string]string)
	for _, line := range doc {
		key, value, ok := strings.Cut(line, "=")
		if !ok || !syntax.ValidName(key) {
			continue
		}
		if strings.ContainsAny(value, " \t") {
			continue
		}
		table[key] = value
	}
	return table
}

// substitute expands ${name} and then $name tokens, leaving unknown names
// untouched.
func substitute(line string, table map[string]string) string {
	line = braceRef.ReplaceAllStringFunc(line, func(match string) string {
		if val, ok := table[match[2:len(match)-1]]; ok {
			return val
		}
		return match
	})
	return bareRef.ReplaceAllStringFunc(line, func(match string) string {
		if val, ok := table[match[1:]]; ok {
			return val
		}
		return match
	})
}

// unresolvedRefs scans the resolved document for ${KEY} tokens that survived
// substitution. Bare $KEY leftovers are not reported; a lone dollar sign in a
// value is common and rarely a reference.
func unresolvedRefs(doc Document) []Unresolved {
	var refs []Unresolved
	for i, line := range doc {
		for _, m := range braceRef.FindAllStringSubmatch(line, -1) {
			refs = append(refs, Unresolved{Line: i + 1, Name: m[1]})
		}
	}
	return refs
}
