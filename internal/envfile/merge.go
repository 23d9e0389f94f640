package envfile

import (
	"fmt"
	"os"
	"strings"
)

// Merge concatenates the lines of every present, non-template candidate in
// precedence order: base, then tier, then tier-local. Absent candidates
// contribute zero lines. The result is held entirely in memory; nothing is
// staged on disk.
func Merge(src Source) (Document, error) {
	if !src.Usable() {
		return nil, fmt.Errorf("%s/%s: %w", src.Service, src.Tier, ErrNoUsableSource)
	}

	var doc Document
	for _, c := range src.Candidates {
		if !c.Present || c.Template {
			continue
		}
		data, err := os.ReadFile(c.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", c.Path, err)
		}
		doc = append(doc, splitLines(data)...)
	}
	return doc, nil
}

// splitLines splits file content into lines. A trailing newline does not
// produce a phantom empty line, and a file without one still contributes its
// last line intact.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}
