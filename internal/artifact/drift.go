package artifact

import (
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/envship/envship/internal/envfile"
)

// ChunkOp classifies a drift chunk.
type ChunkOp int

const (
	ChunkEqual ChunkOp = iota
	ChunkInsert
	ChunkDelete
)

// Chunk is a run of consecutive lines sharing one drift classification.
type Chunk struct {
	Op   ChunkOp
	Text string
}

// Delta summarizes how a freshly built document differs from the artifact
// already deployed at a destination.
type Delta struct {
	Path      string
	Missing   bool
	Additions int
	Deletions int
	Chunks    []Chunk
}

// Clean reports whether the deployed artifact already matches the document.
func (d Delta) Clean() bool {
	return !d.Missing && d.Additions == 0 && d.Deletions == 0
}

// Drift compares doc against the deployed artifact for (service, tier) under
// root. A missing artifact is not an error; the whole document counts as
// additions.
func Drift(doc envfile.Document, root, service string, tier envfile.Tier) (Delta, error) {
	path := Path(root, service, tier)
	deployed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Delta{Path: path, Missing: true, Additions: doc.Len()}, nil
		}
		return Delta{}, fmt.Errorf("read artifact %s: %w", path, err)
	}

	before := string(deployed)
	after := string(doc.Bytes())
	if before == after {
		return Delta{Path: path}, nil
	}

	// Line-level diff: collapse lines to runes, diff, expand back.
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	delta := Delta{Path: path}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			delta.Additions += countLines(d.Text)
			delta.Chunks = append(delta.Chunks, Chunk{Op: ChunkInsert, Text: d.Text})
		case diffmatchpatch.DiffDelete:
			delta.Deletions += countLines(d.Text)
			delta.Chunks = append(delta.Chunks, Chunk{Op: ChunkDelete, Text: d.Text})
		default:
			delta.Chunks = append(delta.Chunks, Chunk{Op: ChunkEqual, Text: d.Text})
		}
	}
	return delta, nil
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	lines := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		lines++
	}
	return lines
}
