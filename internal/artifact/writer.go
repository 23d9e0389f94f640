// Package artifact persists resolved documents to destination roots and
// inspects what is already deployed there.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/envship/envship/internal/envfile"
)

// Info describes one artifact landed at one destination.
type Info struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
	Lines int    `json:"lines"`
}

// Path returns the artifact location for a (service, tier) pair under root:
// <root>/<service>/<tier>/<service>.<tier>.env.
func Path(root, service string, tier envfile.Tier) string {
	return filepath.Join(root, service, string(tier), fmt.Sprintf("%s.%s.env", service, tier))
}

// Write persists the document under root with owner-only permissions.
// Content goes to a temp file in the final directory first, is fsynced, and
// renamed into place, so the artifact is either absent or fully written.
// Reruns overwrite the previous artifact completely.
func Write(doc envfile.Document, root, service string, tier envfile.Tier) (Info, error) {
	path := Path(root, service, tier)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Info{}, fmt.Errorf("create artifact directory: %w", err)
	}

	data := doc.Bytes()

	// Write, sync, close, rename. Any failure removes the temp file so no
	// partial artifact is ever visible under the final name.
	tmpPath := path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return Info{}, fmt.Errorf("create temp artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return Info{}, fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return Info{}, fmt.Errorf("sync temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return Info{}, fmt.Errorf("close temp artifact: %w", err)
	}

	// OpenFile mode passes through the umask; chmod pins the exact bits.
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return Info{}, fmt.Errorf("restrict artifact permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return Info{}, fmt.Errorf("rename artifact: %w", err)
	}

	return Info{Path: path, Bytes: len(data), Lines: doc.Len()}, nil
}

// WriteAll mirrors the document to every destination root, producing
// byte-identical copies. A failed root is reported and the loop continues;
// roots already written are not rolled back.
func WriteAll(doc envfile.Document, roots []string, service string, tier envfile.Tier) ([]Info, []error) {
	var infos []Info
	var errs []error
	for _, root := range roots {
		info, err := Write(doc, root, service, tier)
		if err != nil {
			errs = append(errs, fmt.Errorf("destination %s: %w", root, err))
			continue
		}
		infos = append(infos, info)
	}
	return infos, errs
}
