// Package pull stages raw environment files from service checkouts into the
// source root, where builds later pick them up.
package pull

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/envship/envship/internal/event"
	"github.com/envship/envship/internal/logging"
	"github.com/envship/envship/internal/manifest"
)

// Puller copies files matching each service's include patterns from its
// checkout into <sourceRoot>/<service>/. Checkout paths are taken as
// configured, relative paths resolving against the working directory.
type Puller struct {
	manifest *manifest.Manifest
}

// New creates a puller over the given manifest.
func New(m *manifest.Manifest) *Puller {
	return &Puller{manifest: m}
}

// Run stages files for the selected services; an empty selection means every
// manifest service. A missing checkout is reported and skipped, the pull
// continues. Only unknown service names return an error.
func (p *Puller) Run(ctx context.Context, services []string) error {
	selected, err := p.pick(services)
	if err != nil {
		return err
	}

	pulled, files := 0, 0
	for _, svc := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if svc.Repo == "" {
			logging.Debug().Str("service", svc.Name).Msg("No checkout configured")
			continue
		}

		n, err := p.pullService(svc)
		files += n
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				event.PublishSync(event.Event{Type: event.RepoMissing, Data: event.RepoMissingData{
					Service: svc.Name,
					Path:    svc.Repo,
				}})
				logging.Warn().Str("service", svc.Name).Str("path", svc.Repo).Msg("Checkout missing")
			} else {
				logging.Error().Err(err).Str("service", svc.Name).Msg("Pull failed")
			}
			continue
		}
		pulled++
	}

	event.PublishSync(event.Event{Type: event.PullCompleted, Data: event.PullCompletedData{
		Services: pulled,
		Files:    files,
	}})
	return nil
}

func (p *Puller) pick(names []string) ([]manifest.Service, error) {
	if len(names) == 0 {
		return p.manifest.Services, nil
	}
	out := make([]manifest.Service, 0, len(names))
	for _, name := range names {
		svc, err := p.manifest.Service(name)
		if err != nil {
			return nil, err
		}
		out = append(out, *svc)
	}
	return out, nil
}

// pullService copies matching regular files from the checkout root into the
// staging directory and returns how many were staged. The staging directory
// is only created once the first match lands.
func (p *Puller) pullService(svc manifest.Service) (int, error) {
	entries, err := os.ReadDir(svc.Repo)
	if err != nil {
		return 0, err
	}

	stageDir := filepath.Join(p.manifest.SourceRoot, svc.Name)
	staged := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !svc.Matches(name) {
			continue
		}

		if staged == 0 {
			if err := os.MkdirAll(stageDir, 0755); err != nil {
				return staged, err
			}
		}
		data, err := os.ReadFile(filepath.Join(svc.Repo, name))
		if err != nil {
			return staged, err
		}
		dst := filepath.Join(stageDir, name)
		if err := os.WriteFile(dst, data, 0600); err != nil {
			return staged, err
		}
		// Staged copies hold credentials; pin the exact bits.
		if err := os.Chmod(dst, 0600); err != nil {
			return staged, err
		}

		event.PublishSync(event.Event{Type: event.FileStaged, Data: event.FileStagedData{
			Service: svc.Name,
			File:    name,
			Bytes:   len(data),
		}})
		logging.Debug().Str("service", svc.Name).Str("file", name).Msg("File staged")
		staged++
	}
	return staged, nil
}
