// Package engine orchestrates batch artifact builds across the service fleet.
//
// A run walks the selected (service, tier) pairs sequentially and pushes each
// one through the pipeline: locate sources, merge, sanitize, resolve
// references, write to every destination root. Per-pair problems skip or fail
// that pair and the batch continues; only an invalid selection aborts a run.
package engine

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/envship/envship/internal/artifact"
	"github.com/envship/envship/internal/envfile"
	"github.com/envship/envship/internal/event"
	"github.com/envship/envship/internal/logging"
	"github.com/envship/envship/internal/manifest"
)

// Options narrows a run. The zero value builds every manifest service for
// every tier with the manifest's resolution strategy.
type Options struct {
	// Services restricts the run to the named services.
	Services []string
	// Tier restricts the run to one tier.
	Tier string
	// Strategy overrides the manifest resolution strategy.
	Strategy string
}

// Engine builds merged, sanitized, resolved artifacts for (service, tier)
// pairs and writes them to every destination root.
type Engine struct {
	manifest *manifest.Manifest
}

// New creates an engine over the given manifest.
func New(m *manifest.Manifest) *Engine {
	return &Engine{manifest: m}
}

// plan is the validated form of Options.
type plan struct {
	services []manifest.Service
	tiers    []envfile.Tier
	strategy envfile.Strategy
}

func (e *Engine) plan(opts Options) (*plan, error) {
	p := &plan{strategy: e.manifest.Strategy()}

	if opts.Strategy != "" {
		strategy, err := envfile.ParseStrategy(opts.Strategy)
		if err != nil {
			return nil, err
		}
		p.strategy = strategy
	}

	if opts.Tier != "" {
		tier, err := envfile.ParseTier(opts.Tier)
		if err != nil {
			return nil, err
		}
		p.tiers = []envfile.Tier{tier}
	} else {
		p.tiers = envfile.Tiers()
	}

	if len(opts.Services) == 0 {
		p.services = e.manifest.Services
	} else {
		for _, name := range opts.Services {
			svc, err := e.manifest.Service(name)
			if err != nil {
				return nil, err
			}
			p.services = append(p.services, *svc)
		}
	}

	return p, nil
}

// Run executes a batch build over the selected pairs and returns an error
// only for invalid selections. Skips, unresolved references, and write
// failures are published as events and leave the exit status untouched.
func (e *Engine) Run(ctx context.Context, opts Options) error {
	p, err := e.plan(opts)
	if err != nil {
		return err
	}

	runID := ulid.Make().String()
	log := logging.WithRun(runID)
	start := time.Now()

	names := make([]string, len(p.services))
	for i, svc := range p.services {
		names[i] = svc.Name
	}
	tiers := make([]string, len(p.tiers))
	for i, tier := range p.tiers {
		tiers[i] = string(tier)
	}

	log.Info().Strs("services", names).Strs("tiers", tiers).Msg("Run started")
	event.PublishSync(event.Event{Type: event.RunStarted, Data: event.RunStartedData{
		RunID:    runID,
		Services: names,
		Tiers:    tiers,
	}})

	for _, svc := range p.services {
		for _, tier := range p.tiers {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.buildPair(svc, tier, p.strategy)
		}
	}

	event.PublishSync(event.Event{Type: event.RunCompleted, Data: event.RunCompletedData{
		RunID:      runID,
		DurationMS: time.Since(start).Milliseconds(),
	}})
	log.Info().Dur("duration", time.Since(start)).Msg("Run completed")

	return nil
}

// Compose produces the final document for one pair without writing it:
// locate sources, merge, sanitize, resolve.
func (e *Engine) Compose(service string, tier envfile.Tier, strategy envfile.Strategy) (envfile.Document, []envfile.Unresolved, error) {
	src, err := envfile.Locate(e.manifest.SourceRoot, service, tier)
	if err != nil {
		return nil, nil, err
	}
	doc, err := envfile.Merge(src)
	if err != nil {
		return nil, nil, err
	}
	doc = envfile.Sanitize(doc)
	doc, unresolved := envfile.Resolve(doc, strategy)
	return doc, unresolved, nil
}

// buildPair runs the pipeline for one (service, tier) pair. All outcomes are
// published as events; nothing here aborts the batch.
func (e *Engine) buildPair(svc manifest.Service, tier envfile.Tier, strategy envfile.Strategy) {
	log := logging.WithPair(svc.Name, string(tier))

	event.PublishSync(event.Event{Type: event.PairStarted, Data: event.PairData{
		Service: svc.Name,
		Tier:    string(tier),
	}})

	doc, unresolved, err := e.Compose(svc.Name, tier, strategy)
	if err != nil {
		event.PublishSync(event.Event{Type: event.PairSkipped, Data: event.PairSkippedData{
			Service: svc.Name,
			Tier:    string(tier),
			Reason:  skipReason(err),
		}})
		log.Debug().Err(err).Msg("Pair skipped")
		return
	}

	for _, ref := range unresolved {
		event.PublishSync(event.Event{Type: event.ReferenceUnresolved, Data: event.UnresolvedData{
			Service: svc.Name,
			Tier:    string(tier),
			Name:    ref.Name,
			Line:    ref.Line,
		}})
		log.Warn().Str("name", ref.Name).Int("line", ref.Line).Msg("Unresolved reference")
	}

	infos, errs := artifact.WriteAll(doc, e.manifest.Destinations, svc.Name, tier)
	for _, info := range infos {
		event.PublishSync(event.Event{Type: event.ArtifactWritten, Data: event.ArtifactWrittenData{
			Service: svc.Name,
			Tier:    string(tier),
			Path:    info.Path,
			Bytes:   info.Bytes,
			Lines:   info.Lines,
		}})
		log.Info().Str("path", info.Path).Int("bytes", info.Bytes).Msg("Artifact written")
	}
	for _, werr := range errs {
		event.PublishSync(event.Event{Type: event.PairFailed, Data: event.PairFailedData{
			Service: svc.Name,
			Tier:    string(tier),
			Err:     werr.Error(),
		}})
		log.Error().Err(werr).Msg("Artifact write failed")
	}
}

// skipReason folds pipeline errors into the short reasons surfaced to users.
func skipReason(err error) string {
	switch {
	case errors.Is(err, envfile.ErrNoUsableSource):
		return "no usable sources"
	case errors.Is(err, fs.ErrNotExist):
		return "source directory missing"
	}
	return err.Error()
}
