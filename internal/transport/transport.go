// Package transport mirrors built artifacts to remote targets over rsync.
package transport

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"mvdan.cc/sh/v3/syntax"

	"github.com/envship/envship/internal/event"
	"github.com/envship/envship/internal/logging"
	"github.com/envship/envship/internal/manifest"
)

const (
	// MaxRetries is the maximum number of retries for failed transfers.
	MaxRetries = 3
	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = time.Second
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 15 * time.Second
	// RetryMaxElapsedTime is the maximum total time for retries.
	RetryMaxElapsedTime = time.Minute
)

// rawExcludes keeps raw source files out of every transfer regardless of
// what the local tree holds. Artifacts are named <service>.<tier>.env and
// pass the filter.
var rawExcludes = []string{"--exclude=.env", "--exclude=.env.*"}

// runCommand executes the transfer command and returns its combined output.
// Tests swap it out.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// newRetryBackoff creates an exponential backoff with jitter for transfer
// retries, bounded by MaxRetries and cancelled with the context.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)
}

// Syncer pushes the primary destination root to named remote targets.
type Syncer struct {
	manifest *manifest.Manifest
}

// New creates a syncer over the given manifest.
func New(m *manifest.Manifest) *Syncer {
	return &Syncer{manifest: m}
}

// transfer is one rsync invocation: a local directory mirrored to a remote
// path on the target host.
type transfer struct {
	local string
	path  string
}

// Push mirrors the primary destination root to the named target. A non-empty
// service selection narrows the transfer to those service subtrees. Transfers
// run sequentially; a failed one does not stop the rest.
func (s *Syncer) Push(ctx context.Context, target string, services []string) error {
	t, err := s.manifest.Target(target)
	if err != nil {
		return err
	}
	if len(s.manifest.Destinations) == 0 {
		return errors.New("no destination roots configured")
	}
	root := s.manifest.Destinations[0]

	host, path, ok := strings.Cut(t.Remote, ":")
	if !ok {
		return fmt.Errorf("target %s: remote %q is not host:path", target, t.Remote)
	}

	var transfers []transfer
	if len(services) == 0 {
		transfers = append(transfers, transfer{local: root, path: path})
	} else {
		for _, name := range services {
			svc, err := s.manifest.Service(name)
			if err != nil {
				return err
			}
			transfers = append(transfers, transfer{
				local: filepath.Join(root, svc.Name),
				path:  path + "/" + svc.Name,
			})
		}
	}

	var errs []error
	for _, tr := range transfers {
		if err := ctx.Err(); err != nil {
			return err
		}
		errs = append(errs, s.sync(ctx, target, host, tr))
	}
	return errors.Join(errs...)
}

// sync runs one transfer with retries. The remote path is shell-quoted; the
// remote side passes it through its login shell.
func (s *Syncer) sync(ctx context.Context, target, host string, tr transfer) error {
	quoted, err := syntax.Quote(tr.path, syntax.LangPOSIX)
	if err != nil {
		return fmt.Errorf("remote path %q: %w", tr.path, err)
	}
	remote := host + ":" + quoted

	event.PublishSync(event.Event{Type: event.SyncStarted, Data: event.SyncData{
		Target: target,
		Remote: remote,
		Local:  tr.local,
	}})

	args := append([]string{"-az", "--delete"}, rawExcludes...)
	// The trailing slash mirrors directory contents rather than the
	// directory itself.
	args = append(args, tr.local+"/", remote)

	retryBackoff := newRetryBackoff(ctx)
	attempt := 0
	for {
		attempt++
		out, err := runCommand(ctx, "rsync", args...)
		if err == nil {
			event.PublishSync(event.Event{Type: event.SyncCompleted, Data: event.SyncCompletedData{
				Target:   target,
				Attempts: attempt,
			}})
			logging.Info().Str("target", target).Str("local", tr.local).Int("attempts", attempt).Msg("Sync completed")
			return nil
		}

		logging.Warn().Err(err).Str("target", target).
			Str("output", strings.TrimSpace(string(out))).Msg("Transfer failed")

		next := retryBackoff.NextBackOff()
		if next == backoff.Stop {
			return fmt.Errorf("sync %s to %s: %w", tr.local, target, err)
		}
		event.PublishSync(event.Event{Type: event.SyncRetry, Data: event.SyncRetryData{
			Target:  target,
			Attempt: attempt,
			Err:     err.Error(),
		}})
		time.Sleep(next)
	}
}
