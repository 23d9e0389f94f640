/*
Package event provides a type-safe pub/sub event system for batch progress.

Publishers (the engine, pull, transport, watch) emit events; subscribers (the
report printer, tests) react to them without direct dependencies. The package
is built on top of watermill's gochannel for infrastructure while maintaining
direct-call semantics to preserve type information.

# Event Types

Run events:
  - run.started: batch run began
  - run.completed: batch run finished

Pair events, one (service, tier) unit each:
  - pair.started: processing began
  - pair.skipped: recoverable condition, unit skipped
  - pair.failed: unit failed, batch continued
  - pair.unresolved_reference: a ${VAR} reference stayed literal
  - artifact.written: one artifact landed at one destination

Pull events:
  - pull.file_staged: source file copied into the staging root
  - pull.repo_missing: service checkout not found
  - pull.completed: pull finished

Push events:
  - push.started, push.retry, push.completed

Watch events:
  - watch.triggered: source change queued a rebuild

# Usage

Subscribers register with Subscribe for one type or SubscribeAll for every
type; both return an unsubscribe function. Publish delivers asynchronously,
PublishSync in the caller's goroutine. Tests isolate themselves with Reset.
*/
package event
