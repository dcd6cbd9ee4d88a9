// Package policy gates RMI operations behind the system policy service. The
// actual authorization decision is delegated to an external collaborator
// (polkit's authority daemon in the reference deployment); this package
// only defines the request shape and the client interface the bus layer
// calls through.
package policy

import (
	"context"
	"fmt"
)

// Detail describes the target and operation a policy check is being asked
// about. The policy service uses these to render a prompt and to match
// rules, so every field that could disambiguate "which thing is this
// action against" is included.
type Detail struct {
	Action  string
	Class   string
	Name    string
	Version string
	Offline bool
}

// Decision is the outcome of one policy check.
type Decision int

const (
	// Denied means the action is not authorized and must not proceed.
	Denied Decision = iota
	// Allowed means the action may proceed immediately.
	Allowed
	// NeedsInteraction means the policy service must prompt the caller
	// (e.g. for a password) before it can answer; the check should be
	// retried, and the bus layer may need to hold the original request
	// open across that retry.
	NeedsInteraction
)

// Checker authorizes one action against one caller. Implementations may
// block the calling goroutine for as long as the policy service takes to
// answer; callers on the daemon's single state-owning goroutine must
// invoke Checker asynchronously (see internal/updated/jobmanager) so a
// slow or interactive check never stalls the event loop.
type Checker interface {
	Check(ctx context.Context, caller Caller, detail Detail) (Decision, error)
}

// Caller identifies who is asking, as provided by the bus transport (the
// sender's unique bus name in the reference deployment).
type Caller struct {
	BusName string
}

// AllowAllChecker is a Checker that authorizes everything. It exists for
// tests and for local/unprivileged operation where no policy service is
// configured; it is never wired in as the default in a real deployment.
type AllowAllChecker struct{}

func (AllowAllChecker) Check(context.Context, Caller, Detail) (Decision, error) {
	return Allowed, nil
}

// ExternalChecker calls out to a process-external policy authority via a
// pluggable Dial function. cmd/updated constructs it, with no Dial set,
// whenever cfg.Bus.UseSystemBus is true; this module has no concrete
// backend for the policy service, and with a nil Dial every Check fails.
type ExternalChecker struct {
	// Dial performs the actual out-of-process authorization request. It
	// is a field rather than an embedded interface so tests can swap in
	// a stub without constructing a fake service.
	Dial func(ctx context.Context, caller Caller, detail Detail) (Decision, error)
}

func (c *ExternalChecker) Check(ctx context.Context, caller Caller, detail Detail) (Decision, error) {
	if c.Dial == nil {
		return Denied, fmt.Errorf("policy: no authorization backend configured")
	}
	return c.Dial(ctx, caller, detail)
}
