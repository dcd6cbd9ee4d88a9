// Package jobmanager owns the daemon's entire mutable state: the Target
// registry and the map of in-flight Jobs. Every mutation runs on a single
// goroutine (Manager.Run's loop), reached only through closures submitted
// over an internal channel; every other goroutine in the daemon -
// notify-socket readers, child waiters, gRPC handlers - communicates with
// it only that way, never by touching a Job or Target field directly.
// This is the Go-idiomatic replacement for the reference daemon's
// single-threaded reactor loop: the serialization guarantee is the same,
// the mechanism is channel ownership instead of a literal event loop over
// one thread.
package jobmanager

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/sysupdate-systems/updated/internal/updated/discovery"
	"github.com/sysupdate-systems/updated/internal/updated/domain"
	"github.com/sysupdate-systems/updated/internal/updated/events"
	"github.com/sysupdate-systems/updated/internal/updated/policy"
	"github.com/sysupdate-systems/updated/internal/updated/worker"
	"github.com/sysupdate-systems/updated/pkg/config"
	pkgerrors "github.com/sysupdate-systems/updated/pkg/errors"
	"github.com/sysupdate-systems/updated/pkg/logger"
)

// Spawner starts a job's worker. worker.Invoker satisfies it; tests
// substitute a fake that never execs anything.
type Spawner interface {
	Spawn(job *domain.Job) error
}

// Manager is the daemon's job and target authority.
type Manager struct {
	cfg      *config.Config
	log      *logger.Logger
	spawner  Spawner
	checker  policy.Checker
	registry *discovery.Registry
	bus      *events.Bus

	ids IDGenerator

	cmds chan func()

	// jobs and idleTimer/idleFired are touched only inside a closure
	// running on the Run loop.
	jobs      map[int64]*domain.Job
	idleTimer *time.Timer
	idleFired bool
	idleCh    chan struct{}
}

// New returns a Manager ready to have Run started on it.
func New(cfg *config.Config, spawner Spawner, checker policy.Checker, registry *discovery.Registry, bus *events.Bus) *Manager {
	return &Manager{
		cfg:      cfg,
		log:      logger.New().WithField("component", "jobmanager"),
		spawner:  spawner,
		checker:  checker,
		registry: registry,
		bus:      bus,
		cmds:     make(chan func(), 32),
		jobs:     make(map[int64]*domain.Job),
		idleCh:   make(chan struct{}),
	}
}

// Run processes state-mutating closures serially until ctx is cancelled.
// It must be started exactly once, typically from the daemon's main
// goroutine via an errgroup alongside the notify receiver and signal
// handling (see internal/updated/eventloop).
func (m *Manager) Run(ctx context.Context) {
	// The job map starts out empty, so the quiescence timer is armed here
	// as well as after each job exits.
	m.checkIdle()
	for {
		select {
		case fn := <-m.cmds:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// IdleCh closes once the job map has been empty for the configured
// quiescence timeout. The daemon's main loop selects on it to know when
// it's safe to exit.
func (m *Manager) IdleCh() <-chan struct{} {
	return m.idleCh
}

// do submits fn to the Run loop and blocks until it has executed. Callers
// outside the loop goroutine use this for every read or write of Manager
// state; it must never be called from within a closure already running on
// the loop (handleChildExit and friends call registry/jobs methods
// directly instead, since they're already serialized).
func (m *Manager) do(fn func()) {
	done := make(chan struct{})
	m.cmds <- func() {
		fn()
		close(done)
	}
	<-done
}

// ListTargets returns every currently-known target, discovering them
// first if the registry is cold.
func (m *Manager) ListTargets(ctx context.Context) ([]*domain.Target, error) {
	var targets []*domain.Target
	var err error
	m.do(func() {
		if err = m.registry.EnsureLoaded(m.cfg); err != nil {
			return
		}
		targets = m.registry.List()
	})
	return targets, err
}

// ResolveTarget looks a target up by its stable id, discovering the
// registry first if needed.
func (m *Manager) ResolveTarget(ctx context.Context, targetID string) (*domain.Target, error) {
	var target *domain.Target
	var err error
	m.do(func() {
		if err = m.registry.EnsureLoaded(m.cfg); err != nil {
			return
		}
		t, ok := m.registry.Lookup(targetID)
		if !ok {
			err = pkgerrors.ErrNoSuchTarget
			return
		}
		target = t
	})
	return target, err
}

// ListJobs returns every currently in-flight job.
func (m *Manager) ListJobs(ctx context.Context) []*domain.Job {
	var out []*domain.Job
	m.do(func() {
		out = make([]*domain.Job, 0, len(m.jobs))
		for _, j := range m.jobs {
			out = append(out, j)
		}
	})
	return out
}

// GetJob looks a job up by id.
func (m *Manager) GetJob(ctx context.Context, jobID int64) (*domain.Job, error) {
	var job *domain.Job
	var err error
	m.do(func() {
		j, ok := m.jobs[jobID]
		if !ok {
			err = pkgerrors.ErrNoSuchJob
			return
		}
		job = j
	})
	return job, err
}

// policyDetail builds the Detail a policy check is asked about for a
// target-scoped operation.
func policyDetail(action string, target *domain.Target, version string, offline bool) policy.Detail {
	return policy.Detail{
		Action:  action,
		Class:   string(target.Class),
		Name:    target.Name,
		Version: version,
		Offline: offline,
	}
}

// authorize runs a policy check off the state loop (it may block for as
// long as the policy service takes to answer) and translates a denial or
// interactive-auth outcome into an AuthorizationError.
func (m *Manager) authorize(ctx context.Context, caller policy.Caller, detail policy.Detail) error {
	decision, err := m.checker.Check(ctx, caller, detail)
	if err != nil {
		return fmt.Errorf("policy check: %w", err)
	}
	switch decision {
	case policy.Allowed:
		return nil
	case policy.NeedsInteraction:
		return &pkgerrors.AuthorizationError{Action: detail.Action, Reason: "interactive authentication required"}
	default:
		return &pkgerrors.AuthorizationError{Action: detail.Action}
	}
}

// RunJob authorizes, creates and spawns a job of typ against target, then
// waits for either detachment (Update jobs only, once the worker signals
// readiness) or full completion. Every job-creating RMI operation (List,
// Describe, CheckNew, Update, Vacuum) goes through it; the read-only
// GetVersion and GetAppStream queries run the worker directly instead.
func (m *Manager) RunJob(ctx context.Context, caller policy.Caller, typ domain.Type, target *domain.Target, version string, offline bool, toVersion bool) (job *domain.Job, detached bool, outcome *domain.Outcome, err error) {
	detail := policyDetail(typ.PolicyAction(toVersion), target, version, offline)
	if err = m.authorize(ctx, caller, detail); err != nil {
		return nil, false, nil, err
	}

	job, err = m.createAndSpawn(typ, target, version, offline)
	if err != nil {
		return nil, false, nil, err
	}

	det, o := awaitOutcome(job)
	if det {
		return job, true, nil, nil
	}
	return job, false, &o, nil
}

// awaitOutcome blocks until job either detaches (signals readiness, for
// detach-capable types) or completes. It runs on the caller's own
// goroutine, reading only the channels Job exposes for exactly this
// purpose, so it never needs the state loop.
func awaitOutcome(job *domain.Job) (bool, domain.Outcome) {
	if job.Type.SupportsDetach() {
		select {
		case <-job.Ready():
			return true, domain.Outcome{}
		case o := <-job.Done():
			return false, o
		}
	}
	return false, <-job.Done()
}

// createAndSpawn allocates a job id, registers the job, marks its target
// busy if the type mutates, and spawns the worker - all as one atomic
// step on the state loop, so a concurrent caller can never observe a
// registered-but-unspawned job or a target marked busy without one.
func (m *Manager) createAndSpawn(typ domain.Type, target *domain.Target, version string, offline bool) (*domain.Job, error) {
	var job *domain.Job
	var err error
	m.do(func() {
		if typ.IsMutating() && target.IsBusy() {
			err = &pkgerrors.BusyError{TargetID: target.StableID()}
			return
		}

		id := m.ids.Next()
		j := domain.NewJob(id, typ, target, version, offline)
		m.jobs[id] = j
		if typ.IsMutating() {
			target.SetBusy(true)
		}

		if serr := m.spawner.Spawn(j); serr != nil {
			delete(m.jobs, id)
			if typ.IsMutating() {
				target.SetBusy(false)
			}
			err = serr
			return
		}

		if m.idleTimer != nil {
			m.idleTimer.Stop()
		}
		job = j
		go m.waitChild(j)
	})
	return job, err
}

// waitChild blocks on the child's exit and reports it back onto the state
// loop. This is the one piece of per-job state that genuinely lives on
// its own goroutine, since os/exec offers no other way to learn that a
// process has exited; everything it learns is handed to handleChildExit,
// which runs serialized with everything else.
func (m *Manager) waitChild(job *domain.Job) {
	waitErr := job.Cmd.Wait()
	m.cmds <- func() {
		m.handleChildExit(job, waitErr)
	}
}

// handleChildExit runs the exit sequence for one job: classify how the
// worker ended, read and parse its captured stdout on success, release
// its target, deliver the outcome, publish the removal signal, and drop
// it from the registry.
func (m *Manager) handleChildExit(job *domain.Job, waitErr error) {
	log := m.log.WithFields("jobID", job.ID, "type", job.Type)

	outcome := m.classifyExit(job, waitErr)

	if job.StdoutFile != nil {
		job.StdoutFile.Close()
	}

	if job.Type.IsMutating() {
		job.Target.SetBusy(false)
	}

	if outcome.Err != nil {
		log.Warn("job failed", "error", outcome.Err)
	} else {
		log.Debug("job completed")
	}

	job.FireDone(outcome)

	errno := job.Errno
	if we, ok := outcome.Err.(*pkgerrors.WorkerExitError); ok {
		errno = we.Errno
	}
	m.bus.Publish(events.Event{
		Kind:       events.JobRemoved,
		JobID:      job.ID,
		ObjectPath: job.ObjectPath(),
		Version:    job.Version,
		Errno:      errno,
	})

	delete(m.jobs, job.ID)
	m.checkIdle()
}

// classifyExit turns the raw wait error and captured stdout into the
// Outcome this job's Done() channel will deliver.
func (m *Manager) classifyExit(job *domain.Job, waitErr error) domain.Outcome {
	if waitErr != nil {
		if exitErr, ok := waitErr.(interface{ ExitCode() int }); ok {
			if status, ok := job.Cmd.ProcessState.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				return domain.Outcome{Err: &pkgerrors.WorkerSignalledError{Signal: status.Signal().String()}}
			}
			return domain.Outcome{Err: &pkgerrors.WorkerExitError{ExitCode: exitErr.ExitCode(), Errno: job.Errno}}
		}
		return domain.Outcome{Err: &pkgerrors.WorkerProtocolError{Operation: string(job.Type), Detail: waitErr.Error()}}
	}

	doc, err := readJobDocument(job)
	if err != nil {
		return domain.Outcome{Err: &pkgerrors.WorkerProtocolError{Operation: string(job.Type), Detail: err.Error()}}
	}
	return completeOutcome(job, doc)
}

// checkIdle flushes the target registry and (re)arms the quiescence timer
// whenever the job map has just become empty. It runs only from inside a
// closure already serialized on the state loop.
func (m *Manager) checkIdle() {
	if len(m.jobs) != 0 {
		return
	}

	m.registry.Flush()

	if m.idleTimer != nil {
		m.idleTimer.Stop()
	}
	m.idleTimer = time.AfterFunc(m.cfg.Runtime.QuiescenceTimeout, func() {
		m.cmds <- func() {
			if len(m.jobs) == 0 && !m.idleFired {
				m.idleFired = true
				close(m.idleCh)
			}
		}
	})
}

// HandleNotify applies one parsed notify-socket datagram to the job whose
// worker sent it, looked up by pid. It runs atomically on the state loop
// so the lookup and the mutation it drives can never straddle a job's
// completion. Fields are applied in the fixed order the reference
// protocol documents: version, then progress, then errno, then readiness.
func (m *Manager) HandleNotify(pid int, msg domain.NotifyMessage) {
	m.cmds <- func() {
		var job *domain.Job
		for _, j := range m.jobs {
			if j.PID == pid {
				job = j
				break
			}
		}
		if job == nil {
			return
		}

		if msg.HasVersion {
			job.Version = msg.Version
		}
		if msg.HasProgress {
			job.Progress = msg.Progress
		}
		if msg.HasErrno {
			job.Errno = msg.Errno
		}
		if msg.Ready {
			job.FireReady()
		}

		m.bus.Publish(events.Event{
			Kind:       events.PropertiesChanged,
			JobID:      job.ID,
			ObjectPath: job.ObjectPath(),
			Version:    job.Version,
			Progress:   job.Progress,
			Errno:      job.Errno,
		})
	}
}

// Cancel requests cancellation of a running job. The first three calls
// against a given job send SIGTERM; the fourth and every call after that
// send SIGKILL, matching the reference daemon's escalation behavior for a
// caller that keeps cancelling a worker that won't die.
func (m *Manager) Cancel(ctx context.Context, caller policy.Caller, jobID int64) error {
	job, err := m.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	detail := policyDetail(job.Type.PolicyAction(false), job.Target, job.Version, job.Offline)
	if err := m.authorize(ctx, caller, detail); err != nil {
		return err
	}

	m.do(func() {
		j, ok := m.jobs[jobID]
		if !ok {
			err = pkgerrors.ErrNoSuchJob
			return
		}
		j.CancelCount++
		sig := syscall.SIGTERM
		if j.CancelCount > 3 {
			sig = syscall.SIGKILL
		}
		if j.Cmd != nil && j.Cmd.Process != nil {
			_ = j.Cmd.Process.Signal(sig)
		}
	})
	return err
}

// GetVersion queries target's currently installed version directly,
// bypassing the job machinery: this is a read-only property lookup, not a
// long-running operation, so it runs the worker synchronously instead of
// through RunJob (see §4.4 / SPEC_FULL.md Supplemented Features).
func (m *Manager) GetVersion(ctx context.Context, target *domain.Target) (string, error) {
	doc, err := worker.RunQuery(m.cfg, target, false, "list", "")
	if err != nil {
		return "", err
	}
	v, _ := doc["current"].(string)
	return v, nil
}

// GetAppStream queries the AppStream metadata URLs advertised for
// target.
func (m *Manager) GetAppStream(ctx context.Context, target *domain.Target) ([]string, error) {
	doc, err := worker.RunQuery(m.cfg, target, false, "appstream", "")
	if err != nil {
		return nil, err
	}
	raw, _ := doc["appstream_urls"].([]interface{})
	urls := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			urls = append(urls, s)
		}
	}
	return urls, nil
}
