// Package eventloop supervises the daemon's OS-level event sources -
// the notify-socket receiver, signal handling, and the jobmanager state
// loop itself - under one errgroup, and drives the idle-quiescence exit.
// It is the component boundary SPEC_FULL.md's concurrency model keeps in
// place of the reference daemon's literal single-threaded reactor: this
// package owns starting and stopping the sources, while jobmanager.Manager
// owns the state they feed.
package eventloop

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/sysupdate-systems/updated/internal/updated/jobmanager"
	"github.com/sysupdate-systems/updated/internal/updated/notify"
	"github.com/sysupdate-systems/updated/pkg/logger"
)

// Loop runs the daemon's supervised sources until one of them exits, a
// termination signal arrives, or the manager's idle-quiescence timer
// fires with no jobs outstanding.
type Loop struct {
	mgr      *jobmanager.Manager
	receiver *notify.Receiver
	log      *logger.Logger
}

// New returns a Loop wiring mgr's state loop and receiver's notify
// datagrams together.
func New(mgr *jobmanager.Manager, receiver *notify.Receiver) *Loop {
	return &Loop{
		mgr:      mgr,
		receiver: receiver,
		log:      logger.New().WithField("component", "eventloop"),
	}
}

// Run blocks until shutdown: either ctx is cancelled, SIGINT/SIGTERM
// arrives, one of the supervised sources returns an error, or the job
// registry has been empty for the configured quiescence timeout.
func (l *Loop) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.mgr.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return l.receiver.Run(gctx)
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return gctx.Err()
		case <-l.mgr.IdleCh():
			l.log.Info("quiescence timeout elapsed with no jobs outstanding, shutting down")
			cancel()
			return nil
		}
	})

	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		// A cancelled root context is an ordinary shutdown path, not a
		// failure worth propagating to the caller's exit code.
		return nil
	}
	return err
}
