package worker

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/sysupdate-systems/updated/internal/updated/domain"
	"github.com/sysupdate-systems/updated/pkg/config"
	"github.com/sysupdate-systems/updated/pkg/logger"
)

// Invoker spawns the worker for a Job and wires its stdout to an anonymous,
// seekable file so the daemon can re-read the final JSON document after
// the child has exited.
type Invoker struct {
	cfg *config.Config
	log *logger.Logger
}

// NewInvoker returns an Invoker bound to cfg's worker and runtime settings.
func NewInvoker(cfg *config.Config) *Invoker {
	return &Invoker{
		cfg: cfg,
		log: logger.New().WithField("component", "worker-invoker"),
	}
}

// Spawn starts job's worker. On success it populates job.Cmd, job.PID and
// job.StdoutFile; on failure it logs the cause and returns an error
// wrapping the underlying file or os/exec error for the caller to surface
// as a bus error.
func (inv *Invoker) Spawn(job *domain.Job) error {
	log := inv.log.WithFields("jobID", job.ID, "type", job.Type, "target", job.Target.StableID())

	stdout, err := anonymousFile()
	if err != nil {
		log.Error("failed to create stdout capture file", "error", err)
		return fmt.Errorf("worker spawn: %w", err)
	}

	argv := BuildJobArgv(inv.cfg.Worker.BinaryPath, inv.cfg.Worker.SkipVerify, job)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "NOTIFY_SOCKET="+inv.cfg.NotifySocketPath())

	// exec.Cmd with no ExtraFiles inherits only fds 0/1/2 in the child,
	// satisfying the "close everything above 2" requirement without
	// extra bookkeeping.

	if err := cmd.Start(); err != nil {
		stdout.Close()
		log.Error("failed to start worker", "error", err, "argv", argv)
		return fmt.Errorf("worker spawn: %w", err)
	}

	job.Cmd = cmd
	job.PID = cmd.Process.Pid
	job.StdoutFile = stdout
	log.Debug("worker spawned", "pid", job.PID, "argv", argv)
	return nil
}

// anonymousFile returns a temp file that has already been unlinked from
// the filesystem: it is readable and seekable for the lifetime of the
// returned handle but never visible as a directory entry, matching the
// "anonymous seekable memory file" the worker's stdout is captured into.
func anonymousFile() (*os.File, error) {
	f, err := os.CreateTemp("", "updated-worker-stdout-*")
	if err != nil {
		return nil, err
	}
	if err := os.Remove(f.Name()); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
