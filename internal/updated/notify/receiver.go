// Package notify runs the daemon's notify-socket receiver: a single
// unixgram listener that every spawned worker reports progress to via
// NOTIFY_SOCKET, exactly like the sd_notify(3) protocol workers already
// speak. Datagrams are demultiplexed by the sender's credential-attached
// PID, matched against the job registry, and applied in the fixed
// key order the reference daemon documents: version, then progress, then
// errno, then readiness.
package notify

import (
	"context"

	"golang.org/x/sys/unix"

	"github.com/sysupdate-systems/updated/internal/updated/domain"
	"github.com/sysupdate-systems/updated/pkg/logger"
)

// Handler resolves a notify datagram's sender pid to its Job and applies
// the parsed message to it, atomically. The real implementation runs
// this on jobmanager.Manager's state-owning goroutine so a job can never
// finish between being looked up and being updated.
type Handler func(pid int, msg domain.NotifyMessage)

// Receiver listens on a unixgram socket with SO_PASSCRED enabled so every
// datagram arrives with the sending process's credentials attached,
// letting the daemon trust the reported pid without the worker needing to
// include it in the message body itself.
type Receiver struct {
	path    string
	handler Handler
	log     *logger.Logger

	fd int
}

// NewReceiver returns a Receiver bound to path, not yet listening.
func NewReceiver(path string, handler Handler) *Receiver {
	return &Receiver{
		path:    path,
		handler: handler,
		log:     logger.New().WithField("component", "notify-receiver"),
	}
}

// Run binds the socket and reads datagrams until ctx is cancelled. It is
// meant to run as one of the daemon's supervised event sources (see
// internal/updated/eventloop).
func (r *Receiver) Run(ctx context.Context) error {
	unix.Unlink(r.path)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_PASSCRED, 1); err != nil {
		return err
	}

	addr := &unix.SockaddrUnix{Name: r.path}
	if err := unix.Bind(fd, addr); err != nil {
		return err
	}
	defer unix.Unlink(r.path)

	r.fd = fd
	r.log.Info("notify receiver listening", "path", r.path)

	go func() {
		<-ctx.Done()
		// Shutdown, unlike Close, wakes a Recvmsg blocked on fd.
		unix.Shutdown(fd, unix.SHUT_RDWR)
	}()

	buf := make([]byte, 4096)
	oob := make([]byte, unix.CmsgSpace(unix.SizeofUcred))

	for {
		n, oobn, flags, _, err := unix.Recvmsg(fd, buf, oob, 0)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			r.log.Warn("notify receiver recvmsg failed", "error", err)
			return err
		}

		if flags&unix.MSG_TRUNC != 0 {
			r.log.Debug("notify datagram truncated, dropping")
			continue
		}

		r.handleDatagram(buf[:n], oob[:oobn])
	}
}

// handleDatagram runs the remainder of the five-step datagram handling
// sequence once Run has already dropped a truncated read: drop
// credential-less or non-positive-pid datagrams, resolve the sender's pid
// to a job, and apply the parsed message keys in order.
func (r *Receiver) handleDatagram(data, oob []byte) {
	if len(data) == 0 {
		return
	}

	cred, err := parseUcred(oob)
	if err != nil {
		r.log.Debug("notify datagram missing credentials", "error", err)
		return
	}
	if cred.Pid <= 0 {
		r.log.Debug("notify datagram has non-positive pid, dropping", "pid", cred.Pid)
		return
	}

	msg := domain.ParseNotifyMessage(data)
	r.handler(int(cred.Pid), msg)
}

// parseUcred extracts the SCM_CREDENTIALS ancillary message attached to a
// datagram received with SO_PASSCRED set.
func parseUcred(oob []byte) (*unix.Ucred, error) {
	messages, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		if m.Header.Level != unix.SOL_SOCKET || m.Header.Type != unix.SCM_CREDENTIALS {
			continue
		}
		return unix.ParseUnixCredentials(&m)
	}
	return nil, unixCredentialsMissingErr
}

var unixCredentialsMissingErr = &credentialsError{}

type credentialsError struct{}

func (*credentialsError) Error() string { return "no SCM_CREDENTIALS in ancillary data" }
