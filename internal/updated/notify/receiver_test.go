package notify

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sysupdate-systems/updated/internal/updated/domain"
)

type received struct {
	pid int
	msg domain.NotifyMessage
}

func TestReceiverDeliversParsedDatagramWithSenderPID(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "notify.sock")

	results := make(chan received, 1)
	r := NewReceiver(sockPath, func(pid int, msg domain.NotifyMessage) {
		results <- received{pid: pid, msg: msg}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- r.Run(ctx) }()

	// Give the receiver a moment to bind before a client dials in; Run logs
	// and starts looping immediately after Bind succeeds, so a short
	// retry loop on Dial is more robust than a fixed sleep.
	var conn net.Conn
	var err error
	for i := 0; i < 100; i++ {
		conn, err = net.Dial("unixgram", sockPath)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dialing notify socket: %v", err)
	}
	defer conn.Close()

	payload := "READY=1\nX_SYSUPDATE_VERSION=2.0\nX_SYSUPDATE_PROGRESS=50\n"
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("writing datagram: %v", err)
	}

	select {
	case got := <-results:
		if got.pid == 0 {
			t.Error("expected a nonzero sender pid from SCM_CREDENTIALS")
		}
		if !got.msg.Ready {
			t.Error("expected Ready to be true")
		}
		if got.msg.Version != "2.0" {
			t.Errorf("Version = %q, want 2.0", got.msg.Version)
		}
		if got.msg.Progress != 50 {
			t.Errorf("Progress = %d, want 50", got.msg.Progress)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the receiver to deliver the datagram")
	}

	cancel()
	select {
	case <-runErr:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestHandleDatagramIgnoresEmptyPayload(t *testing.T) {
	calls := 0
	r := NewReceiver("", func(pid int, msg domain.NotifyMessage) { calls++ })
	r.handleDatagram(nil, nil)
	if calls != 0 {
		t.Errorf("handler called %d times for an empty datagram, want 0", calls)
	}
}

func TestHandleDatagramIgnoresMissingCredentials(t *testing.T) {
	calls := 0
	r := NewReceiver("", func(pid int, msg domain.NotifyMessage) { calls++ })
	r.handleDatagram([]byte("READY=1\n"), nil)
	if calls != 0 {
		t.Errorf("handler called %d times without SCM_CREDENTIALS, want 0", calls)
	}
}

func TestHandleDatagramIgnoresNonPositivePID(t *testing.T) {
	calls := 0
	r := NewReceiver("", func(pid int, msg domain.NotifyMessage) { calls++ })
	oob := unix.UnixCredentials(&unix.Ucred{Pid: 0, Uid: 0, Gid: 0})
	r.handleDatagram([]byte("READY=1\n"), oob)
	if calls != 0 {
		t.Errorf("handler called %d times for a zero pid, want 0", calls)
	}
}
