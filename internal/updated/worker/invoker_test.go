package worker

import (
	"io"
	"os"
	"testing"

	"github.com/sysupdate-systems/updated/internal/updated/domain"
	"github.com/sysupdate-systems/updated/pkg/config"
)

func writeExecutable(t *testing.T, path, script string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestInvokerSpawnCapturesStdoutIntoAnUnlinkedFile(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Worker.BinaryPath = fakeBinary(t, "#!/bin/sh\necho '{\"versions\":[\"1.0\"]}'\n")
	cfg.Runtime.Dir = t.TempDir()

	inv := NewInvoker(&cfg)
	job := domain.NewJob(1, domain.TypeList, domain.NewHostTarget("/"), "", false)

	if err := inv.Spawn(job); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer job.StdoutFile.Close()

	if job.PID == 0 {
		t.Error("expected a nonzero PID after spawn")
	}

	if err := job.Cmd.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if _, err := job.StdoutFile.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}
	data, err := io.ReadAll(job.StdoutFile)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "{\"versions\":[\"1.0\"]}\n" {
		t.Errorf("captured stdout = %q", data)
	}

	// The file is unlinked: its name must not resolve on disk even though
	// the handle itself is still readable.
	if _, err := os.Stat(job.StdoutFile.Name()); !os.IsNotExist(err) {
		t.Errorf("expected the stdout capture file to be unlinked, stat err = %v", err)
	}
}

func TestInvokerSpawnSetsNotifySocketEnv(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Worker.BinaryPath = fakeBinary(t, "#!/bin/sh\nenv | grep ^NOTIFY_SOCKET=\n")
	cfg.Runtime.Dir = t.TempDir()

	inv := NewInvoker(&cfg)
	job := domain.NewJob(2, domain.TypeList, domain.NewHostTarget("/"), "", false)

	if err := inv.Spawn(job); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer job.StdoutFile.Close()

	if err := job.Cmd.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if _, err := job.StdoutFile.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}
	data, _ := io.ReadAll(job.StdoutFile)
	want := "NOTIFY_SOCKET=" + cfg.NotifySocketPath() + "\n"
	if string(data) != want {
		t.Errorf("env output = %q, want %q", data, want)
	}
}
