package jobmanager

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/sysupdate-systems/updated/internal/updated/discovery"
	"github.com/sysupdate-systems/updated/internal/updated/domain"
	"github.com/sysupdate-systems/updated/internal/updated/events"
	"github.com/sysupdate-systems/updated/internal/updated/policy"
	"github.com/sysupdate-systems/updated/pkg/config"
)

// fakeSpawner runs an ordinary shell command in place of the real worker
// binary, capturing its stdout into an anonymous file exactly like
// worker.Invoker does, so Manager's child-exit and stdout-parsing paths run
// unmodified against a process the test controls.
type fakeSpawner struct {
	script   string
	spawnErr error
}

func (f *fakeSpawner) Spawn(job *domain.Job) error {
	if f.spawnErr != nil {
		return f.spawnErr
	}
	tmp, err := os.CreateTemp("", "jobmanager-test-stdout-*")
	if err != nil {
		return err
	}
	cmd := exec.Command("sh", "-c", f.script)
	cmd.Stdout = tmp
	if err := cmd.Start(); err != nil {
		tmp.Close()
		return err
	}
	job.Cmd = cmd
	job.PID = cmd.Process.Pid
	job.StdoutFile = tmp
	return nil
}

func testManager(t *testing.T, spawner Spawner) (*Manager, context.Context) {
	t.Helper()
	cfg := config.DefaultConfig
	m := New(&cfg, spawner, policy.AllowAllChecker{}, discovery.NewRegistry(nil), events.NewBus())

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	t.Cleanup(cancel)
	return m, ctx
}

func TestRunJobListReturnsParsedDocument(t *testing.T) {
	m, ctx := testManager(t, &fakeSpawner{script: `echo '{"all":["1.0","2.0"]}'`})
	target := domain.NewHostTarget("/")

	job, detached, outcome, err := m.RunJob(ctx, policy.Caller{}, domain.TypeList, target, "", false, false)
	if err != nil {
		t.Fatalf("RunJob: %v", err)
	}
	if detached {
		t.Fatal("list jobs never detach")
	}
	if outcome.Err != nil {
		t.Fatalf("unexpected outcome error: %v", outcome.Err)
	}
	if got := listVersions(outcome.Doc); len(got) != 2 {
		t.Errorf("listVersions = %v", got)
	}
	if job.Type != domain.TypeList {
		t.Errorf("job.Type = %v", job.Type)
	}
}

func TestRunJobMutatingTypeMarksTargetBusyThenFreesIt(t *testing.T) {
	m, ctx := testManager(t, &fakeSpawner{script: `echo '{"removed":1}'`})
	target := domain.NewHostTarget("/")

	_, _, outcome, err := m.RunJob(ctx, policy.Caller{}, domain.TypeVacuum, target, "", false, false)
	if err != nil {
		t.Fatalf("RunJob: %v", err)
	}
	if outcome.Err != nil {
		t.Fatalf("unexpected outcome error: %v", outcome.Err)
	}
	if target.IsBusy() {
		t.Error("target should no longer be busy once the job has completed")
	}
}

func TestRunJobRejectsConcurrentMutatingJobs(t *testing.T) {
	m, ctx := testManager(t, &fakeSpawner{script: `sleep 2`})
	target := domain.NewHostTarget("/")

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_, _, _, _ = m.RunJob(ctx, policy.Caller{}, domain.TypeVacuum, target, "", false, false)
		close(done)
	}()

	// Poll until the first job has actually marked the target busy before
	// firing the second request, to avoid a race against createAndSpawn.
	for i := 0; i < 200; i++ {
		if target.IsBusy() {
			close(started)
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	<-started

	_, _, _, err := m.RunJob(ctx, policy.Caller{}, domain.TypeUpdate, target, "", false, false)
	if err == nil {
		t.Fatal("expected a busy error for a concurrent mutating job")
	}

	<-done
}

func TestRunJobUpdateDetachesOnReady(t *testing.T) {
	// The worker never exits on its own during the test; detach must fire
	// purely from the notify-socket readiness signal.
	m, ctx := testManager(t, &fakeSpawner{script: `sleep 5`})
	target := domain.NewHostTarget("/")

	result := make(chan error, 1)
	var job *domain.Job
	go func() {
		var err error
		var j *domain.Job
		var detached bool
		j, detached, _, err = m.RunJob(ctx, policy.Caller{}, domain.TypeUpdate, target, "", false, true)
		job = j
		if err == nil && !detached {
			err = errDidNotDetach
		}
		result <- err
	}()

	for i := 0; i < 200 && job == nil; i++ {
		time.Sleep(5 * time.Millisecond)
		m.ListJobs(ctx) // forces a round trip through the state loop
		jobs := m.ListJobs(ctx)
		if len(jobs) > 0 {
			job = jobs[0]
		}
	}
	if job == nil {
		t.Fatal("job was never registered")
	}

	m.HandleNotify(job.PID, domain.NotifyMessage{Ready: true})

	if err := <-result; err != nil {
		t.Fatalf("RunJob: %v", err)
	}

	if job.Cmd.Process != nil {
		_ = job.Cmd.Process.Kill()
	}
}

var errDidNotDetach = errNamed("expected update job to detach on readiness")

type errNamed string

func (e errNamed) Error() string { return string(e) }

func TestCancelEscalatesFromSigtermToSigkill(t *testing.T) {
	// The worker ignores SIGTERM, so only the fourth Cancel's SIGKILL ends it.
	m, ctx := testManager(t, &fakeSpawner{script: `trap '' TERM; exec sleep 30`})
	target := domain.NewHostTarget("/")

	var job *domain.Job
	go func() { _, _, _, _ = m.RunJob(ctx, policy.Caller{}, domain.TypeUpdate, target, "", false, false) }()

	for i := 0; i < 200; i++ {
		jobs := m.ListJobs(ctx)
		if len(jobs) > 0 {
			job = jobs[0]
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if job == nil {
		t.Fatal("job was never registered")
	}
	// Give the shell time to install its trap before the first SIGTERM.
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 4; i++ {
		if err := m.Cancel(ctx, policy.Caller{}, job.ID); err != nil {
			t.Fatalf("Cancel call %d: %v", i+1, err)
		}
	}

	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not terminate after escalating to SIGKILL")
	}
}
