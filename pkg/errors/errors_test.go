package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsBusy(t *testing.T) {
	err := &BusyError{TargetID: "host"}
	if !IsBusy(err) {
		t.Error("expected IsBusy to recognize BusyError")
	}
	wrapped := fmt.Errorf("update: %w", err)
	if !IsBusy(wrapped) {
		t.Error("expected IsBusy to see through wrapping")
	}
	if IsBusy(errors.New("unrelated")) {
		t.Error("IsBusy should not match unrelated errors")
	}
}

func TestIsWorkerFailure(t *testing.T) {
	cases := []error{
		&WorkerSignalledError{Signal: "SIGKILL"},
		&WorkerExitError{ExitCode: 1},
		&WorkerProtocolError{Operation: "list", Detail: "missing key"},
	}
	for _, c := range cases {
		if !IsWorkerFailure(c) {
			t.Errorf("expected IsWorkerFailure(%v) to be true", c)
		}
	}
	if IsWorkerFailure(&BusyError{TargetID: "host"}) {
		t.Error("BusyError should not classify as a worker failure")
	}
}

func TestWorkerExitErrorPrefersErrno(t *testing.T) {
	err := &WorkerExitError{ExitCode: 7, Errno: 2}
	if err.Error() != "worker failed: errno 2" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestIsNoUpdateCandidate(t *testing.T) {
	if !IsNoUpdateCandidate(&NoUpdateCandidateError{}) {
		t.Error("expected IsNoUpdateCandidate to recognize the sentinel type")
	}
}
