package bus

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sysupdate-systems/updated/internal/updated/domain"
	pkgerrors "github.com/sysupdate-systems/updated/pkg/errors"
)

func TestToStatusMapsTypedErrorsToCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"busy", &pkgerrors.BusyError{TargetID: "host"}, codes.FailedPrecondition},
		{"authorization", &pkgerrors.AuthorizationError{Action: "update"}, codes.PermissionDenied},
		{"invalid args", &pkgerrors.InvalidArgsError{Detail: "bad"}, codes.InvalidArgument},
		{"no such target", pkgerrors.ErrNoSuchTarget, codes.NotFound},
		{"no such job", pkgerrors.ErrNoSuchJob, codes.NotFound},
		{"no update candidate", &pkgerrors.NoUpdateCandidateError{}, codes.FailedPrecondition},
		{"worker exit", &pkgerrors.WorkerExitError{ExitCode: 1}, codes.Internal},
		{"unclassified", errors.New("boom"), codes.Internal},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := toStatus(c.err)
			if status.Code(got) != c.want {
				t.Errorf("toStatus(%v) code = %v, want %v", c.err, status.Code(got), c.want)
			}
		})
	}
}

func TestToStatusNilIsNil(t *testing.T) {
	if got := toStatus(nil); got != nil {
		t.Errorf("toStatus(nil) = %v, want nil", got)
	}
}

func TestToTargetInfoEscapesObjectPath(t *testing.T) {
	target := domain.NewComponentTarget("my-comp", "/usr/lib/sysupdate.my-comp.d")
	info := toTargetInfo(target)
	if info.StableId != "component:my-comp" {
		t.Errorf("StableId = %q", info.StableId)
	}
	if info.ObjectPath == "" {
		t.Error("expected a non-empty object path")
	}
}

func TestToJobInfoCarriesFields(t *testing.T) {
	job := domain.NewJob(9, domain.TypeUpdate, domain.NewHostTarget("/"), "3.0", true)
	job.Progress = 42
	info := toJobInfo(job)
	if info.Id != 9 || info.Version != "3.0" || info.Progress != 42 || !info.Offline {
		t.Errorf("toJobInfo = %+v", info)
	}
}
