package bus

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/sysupdate-systems/updated/internal/updated/domain"
	"github.com/sysupdate-systems/updated/internal/updated/events"
	"github.com/sysupdate-systems/updated/internal/updated/jobmanager"
	"github.com/sysupdate-systems/updated/internal/updated/policy"
	pkgerrors "github.com/sysupdate-systems/updated/pkg/errors"
	"github.com/sysupdate-systems/updated/pkg/logger"
)

// Server implements ManagerServer, TargetServer and JobServer by
// delegating to a jobmanager.Manager. It is the adapted equivalent of the
// teacher's gRPC service layer: per-call logging and caller extraction
// follow the same shape, narrowed here to a policy.Caller instead of a
// fixed mTLS role, since the actual allow/deny decision belongs to
// policy.Checker rather than a hardcoded operation matrix.
type Server struct {
	mgr *jobmanager.Manager
	bus *events.Bus
	log *logger.Logger
}

// NewServer returns a Server delegating to mgr, publishing signals read
// from bus.
func NewServer(mgr *jobmanager.Manager, bus *events.Bus) *Server {
	return &Server{mgr: mgr, bus: bus, log: logger.New().WithField("component", "bus-server")}
}

// callerFromContext extracts a policy.Caller identity from the gRPC peer
// context, adapted from the teacher's certificate-subject extraction:
// where the teacher reads a role out of PeerCertificates[0].Subject, this
// reads a bus-name-equivalent identity to hand to policy.Checker, which
// makes its own allow/deny decision rather than consulting a role table
// here.
func callerFromContext(ctx context.Context) policy.Caller {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return policy.Caller{BusName: "unknown"}
	}
	return policy.Caller{BusName: p.Addr.String()}
}

// toStatus maps the daemon's typed error taxonomy onto gRPC status codes
// at the RMI boundary.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case pkgerrors.IsBusy(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case pkgerrors.IsAuthorization(err):
		return status.Error(codes.PermissionDenied, err.Error())
	case pkgerrors.IsInvalidArgs(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, pkgerrors.ErrNoSuchTarget), errors.Is(err, pkgerrors.ErrNoSuchJob):
		return status.Error(codes.NotFound, err.Error())
	case pkgerrors.IsNoUpdateCandidate(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case pkgerrors.IsWorkerFailure(err):
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func toTargetInfo(t *domain.Target) TargetInfo {
	return TargetInfo{
		StableId:   t.StableID(),
		Class:      string(t.Class),
		Name:       t.Name,
		Path:       t.Path,
		ObjectPath: "/org/freedesktop/sysupdate1/target/" + t.ObjectPathSegment(),
	}
}

func toJobInfo(j *domain.Job) JobInfo {
	return JobInfo{
		Id:          j.ID,
		ObjectPath:  j.ObjectPath(),
		Type:        string(j.Type),
		TargetId:    j.Target.StableID(),
		Offline:     j.Offline,
		Version:     j.Version,
		Progress:    j.Progress,
		Errno:       j.Errno,
		CancelCount: j.CancelCount,
	}
}

func (s *Server) logCall(name string, err error) {
	if err != nil {
		s.log.Warn("rmi call failed", "method", name, "error", err)
		return
	}
	s.log.Info("rmi call", "method", name)
}

// --- ManagerServer ---

func (s *Server) ListTargets(ctx context.Context, _ *ListTargetsRequest) (*ListTargetsResponse, error) {
	targets, err := s.mgr.ListTargets(ctx)
	s.logCall("ListTargets", err)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]TargetInfo, 0, len(targets))
	for _, t := range targets {
		out = append(out, toTargetInfo(t))
	}
	return &ListTargetsResponse{Targets: out}, nil
}

func (s *Server) ListJobs(ctx context.Context, _ *ListJobsRequest) (*ListJobsResponse, error) {
	jobs := s.mgr.ListJobs(ctx)
	s.logCall("ListJobs", nil)
	out := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobInfo(j))
	}
	return &ListJobsResponse{Jobs: out}, nil
}

func (s *Server) ListAppStream(ctx context.Context, _ *ListAppStreamRequest) (*ListAppStreamResponse, error) {
	host, err := s.mgr.ResolveTarget(ctx, "host")
	if err != nil {
		s.logCall("ListAppStream", err)
		return nil, toStatus(err)
	}
	urls, err := s.mgr.GetAppStream(ctx, host)
	s.logCall("ListAppStream", err)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListAppStreamResponse{Urls: urls}, nil
}

func (s *Server) WatchEvents(_ *WatchEventsRequest, stream ManagerWatchEventsServer) error {
	ch, cancel := s.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.Send(&Event{
				Kind:       string(ev.Kind),
				JobId:      ev.JobID,
				ObjectPath: ev.ObjectPath,
				Version:    ev.Version,
				Progress:   ev.Progress,
				Errno:      ev.Errno,
			}); err != nil {
				return err
			}
		}
	}
}

// --- TargetServer ---

func (s *Server) GetTargetProperties(ctx context.Context, req *GetTargetPropertiesRequest) (*GetTargetPropertiesResponse, error) {
	t, err := s.mgr.ResolveTarget(ctx, req.TargetId)
	s.logCall("Target.GetProperties", err)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetTargetPropertiesResponse{Target: toTargetInfo(t)}, nil
}

func (s *Server) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	t, err := s.mgr.ResolveTarget(ctx, req.TargetId)
	if err != nil {
		s.logCall("Target.List", err)
		return nil, toStatus(err)
	}
	_, _, outcome, err := s.mgr.RunJob(ctx, callerFromContext(ctx), domain.TypeList, t, "", req.Offline, false)
	s.logCall("Target.List", err)
	if err != nil {
		return nil, toStatus(err)
	}
	if outcome.Err != nil {
		return nil, toStatus(outcome.Err)
	}
	return &ListResponse{Versions: jobmanager.ListVersions(outcome.Doc)}, nil
}

func (s *Server) Describe(ctx context.Context, req *DescribeRequest) (*DescribeResponse, error) {
	t, err := s.mgr.ResolveTarget(ctx, req.TargetId)
	if err != nil {
		s.logCall("Target.Describe", err)
		return nil, toStatus(err)
	}
	if req.Version == "" {
		err = &pkgerrors.InvalidArgsError{Detail: "version must not be empty"}
		s.logCall("Target.Describe", err)
		return nil, toStatus(err)
	}
	_, _, outcome, err := s.mgr.RunJob(ctx, callerFromContext(ctx), domain.TypeDescribe, t, req.Version, req.Offline, true)
	s.logCall("Target.Describe", err)
	if err != nil {
		return nil, toStatus(err)
	}
	if outcome.Err != nil {
		return nil, toStatus(outcome.Err)
	}
	js, err := jobmanager.DescribeJSON(outcome.Doc)
	if err != nil {
		return nil, toStatus(&pkgerrors.WorkerProtocolError{Operation: "describe", Detail: err.Error()})
	}
	return &DescribeResponse{Json: js}, nil
}

func (s *Server) CheckNew(ctx context.Context, req *CheckNewRequest) (*CheckNewResponse, error) {
	t, err := s.mgr.ResolveTarget(ctx, req.TargetId)
	if err != nil {
		s.logCall("Target.CheckNew", err)
		return nil, toStatus(err)
	}
	_, _, outcome, err := s.mgr.RunJob(ctx, callerFromContext(ctx), domain.TypeCheckNew, t, "", false, false)
	s.logCall("Target.CheckNew", err)
	if err != nil {
		return nil, toStatus(err)
	}
	if outcome.Err != nil {
		return nil, toStatus(outcome.Err)
	}
	return &CheckNewResponse{Available: jobmanager.CheckNewAvailable(outcome.Doc)}, nil
}

func (s *Server) Update(ctx context.Context, req *UpdateRequest) (*UpdateResponse, error) {
	t, err := s.mgr.ResolveTarget(ctx, req.TargetId)
	if err != nil {
		s.logCall("Target.Update", err)
		return nil, toStatus(err)
	}
	job, detached, outcome, err := s.mgr.RunJob(ctx, callerFromContext(ctx), domain.TypeUpdate, t, req.Version, false, req.Version != "")
	s.logCall("Target.Update", err)
	if err != nil {
		return nil, toStatus(err)
	}
	if detached {
		return &UpdateResponse{Version: req.Version, JobId: job.ID, ObjectPath: job.ObjectPath()}, nil
	}
	if outcome.Err != nil {
		return nil, toStatus(outcome.Err)
	}
	return &UpdateResponse{Version: job.Version, JobId: job.ID, ObjectPath: job.ObjectPath()}, nil
}

func (s *Server) Vacuum(ctx context.Context, req *VacuumRequest) (*VacuumResponse, error) {
	t, err := s.mgr.ResolveTarget(ctx, req.TargetId)
	if err != nil {
		s.logCall("Target.Vacuum", err)
		return nil, toStatus(err)
	}
	_, _, outcome, err := s.mgr.RunJob(ctx, callerFromContext(ctx), domain.TypeVacuum, t, "", false, false)
	s.logCall("Target.Vacuum", err)
	if err != nil {
		return nil, toStatus(err)
	}
	if outcome.Err != nil {
		return nil, toStatus(outcome.Err)
	}
	return &VacuumResponse{Removed: jobmanager.VacuumRemoved(outcome.Doc)}, nil
}

func (s *Server) GetAppStream(ctx context.Context, req *GetAppStreamRequest) (*GetAppStreamResponse, error) {
	t, err := s.mgr.ResolveTarget(ctx, req.TargetId)
	if err != nil {
		s.logCall("Target.GetAppStream", err)
		return nil, toStatus(err)
	}
	urls, err := s.mgr.GetAppStream(ctx, t)
	s.logCall("Target.GetAppStream", err)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetAppStreamResponse{Urls: urls}, nil
}

func (s *Server) GetVersion(ctx context.Context, req *GetVersionRequest) (*GetVersionResponse, error) {
	t, err := s.mgr.ResolveTarget(ctx, req.TargetId)
	if err != nil {
		s.logCall("Target.GetVersion", err)
		return nil, toStatus(err)
	}
	v, err := s.mgr.GetVersion(ctx, t)
	s.logCall("Target.GetVersion", err)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetVersionResponse{Version: v}, nil
}

// --- JobServer ---

func (s *Server) GetJobProperties(ctx context.Context, req *GetJobPropertiesRequest) (*GetJobPropertiesResponse, error) {
	j, err := s.mgr.GetJob(ctx, req.JobId)
	s.logCall("Job.GetProperties", err)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetJobPropertiesResponse{Job: toJobInfo(j)}, nil
}

func (s *Server) Cancel(ctx context.Context, req *CancelRequest) (*CancelResponse, error) {
	err := s.mgr.Cancel(ctx, callerFromContext(ctx), req.JobId)
	s.logCall("Job.Cancel", err)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CancelResponse{}, nil
}
