package bus

import (
	"context"

	"google.golang.org/grpc"
)

// ManagerServer is the Manager-level RMI surface: the daemon-wide
// operations that aren't scoped to one target.
type ManagerServer interface {
	ListTargets(context.Context, *ListTargetsRequest) (*ListTargetsResponse, error)
	ListJobs(context.Context, *ListJobsRequest) (*ListJobsResponse, error)
	ListAppStream(context.Context, *ListAppStreamRequest) (*ListAppStreamResponse, error)
	WatchEvents(*WatchEventsRequest, ManagerWatchEventsServer) error
}

// ManagerWatchEventsServer is the server-streaming handle WatchEvents
// sends on, standing in for the generated stream type protoc-gen-go-grpc
// would otherwise produce.
type ManagerWatchEventsServer interface {
	Send(*Event) error
	grpc.ServerStream
}

type managerWatchEventsServer struct{ grpc.ServerStream }

func (s *managerWatchEventsServer) Send(e *Event) error { return s.ServerStream.SendMsg(e) }

func _Manager_ListTargets_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListTargetsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagerServer).ListTargets(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Manager/ListTargets"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ManagerServer).ListTargets(ctx, req.(*ListTargetsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Manager_ListJobs_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListJobsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagerServer).ListJobs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Manager/ListJobs"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ManagerServer).ListJobs(ctx, req.(*ListJobsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Manager_ListAppStream_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListAppStreamRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagerServer).ListAppStream(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Manager/ListAppStream"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ManagerServer).ListAppStream(ctx, req.(*ListAppStreamRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Manager_WatchEvents_Handler(srv interface{}, stream grpc.ServerStream) error {
	req := new(WatchEventsRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(ManagerServer).WatchEvents(req, &managerWatchEventsServer{stream})
}

// ManagerServiceDesc is the hand-written equivalent of what
// protoc-gen-go-grpc would generate for the Manager service.
var ManagerServiceDesc = grpc.ServiceDesc{
	ServiceName: "sysupdate.Manager",
	HandlerType: (*ManagerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListTargets", Handler: _Manager_ListTargets_Handler},
		{MethodName: "ListJobs", Handler: _Manager_ListJobs_Handler},
		{MethodName: "ListAppStream", Handler: _Manager_ListAppStream_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchEvents", Handler: _Manager_WatchEvents_Handler, ServerStreams: true},
	},
	Metadata: "sysupdate/manager.proto",
}

// TargetServer is the RMI surface scoped to one target.
type TargetServer interface {
	GetTargetProperties(context.Context, *GetTargetPropertiesRequest) (*GetTargetPropertiesResponse, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	Describe(context.Context, *DescribeRequest) (*DescribeResponse, error)
	CheckNew(context.Context, *CheckNewRequest) (*CheckNewResponse, error)
	Update(context.Context, *UpdateRequest) (*UpdateResponse, error)
	Vacuum(context.Context, *VacuumRequest) (*VacuumResponse, error)
	GetAppStream(context.Context, *GetAppStreamRequest) (*GetAppStreamResponse, error)
	GetVersion(context.Context, *GetVersionRequest) (*GetVersionResponse, error)
}

func _Target_GetProperties_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetTargetPropertiesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TargetServer).GetTargetProperties(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Target/GetProperties"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TargetServer).GetTargetProperties(ctx, req.(*GetTargetPropertiesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Target_List_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TargetServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Target/List"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TargetServer).List(ctx, req.(*ListRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Target_Describe_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DescribeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TargetServer).Describe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Target/Describe"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TargetServer).Describe(ctx, req.(*DescribeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Target_CheckNew_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CheckNewRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TargetServer).CheckNew(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Target/CheckNew"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TargetServer).CheckNew(ctx, req.(*CheckNewRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Target_Update_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TargetServer).Update(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Target/Update"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TargetServer).Update(ctx, req.(*UpdateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Target_Vacuum_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(VacuumRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TargetServer).Vacuum(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Target/Vacuum"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TargetServer).Vacuum(ctx, req.(*VacuumRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Target_GetAppStream_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetAppStreamRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TargetServer).GetAppStream(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Target/GetAppStream"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TargetServer).GetAppStream(ctx, req.(*GetAppStreamRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Target_GetVersion_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetVersionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TargetServer).GetVersion(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Target/GetVersion"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TargetServer).GetVersion(ctx, req.(*GetVersionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// TargetServiceDesc is the hand-written equivalent of what
// protoc-gen-go-grpc would generate for the Target service.
var TargetServiceDesc = grpc.ServiceDesc{
	ServiceName: "sysupdate.Target",
	HandlerType: (*TargetServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetProperties", Handler: _Target_GetProperties_Handler},
		{MethodName: "List", Handler: _Target_List_Handler},
		{MethodName: "Describe", Handler: _Target_Describe_Handler},
		{MethodName: "CheckNew", Handler: _Target_CheckNew_Handler},
		{MethodName: "Update", Handler: _Target_Update_Handler},
		{MethodName: "Vacuum", Handler: _Target_Vacuum_Handler},
		{MethodName: "GetAppStream", Handler: _Target_GetAppStream_Handler},
		{MethodName: "GetVersion", Handler: _Target_GetVersion_Handler},
	},
	Metadata: "sysupdate/target.proto",
}

// JobServer is the RMI surface scoped to one job.
type JobServer interface {
	GetJobProperties(context.Context, *GetJobPropertiesRequest) (*GetJobPropertiesResponse, error)
	Cancel(context.Context, *CancelRequest) (*CancelResponse, error)
}

func _Job_GetProperties_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetJobPropertiesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobServer).GetJobProperties(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Job/GetProperties"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(JobServer).GetJobProperties(ctx, req.(*GetJobPropertiesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Job_Cancel_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CancelRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobServer).Cancel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sysupdate.Job/Cancel"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(JobServer).Cancel(ctx, req.(*CancelRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// JobServiceDesc is the hand-written equivalent of what
// protoc-gen-go-grpc would generate for the Job service.
var JobServiceDesc = grpc.ServiceDesc{
	ServiceName: "sysupdate.Job",
	HandlerType: (*JobServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetProperties", Handler: _Job_GetProperties_Handler},
		{MethodName: "Cancel", Handler: _Job_Cancel_Handler},
	},
	Metadata: "sysupdate/job.proto",
}
