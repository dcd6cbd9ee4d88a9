package bus

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dial opens a connection to the Bus Surface over a Unix domain socket,
// configured to negotiate the package's JSON codec so it can talk to this
// daemon's hand-written services without a proto schema.
func Dial(ctx context.Context, socketPath string) (*grpc.ClientConn, error) {
	return grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodec{}.Name())),
	)
}

// Client is a typed wrapper over the three RMI services, used by
// cmd/updatectl so the control tool never constructs raw Invoke calls
// itself.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient wraps an already-dialed connection.
func NewClient(conn *grpc.ClientConn) *Client { return &Client{conn: conn} }

func (c *Client) ListTargets(ctx context.Context) (*ListTargetsResponse, error) {
	out := new(ListTargetsResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Manager/ListTargets", &ListTargetsRequest{}, out)
	return out, err
}

func (c *Client) ListJobs(ctx context.Context) (*ListJobsResponse, error) {
	out := new(ListJobsResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Manager/ListJobs", &ListJobsRequest{}, out)
	return out, err
}

func (c *Client) ListAppStream(ctx context.Context) (*ListAppStreamResponse, error) {
	out := new(ListAppStreamResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Manager/ListAppStream", &ListAppStreamRequest{}, out)
	return out, err
}

// WatchEvents opens the server-streaming RPC and returns a channel of
// decoded events; the channel closes when the stream ends or ctx is
// cancelled.
func (c *Client) WatchEvents(ctx context.Context) (<-chan *Event, error) {
	stream, err := c.conn.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    "WatchEvents",
		ServerStreams: true,
	}, "/sysupdate.Manager/WatchEvents")
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&WatchEventsRequest{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}

	events := make(chan *Event)
	go func() {
		defer close(events)
		for {
			ev := new(Event)
			if err := stream.RecvMsg(ev); err != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

func (c *Client) GetTargetProperties(ctx context.Context, targetID string) (*GetTargetPropertiesResponse, error) {
	out := new(GetTargetPropertiesResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Target/GetProperties", &GetTargetPropertiesRequest{TargetId: targetID}, out)
	return out, err
}

func (c *Client) List(ctx context.Context, targetID string, offline bool) (*ListResponse, error) {
	out := new(ListResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Target/List", &ListRequest{TargetId: targetID, Offline: offline}, out)
	return out, err
}

func (c *Client) Describe(ctx context.Context, targetID, version string, offline bool) (*DescribeResponse, error) {
	out := new(DescribeResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Target/Describe", &DescribeRequest{TargetId: targetID, Version: version, Offline: offline}, out)
	return out, err
}

func (c *Client) CheckNew(ctx context.Context, targetID string) (*CheckNewResponse, error) {
	out := new(CheckNewResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Target/CheckNew", &CheckNewRequest{TargetId: targetID}, out)
	return out, err
}

func (c *Client) Update(ctx context.Context, targetID, version string) (*UpdateResponse, error) {
	out := new(UpdateResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Target/Update", &UpdateRequest{TargetId: targetID, Version: version}, out)
	return out, err
}

func (c *Client) Vacuum(ctx context.Context, targetID string) (*VacuumResponse, error) {
	out := new(VacuumResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Target/Vacuum", &VacuumRequest{TargetId: targetID}, out)
	return out, err
}

func (c *Client) GetAppStream(ctx context.Context, targetID string) (*GetAppStreamResponse, error) {
	out := new(GetAppStreamResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Target/GetAppStream", &GetAppStreamRequest{TargetId: targetID}, out)
	return out, err
}

func (c *Client) GetVersion(ctx context.Context, targetID string) (*GetVersionResponse, error) {
	out := new(GetVersionResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Target/GetVersion", &GetVersionRequest{TargetId: targetID}, out)
	return out, err
}

func (c *Client) GetJobProperties(ctx context.Context, jobID int64) (*GetJobPropertiesResponse, error) {
	out := new(GetJobPropertiesResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Job/GetProperties", &GetJobPropertiesRequest{JobId: jobID}, out)
	return out, err
}

func (c *Client) Cancel(ctx context.Context, jobID int64) (*CancelResponse, error) {
	out := new(CancelResponse)
	err := c.conn.Invoke(ctx, "/sysupdate.Job/Cancel", &CancelRequest{JobId: jobID}, out)
	return out, err
}

func (c *Client) Close() error { return c.conn.Close() }
