package bus

import (
	"net"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/sysupdate-systems/updated/internal/updated/events"
	"github.com/sysupdate-systems/updated/internal/updated/jobmanager"
	"github.com/sysupdate-systems/updated/pkg/config"
	"github.com/sysupdate-systems/updated/pkg/logger"
)

// NewGRPCServer builds the daemon's gRPC server with the connection limits
// and keepalive policy the teacher's own Bus Surface bootstrap applies,
// and registers the three hand-written service descriptors against it.
func NewGRPCServer(cfg *config.Config, mgr *jobmanager.Manager, bus *events.Bus) *grpc.Server {
	srv := grpc.NewServer(
		grpc.MaxRecvMsgSize(cfg.GRPC.MaxMessageBytes),
		grpc.MaxSendMsgSize(cfg.GRPC.MaxMessageBytes),
		grpc.MaxConcurrentStreams(cfg.GRPC.MaxConcurrentStreams),
		grpc.ConnectionTimeout(cfg.GRPC.ConnectionTimeout),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.GRPC.KeepaliveInterval,
			Timeout: cfg.GRPC.KeepaliveTimeout,
		}),
	)

	server := NewServer(mgr, bus)
	srv.RegisterService(&ManagerServiceDesc, server)
	srv.RegisterService(&TargetServiceDesc, server)
	srv.RegisterService(&JobServiceDesc, server)
	return srv
}

// Listen binds the Unix domain socket the Bus Surface is served over,
// removing any stale socket file left behind by a previous run.
func Listen(cfg *config.Config) (net.Listener, error) {
	path := cfg.GRPC.SocketPath
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return net.Listen("unix", path)
}

// Serve runs srv against lis in the background, logging (rather than
// crashing the daemon on) a listener failure, matching the teacher's own
// background-goroutine gRPC bootstrap.
func Serve(srv *grpc.Server, lis net.Listener, log *logger.Logger) {
	go func() {
		if err := srv.Serve(lis); err != nil {
			log.Error("bus surface listener exited", "error", err)
		}
	}()
}
