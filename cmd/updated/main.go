//go:build linux

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sysupdate-systems/updated/internal/updated/bus"
	"github.com/sysupdate-systems/updated/internal/updated/discovery"
	"github.com/sysupdate-systems/updated/internal/updated/events"
	"github.com/sysupdate-systems/updated/internal/updated/eventloop"
	"github.com/sysupdate-systems/updated/internal/updated/jobmanager"
	"github.com/sysupdate-systems/updated/internal/updated/notify"
	"github.com/sysupdate-systems/updated/internal/updated/policy"
	"github.com/sysupdate-systems/updated/internal/updated/worker"
	"github.com/sysupdate-systems/updated/pkg/config"
	"github.com/sysupdate-systems/updated/pkg/logger"
	"github.com/sysupdate-systems/updated/pkg/version"
)

func main() {
	root := &cobra.Command{
		Use:   "updated",
		Short: "Privileged system-update coordination daemon",
		Long:  "updated serves the sysupdate Bus Surface: target discovery, update and vacuum jobs, and job watch signals.",
		RunE:  run,
	}
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version.GetShortVersion())
			return nil
		},
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, path, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger.SetLevel(level)
	log := logger.WithField("component", "main")

	if path != "" {
		log.Info("loaded configuration", "path", path)
	}
	log.Info("starting", "version", version.GetVersion(), "level", level)

	if err := os.MkdirAll(cfg.Runtime.Dir, 0o755); err != nil {
		return fmt.Errorf("creating runtime directory: %w", err)
	}

	evBus := events.NewBus()
	registry := discovery.NewRegistry(discovery.FSDiscoverer{})
	invoker := worker.NewInvoker(cfg)
	checker := policy.Checker(policy.AllowAllChecker{})
	if cfg.Bus.UseSystemBus {
		checker = &policy.ExternalChecker{}
	}

	mgr := jobmanager.New(cfg, invoker, checker, registry, evBus)

	receiver := notify.NewReceiver(cfg.NotifySocketPath(), mgr.HandleNotify)

	lis, err := bus.Listen(cfg)
	if err != nil {
		return fmt.Errorf("binding bus surface socket: %w", err)
	}
	grpcServer := bus.NewGRPCServer(cfg, mgr, evBus)
	bus.Serve(grpcServer, lis, log)
	defer grpcServer.GracefulStop()

	loop := eventloop.New(mgr, receiver)
	return loop.Run(context.Background())
}
