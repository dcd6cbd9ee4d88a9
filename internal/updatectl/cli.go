// Package updatectl implements the updatectl control CLI: a thin gRPC
// client over the Bus Surface, in the same spirit as the teacher's own
// rnx client - one cobra subcommand per RMI operation, a shared
// connection helper, and JSON or human-readable output depending on a
// global flag.
package updatectl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sysupdate-systems/updated/internal/updated/bus"
	"github.com/sysupdate-systems/updated/pkg/config"
)

var (
	socketPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "updatectl",
	Short: "Control client for the updated Bus Surface",
}

// Execute runs the CLI. main() just forwards to this.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", config.DefaultConfig.GRPC.SocketPath, "path to the Bus Surface socket")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a human-readable summary")

	rootCmd.AddCommand(newTargetsCmd())
	rootCmd.AddCommand(newJobsCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDescribeCmd())
	rootCmd.AddCommand(newCheckNewCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newVacuumCmd())
	rootCmd.AddCommand(newAppStreamCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newJobStatusCmd())
	rootCmd.AddCommand(newCancelCmd())
	rootCmd.AddCommand(newWatchCmd())
}

func newBusClient(ctx context.Context) (*bus.Client, error) {
	conn, err := bus.Dial(ctx, socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", socketPath, err)
	}
	return bus.NewClient(conn), nil
}

func callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List known targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx()
			defer cancel()
			c, err := newBusClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.ListTargets(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(resp)
			}
			for _, t := range resp.Targets {
				fmt.Printf("%-24s %-10s %s\n", t.StableId, t.Class, t.Path)
			}
			return nil
		},
	}
}

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List in-flight jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx()
			defer cancel()
			c, err := newBusClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.ListJobs(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(resp)
			}
			for _, j := range resp.Jobs {
				fmt.Printf("%-6d %-12s %-24s progress=%d%%\n", j.Id, j.Type, j.TargetId, j.Progress)
			}
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "list <target>",
		Short: "List available versions for a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx()
			defer cancel()
			c, err := newBusClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.List(ctx, args[0], offline)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(resp)
			}
			for _, v := range resp.Versions {
				fmt.Println(v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "do not contact the network")
	return cmd
}

func newDescribeCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "describe <target> <version>",
		Short: "Describe a specific version for a target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx()
			defer cancel()
			c, err := newBusClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Describe(ctx, args[0], args[1], offline)
			if err != nil {
				return err
			}
			fmt.Println(resp.Json)
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "do not contact the network")
	return cmd
}

func newCheckNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-new <target>",
		Short: "Check for a new version without installing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx()
			defer cancel()
			c, err := newBusClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.CheckNew(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(resp)
			}
			if resp.Available == "" {
				fmt.Println("no new version available")
				return nil
			}
			fmt.Println(resp.Available)
			return nil
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <target> [version]",
		Short: "Update a target, optionally to a specific version",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx()
			defer cancel()
			c, err := newBusClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			version := ""
			if len(args) == 2 {
				version = args[1]
			}
			resp, err := c.Update(ctx, args[0], version)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(resp)
			}
			fmt.Printf("job %d started: updating to %s\n", resp.JobId, resp.Version)
			return nil
		},
	}
}

func newVacuumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum <target>",
		Short: "Remove unused installed versions of a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx()
			defer cancel()
			c, err := newBusClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Vacuum(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(resp)
			}
			fmt.Printf("removed %d\n", resp.Removed)
			return nil
		},
	}
}

func newAppStreamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "appstream <target>",
		Short: "Print AppStream metadata URLs advertised for a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx()
			defer cancel()
			c, err := newBusClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.GetAppStream(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(resp)
			}
			for _, u := range resp.Urls {
				fmt.Println(u)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version <target>",
		Short: "Print a target's currently installed version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx()
			defer cancel()
			c, err := newBusClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.GetVersion(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(resp.Version)
			return nil
		},
	}
}

func newJobStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "job-status <id>",
		Short: "Print a job's current properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx()
			defer cancel()
			c, err := newBusClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			resp, err := c.GetJobProperties(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a running job (SIGTERM on the first three calls, SIGKILL after)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx()
			defer cancel()
			c, err := newBusClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			_, err = c.Cancel(ctx, id)
			return err
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream JobRemoved/PropertiesChanged events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			conn, err := bus.Dial(ctx, socketPath)
			if err != nil {
				return err
			}
			c := bus.NewClient(conn)
			defer c.Close()

			events, err := c.WatchEvents(ctx)
			if err != nil {
				return err
			}
			for ev := range events {
				if jsonOutput {
					if err := printJSON(ev); err != nil {
						return err
					}
					continue
				}
				fmt.Printf("%s job=%d progress=%d%%\n", ev.Kind, ev.JobId, ev.Progress)
			}
			return nil
		},
	}
}

func parseJobID(s string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(s, "%d", &id)
	if err != nil {
		return 0, fmt.Errorf("invalid job id %q: %w", s, err)
	}
	return id, nil
}
