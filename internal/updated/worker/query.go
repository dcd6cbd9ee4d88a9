package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/sysupdate-systems/updated/internal/updated/domain"
	"github.com/sysupdate-systems/updated/pkg/config"
	"github.com/sysupdate-systems/updated/pkg/logger"
)

// RunQuery runs the worker synchronously for a short, read-only query: the
// discovery "components" probe, or a Target's GetVersion/GetAppStream RMI
// methods (see §4.4). It collects stdout through an ordinary pipe rather
// than the Invoker's anonymous seekable file, since the caller blocks on
// Wait and never needs to re-read after exit. It shares no state with
// Invoker or the job registry and therefore bypasses the notify channel
// entirely.
func RunQuery(cfg *config.Config, target *domain.Target, offline bool, verb string, version string) (map[string]interface{}, error) {
	log := logger.New().WithField("component", "worker-query")

	argv := buildArgv(cfg.Worker.BinaryPath, cfg.Worker.SkipVerify, target, offline, verb, version)

	cmd := exec.Command(argv[0], argv[1:]...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		log.Warn("synchronous worker query failed", "argv", argv, "error", err)
		return nil, fmt.Errorf("worker query %s: %w", verb, err)
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		log.Debug("synchronous worker query produced no output", "argv", argv)
		return map[string]interface{}{}, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("worker query %s: invalid JSON: %w", verb, err)
	}
	return doc, nil
}
