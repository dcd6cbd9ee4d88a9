package worker

import (
	"path/filepath"
	"testing"

	"github.com/sysupdate-systems/updated/internal/updated/domain"
	"github.com/sysupdate-systems/updated/pkg/config"
)

func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-sysupdate")
	writeExecutable(t, path, script)
	return path
}

func TestRunQueryParsesJSONOutput(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Worker.BinaryPath = fakeBinary(t, "#!/bin/sh\necho '{\"current\":\"1.2.3\"}'\n")

	doc, err := RunQuery(&cfg, domain.NewHostTarget("/"), false, "list", "")
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if doc["current"] != "1.2.3" {
		t.Errorf("doc = %v", doc)
	}
}

func TestRunQueryEmptyOutputIsEmptyMapNotError(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Worker.BinaryPath = fakeBinary(t, "#!/bin/sh\nexit 0\n")

	doc, err := RunQuery(&cfg, nil, false, "components", "")
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("doc = %v, want empty", doc)
	}
}

func TestRunQueryPropagatesWorkerFailure(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Worker.BinaryPath = fakeBinary(t, "#!/bin/sh\nexit 1\n")

	if _, err := RunQuery(&cfg, nil, false, "components", ""); err == nil {
		t.Fatal("expected an error when the worker exits non-zero")
	}
}
