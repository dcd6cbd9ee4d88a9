// Package config loads the daemon's configuration: mostly knobs that exist
// for testing (worker binary override, verification bypass) plus the
// runtime paths and quiescence timeout that govern the idle-shutdown gate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete daemon configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Runtime RuntimeConfig `yaml:"runtime" json:"runtime"`
	Worker  WorkerConfig  `yaml:"worker" json:"worker"`
	Bus     BusConfig     `yaml:"bus" json:"bus"`
	GRPC    GRPCConfig    `yaml:"grpc" json:"grpc"`
}

// GRPCConfig controls the Bus Surface's gRPC transport: the Unix domain
// socket it listens on and the connection limits applied to it, mirroring
// the teacher's own GRPC server configuration block.
type GRPCConfig struct {
	SocketPath           string        `yaml:"socket_path" json:"socket_path"`
	MaxMessageBytes      int           `yaml:"max_message_bytes" json:"max_message_bytes"`
	MaxConcurrentStreams uint32        `yaml:"max_concurrent_streams" json:"max_concurrent_streams"`
	ConnectionTimeout    time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
	KeepaliveInterval    time.Duration `yaml:"keepalive_interval" json:"keepalive_interval"`
	KeepaliveTimeout     time.Duration `yaml:"keepalive_timeout" json:"keepalive_timeout"`
}

// LoggingConfig controls the daemon's own log output.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// RuntimeConfig locates the runtime directory the notify socket is bound
// under, and governs the idle-shutdown gate.
type RuntimeConfig struct {
	Dir               string        `yaml:"dir" json:"dir"`
	NotifySocketName  string        `yaml:"notify_socket_name" json:"notify_socket_name"`
	QuiescenceTimeout time.Duration `yaml:"quiescence_timeout" json:"quiescence_timeout"`
}

// WorkerConfig points at the external worker binary and its test-only
// escape hatches.
type WorkerConfig struct {
	// BinaryPath overrides the worker executable name/path. Intended for
	// testing; defaults to the well-known name resolved via PATH.
	BinaryPath string `yaml:"binary_path" json:"binary_path"`
	// SkipVerify, when true, passes --verify=no to every invocation.
	// Intended for testing against unsigned fixtures.
	SkipVerify bool `yaml:"skip_verify" json:"skip_verify"`
	// StartTimeout is accepted in the configuration, but nothing in the
	// daemon reads it: a worker spawn is not bounded by a timeout.
	StartTimeout time.Duration `yaml:"start_timeout" json:"start_timeout"`
}

// BusConfig controls the exposed bus name and object tree root.
type BusConfig struct {
	Name         string `yaml:"name" json:"name"`
	ObjectRoot   string `yaml:"object_root" json:"object_root"`
	UseSystemBus bool   `yaml:"use_system_bus" json:"use_system_bus"`
}

// NotifySocketPath returns the absolute path the notify receiver binds.
func (c *Config) NotifySocketPath() string {
	return filepath.Join(c.Runtime.Dir, c.Runtime.NotifySocketName)
}

// DefaultConfig mirrors the compiled-in defaults of the reference worker
// toolchain: runtime state under /run, a conservative quiescence timeout,
// and no test overrides.
var DefaultConfig = Config{
	Logging: LoggingConfig{
		Level:  "INFO",
		Format: "text",
		Output: "stdout",
	},
	Runtime: RuntimeConfig{
		Dir:               "/run/systemd/sysupdate",
		NotifySocketName:  "notify",
		QuiescenceTimeout: 5 * time.Minute,
	},
	Worker: WorkerConfig{
		BinaryPath:   "systemd-sysupdate",
		SkipVerify:   false,
		StartTimeout: 10 * time.Second,
	},
	Bus: BusConfig{
		Name:         "org.freedesktop.sysupdate1",
		ObjectRoot:   "/org/freedesktop/sysupdate1",
		UseSystemBus: true,
	},
	GRPC: GRPCConfig{
		SocketPath:           "/run/systemd/sysupdate/bus.sock",
		MaxMessageBytes:      4 << 20,
		MaxConcurrentStreams: 64,
		ConnectionTimeout:    10 * time.Second,
		KeepaliveInterval:    30 * time.Second,
		KeepaliveTimeout:     10 * time.Second,
	},
}

// LoadConfig loads configuration from the first of these that exists:
// the path in the UPDATED_CONFIG environment variable, then
// /etc/sysupdate/updated.yaml. It always starts from DefaultConfig so a
// partial file only overrides the fields it sets, then layers a handful of
// environment variables meant for testing on top. It returns the path it
// loaded from ("" if none existed).
func LoadConfig() (*Config, string, error) {
	cfg := DefaultConfig

	path, err := loadFromFile(&cfg)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config file: %w", err)
	}

	if v := os.Getenv("UPDATED_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SYSTEMD_SYSUPDATE_PATH"); v != "" {
		cfg.Worker.BinaryPath = v
	}
	if v := os.Getenv("SYSTEMD_SYSUPDATE_SKIP_VERIFY"); v == "1" || v == "true" {
		cfg.Worker.SkipVerify = true
	}
	if v := os.Getenv("RUNTIME_DIRECTORY"); v != "" {
		cfg.Runtime.Dir = filepath.Join(v, "sysupdate")
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, path, nil
}

func loadFromFile(cfg *Config) (string, error) {
	candidates := []string{}
	if v := os.Getenv("UPDATED_CONFIG"); v != "" {
		candidates = append(candidates, v)
	}
	candidates = append(candidates, "/etc/sysupdate/updated.yaml")

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return "", fmt.Errorf("parsing %s: %w", path, err)
		}
		return path, nil
	}
	return "", nil
}

// Validate rejects configuration combinations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Runtime.Dir == "" {
		return fmt.Errorf("runtime.dir must not be empty")
	}
	if c.Runtime.NotifySocketName == "" {
		return fmt.Errorf("runtime.notify_socket_name must not be empty")
	}
	if c.Worker.BinaryPath == "" {
		return fmt.Errorf("worker.binary_path must not be empty")
	}
	if c.Bus.Name == "" || c.Bus.ObjectRoot == "" {
		return fmt.Errorf("bus.name and bus.object_root must not be empty")
	}
	if c.Runtime.QuiescenceTimeout <= 0 {
		return fmt.Errorf("runtime.quiescence_timeout must be positive")
	}
	if c.GRPC.SocketPath == "" {
		return fmt.Errorf("grpc.socket_path must not be empty")
	}
	if c.GRPC.MaxMessageBytes <= 0 {
		return fmt.Errorf("grpc.max_message_bytes must be positive")
	}
	return nil
}
