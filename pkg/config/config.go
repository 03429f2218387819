package config

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/awgman/awgman/pkg/clientconf"
	"github.com/awgman/awgman/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// API authentication
	API APIConfig `yaml:"api"`

	// Tunnel interface control
	Interface InterfaceConfig `yaml:"interface"`

	// Address pool
	Network NetworkConfig `yaml:"network"`

	// User store
	Store StoreConfig `yaml:"store"`

	// Client-facing tunnel parameters
	Tunnel TunnelConfig `yaml:"tunnel"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// APIConfig holds API authentication settings
type APIConfig struct {
	// Key is the X-API-Key shared secret. Empty disables authentication.
	Key string `yaml:"key"`
}

// InterfaceConfig holds tunnel interface control settings
type InterfaceConfig struct {
	// Name is the managed interface, e.g. awg0.
	Name string `yaml:"name"`
	// Tool is the control binary invoked for peer operations.
	Tool string `yaml:"tool"`
	// CommandTimeout bounds every tool invocation.
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// KeygenMode selects keypair generation: "native" or "cli".
	KeygenMode string `yaml:"keygen_mode"`
	// ResyncSchedule is a cron expression for periodic peer reconciliation.
	// Empty disables the job.
	ResyncSchedule string `yaml:"resync_schedule"`
}

// NetworkConfig holds the address pool settings
type NetworkConfig struct {
	Subnet  string `yaml:"subnet"`
	StartIP string `yaml:"start_ip"`
}

// StoreConfig holds user store settings
type StoreConfig struct {
	DataDir string `yaml:"data_dir"`
	// UsersFile defaults to <DataDir>/users.json when empty.
	UsersFile string `yaml:"users_file"`
	// WatchEnabled logs a warning when the store file changes on disk
	// outside the daemon.
	WatchEnabled bool `yaml:"watch_enabled"`
}

// TunnelConfig holds the server-side and obfuscation parameters rendered
// into every client configuration.
type TunnelConfig struct {
	ServerPublicKey string `yaml:"server_public_key"`
	ServerEndpoint  string `yaml:"server_endpoint"`
	ServerPort      int    `yaml:"server_port"`
	DNS             string `yaml:"dns"`

	Jc   int `yaml:"jc"`
	Jmin int `yaml:"jmin"`
	Jmax int `yaml:"jmax"`

	S1 int `yaml:"s1"`
	S2 int `yaml:"s2"`
	S3 int `yaml:"s3"`
	S4 int `yaml:"s4"`

	H1 string `yaml:"h1"`
	H2 string `yaml:"h2"`
	H3 string `yaml:"h3"`
	H4 string `yaml:"h4"`

	I1 string `yaml:"i1"`
	I2 string `yaml:"i2"`
	I3 string `yaml:"i3"`
	I4 string `yaml:"i4"`
	I5 string `yaml:"i5"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// Level parses the configured log level, defaulting to info.
func (o ObservabilityConfig) Level() observability.LogLevel {
	return parseLogLevel(o.LogLevel)
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Interface: InterfaceConfig{
			Name:           "awg0",
			Tool:           "awg",
			CommandTimeout: 10 * time.Second,
			KeygenMode:     "native",
		},
		Network: NetworkConfig{
			Subnet:  "10.8.0.0/24",
			StartIP: "10.8.0.2",
		},
		Store: StoreConfig{
			DataDir: "/etc/amneziawg",
		},
		Tunnel: TunnelConfig{
			ServerPort: 51820,
			DNS:        "1.1.1.1",
			Jc:         6,
			Jmin:       50,
			Jmax:       1000,
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			MetricsEnabled: true,
		},
	}
}

// LoadConfig loads configuration from the optional YAML file and the
// environment, and validates the result.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("AWG_CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	loadEnv(cfg)

	if cfg.Store.UsersFile == "" {
		cfg.Store.UsersFile = filepath.Join(cfg.Store.DataDir, "users.json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays the YAML file at path onto cfg.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays AWG_* environment variables onto cfg.
func loadEnv(cfg *Config) {
	setEnvString(&cfg.Server.Host, "AWG_HOST")
	setEnvString(&cfg.Server.Port, "AWG_PORT")
	setEnvDuration(&cfg.Server.ReadTimeout, "AWG_READ_TIMEOUT")
	setEnvDuration(&cfg.Server.WriteTimeout, "AWG_WRITE_TIMEOUT")
	setEnvDuration(&cfg.Server.IdleTimeout, "AWG_IDLE_TIMEOUT")
	setEnvDuration(&cfg.Server.ShutdownTimeout, "AWG_SHUTDOWN_TIMEOUT")
	setEnvInt64(&cfg.Server.MaxBodyBytes, "AWG_MAX_BODY_BYTES")

	setEnvString(&cfg.API.Key, "AWG_API_KEY")

	setEnvString(&cfg.Interface.Name, "AWG_INTERFACE")
	setEnvString(&cfg.Interface.Tool, "AWG_TOOL")
	setEnvDuration(&cfg.Interface.CommandTimeout, "AWG_COMMAND_TIMEOUT")
	setEnvString(&cfg.Interface.KeygenMode, "AWG_KEYGEN_MODE")
	setEnvString(&cfg.Interface.ResyncSchedule, "AWG_RESYNC_SCHEDULE")

	setEnvString(&cfg.Network.Subnet, "AWG_VPN_NETWORK")
	setEnvString(&cfg.Network.StartIP, "AWG_VPN_NETWORK_START")

	setEnvString(&cfg.Store.DataDir, "AWG_DATA_DIR")
	setEnvString(&cfg.Store.UsersFile, "AWG_USERS_FILE")
	setEnvBool(&cfg.Store.WatchEnabled, "AWG_STORE_WATCH")

	setEnvString(&cfg.Tunnel.ServerPublicKey, "AWG_SERVER_PUBLIC_KEY")
	setEnvString(&cfg.Tunnel.ServerEndpoint, "AWG_SERVER_ENDPOINT")
	setEnvInt(&cfg.Tunnel.ServerPort, "AWG_SERVER_PORT")
	setEnvString(&cfg.Tunnel.DNS, "AWG_DNS")
	setEnvInt(&cfg.Tunnel.Jc, "AWG_JC")
	setEnvInt(&cfg.Tunnel.Jmin, "AWG_JMIN")
	setEnvInt(&cfg.Tunnel.Jmax, "AWG_JMAX")
	setEnvInt(&cfg.Tunnel.S1, "AWG_S1")
	setEnvInt(&cfg.Tunnel.S2, "AWG_S2")
	setEnvInt(&cfg.Tunnel.S3, "AWG_S3")
	setEnvInt(&cfg.Tunnel.S4, "AWG_S4")
	setEnvString(&cfg.Tunnel.H1, "AWG_H1")
	setEnvString(&cfg.Tunnel.H2, "AWG_H2")
	setEnvString(&cfg.Tunnel.H3, "AWG_H3")
	setEnvString(&cfg.Tunnel.H4, "AWG_H4")
	setEnvString(&cfg.Tunnel.I1, "AWG_I1")
	setEnvString(&cfg.Tunnel.I2, "AWG_I2")
	setEnvString(&cfg.Tunnel.I3, "AWG_I3")
	setEnvString(&cfg.Tunnel.I4, "AWG_I4")
	setEnvString(&cfg.Tunnel.I5, "AWG_I5")

	setEnvString(&cfg.Observability.LogLevel, "AWG_LOG_LEVEL")
	setEnvBool(&cfg.Observability.MetricsEnabled, "AWG_METRICS_ENABLED")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Interface.Name == "" {
		return fmt.Errorf("interface name is required")
	}
	if c.Interface.Tool == "" {
		return fmt.Errorf("interface tool is required")
	}
	if c.Interface.CommandTimeout <= 0 {
		return fmt.Errorf("command timeout must be positive")
	}
	switch c.Interface.KeygenMode {
	case "native", "cli":
	default:
		return fmt.Errorf("invalid keygen mode: %s (must be native or cli)", c.Interface.KeygenMode)
	}

	subnet, err := netip.ParsePrefix(c.Network.Subnet)
	if err != nil {
		return fmt.Errorf("invalid network subnet %q: %w", c.Network.Subnet, err)
	}
	if !subnet.Addr().Is4() {
		return fmt.Errorf("network subnet must be IPv4")
	}
	start, err := netip.ParseAddr(c.Network.StartIP)
	if err != nil {
		return fmt.Errorf("invalid network start IP %q: %w", c.Network.StartIP, err)
	}
	if !subnet.Contains(start) {
		return fmt.Errorf("network start IP %s is outside subnet %s", start, subnet)
	}

	if c.Store.UsersFile == "" {
		return fmt.Errorf("users file path is required")
	}

	if c.Tunnel.ServerPublicKey == "" {
		return fmt.Errorf("server public key is required")
	}
	if c.Tunnel.ServerEndpoint == "" {
		return fmt.Errorf("server endpoint is required")
	}
	if c.Tunnel.ServerPort <= 0 || c.Tunnel.ServerPort > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Tunnel.ServerPort)
	}
	if c.Tunnel.Jmin > c.Tunnel.Jmax {
		return fmt.Errorf("jmin (%d) must not exceed jmax (%d)", c.Tunnel.Jmin, c.Tunnel.Jmax)
	}

	return nil
}

// ClientParams converts the tunnel settings into render parameters.
func (c *Config) ClientParams() clientconf.Params {
	t := c.Tunnel
	return clientconf.Params{
		ServerPublicKey: t.ServerPublicKey,
		ServerEndpoint:  t.ServerEndpoint,
		ServerPort:      t.ServerPort,
		DNS:             t.DNS,
		Jc:              t.Jc,
		Jmin:            t.Jmin,
		Jmax:            t.Jmax,
		S1:              t.S1,
		S2:              t.S2,
		S3:              t.S3,
		S4:              t.S4,
		H1:              t.H1,
		H2:              t.H2,
		H3:              t.H3,
		H4:              t.H4,
		I1:              t.I1,
		I2:              t.I2,
		I3:              t.I3,
		I4:              t.I4,
		I5:              t.I5,
	}
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func setEnvString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setEnvBool(dst *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = strings.ToLower(value) == "true" || value == "1"
	}
}

func setEnvInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*dst = parsed
		}
	}
}

func setEnvInt64(dst *int64, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			*dst = parsed
		}
	}
}

func setEnvDuration(dst *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			*dst = parsed
		}
	}
}
