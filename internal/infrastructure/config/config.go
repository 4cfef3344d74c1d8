package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration.
type Config struct {
	Server    ServerConfig
	Machine   MachineConfig
	Kernel    KernelConfig
	Boot      BootConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP control plane configuration.
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"7700"`
	Host        string   `envconfig:"HOST" default:"0.0.0.0"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// MachineConfig holds simulated machine configuration.
type MachineConfig struct {
	MemoryMiB  int  `envconfig:"MACHINE_MEMORY_MIB" default:"64"`
	TickMillis int  `envconfig:"MACHINE_TICK_MS" default:"10"`
	Manual     bool `envconfig:"MACHINE_MANUAL_CLOCK" default:"false"`
}

// KernelConfig holds trusted core tunables.
type KernelConfig struct {
	QueueDepth int `envconfig:"KERNEL_QUEUE_DEPTH" default:"64"`
	StackPages int `envconfig:"KERNEL_STACK_PAGES" default:"4"`
}

// BootConfig holds module library and boot manifest configuration.
type BootConfig struct {
	ManifestPath  string `envconfig:"BOOT_MANIFEST" default:"boot.yaml"`
	InitramfsPath string `envconfig:"BOOT_INITRAMFS" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects configurations the machine cannot boot with.
func (c *Config) Validate() error {
	if c.Machine.MemoryMiB < 4 {
		return fmt.Errorf("machine memory too small: %d MiB (minimum 4)", c.Machine.MemoryMiB)
	}
	if c.Machine.TickMillis < 1 {
		return fmt.Errorf("tick interval too small: %d ms", c.Machine.TickMillis)
	}
	if c.Kernel.QueueDepth < 1 {
		return fmt.Errorf("queue depth must be positive: %d", c.Kernel.QueueDepth)
	}
	if c.Kernel.StackPages < 1 {
		return fmt.Errorf("stack pages must be positive: %d", c.Kernel.StackPages)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "7700",
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
		},
		Machine: MachineConfig{
			MemoryMiB:  64,
			TickMillis: 10,
		},
		Kernel: KernelConfig{
			QueueDepth: 64,
			StackPages: 4,
		},
		Boot: BootConfig{
			ManifestPath: "boot.yaml",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
