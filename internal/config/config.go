package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ServiceName    = "vending-machine"
	ServiceVersion = "0.1.0"
)

const (
	CommandsTopic = "VendingCommands"
	EventsTopic   = "VendingEvents"
	GroupID       = "vending-machine-group"
	BatchTimeout  = 10 * time.Millisecond
	BatchSize     = 100
)

const (
	LogsPath       = "/otlp/v1/logs"    // Grafana Cloud OTLP path
	TracesPath     = "/otlp/v1/traces"  // Grafana Cloud OTLP path
	MetricsPath    = "/otlp/v1/metrics" // Grafana Cloud OTLP path
	ExportTimeout  = 30 * time.Second
	MaxQueueSize   = 2048
	MetricInterval = 15 * time.Second
)

const (
	DefaultMachineID    = "vm-1"
	DefaultHTTPAddr     = ":8080"
	DefaultInitialCoins = 100
	ShutdownTimeout     = 15 * time.Second
)

type Config struct {
	KafkaBroker    string
	OtelEndpoint   string
	OtelAuthHeader string
	MachineID      string
	HTTPAddr       string
	// InitialCoins is the number of coins of each denomination loaded into
	// the register at startup.
	InitialCoins int
}

func LoadConfig() (*Config, error) {
	config := &Config{
		KafkaBroker:    os.Getenv("KAFKA_BROKER"),
		OtelEndpoint:   os.Getenv("OTEL_ENDPOINT"),
		OtelAuthHeader: os.Getenv("OTEL_AUTH_HEADER"),
		MachineID:      getenvDefault("MACHINE_ID", DefaultMachineID),
		HTTPAddr:       getenvDefault("HTTP_ADDR", DefaultHTTPAddr),
		InitialCoins:   DefaultInitialCoins,
	}

	if config.KafkaBroker == "" {
		return nil, fmt.Errorf("KAFKA_BROKER environment variable is required")
	}
	if config.OtelEndpoint == "" {
		return nil, fmt.Errorf("OTEL_ENDPOINT environment variable is required")
	}
	if config.OtelAuthHeader == "" {
		return nil, fmt.Errorf("OTEL_AUTH_HEADER environment variable is required")
	}

	if raw := os.Getenv("INITIAL_COINS"); raw != "" {
		coins, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("INITIAL_COINS must be an integer: %w", err)
		}
		if coins < 0 {
			return nil, fmt.Errorf("INITIAL_COINS must not be negative, got %d", coins)
		}
		config.InitialCoins = coins
	}

	return config, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
