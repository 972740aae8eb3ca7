// Package config loads server and reconcile-tool configuration from flags,
// environment variables, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Relational RelationalConfig
	Document   DocumentConfig
	Reconcile  ReconcileConfig
	Server     ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	DataPath    string // parent directory for both stores
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// RelationalConfig configures the SQLite-backed relational store.
type RelationalConfig struct {
	Path         string
	MaxOpenConns int           // pool size; callers queue when exhausted (default: 8)
	MaxIdleConns int           // default: 4
	Timeout      time.Duration // per-operation deadline (default: 3s)
}

// DocumentConfig configures the Badger-backed document store.
type DocumentConfig struct {
	Path string
}

// ReconcileConfig tunes the consistency scanner and repairer.
type ReconcileConfig struct {
	BatchSize   int     // keys read per page (default: 500)
	RepairRate  float64 // corrective writes per second (default: 50)
	RepairBurst int     // default: 10
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
	RequestRate  float64 // per client, requests per second; 0 disables (default: 20)
	RequestBurst int     // default: 40
}

// flagValues are the raw command-line overrides. Empty means unset.
type flagValues struct {
	env, logLevel, dataPath, relationalPath, documentPath string
	maxOpen, maxIdle, relTimeout                          string
	batchSize, repairRate, repairBurst                    string
	port, readTimeout, writeTimeout, idleTimeout, cors    string
	envFile                                               string
}

// LoadConfig loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("libris", flag.ContinueOnError)
	var fv flagValues
	fs.StringVar(&fv.env, "env", "", "Environment (development, staging, production)")
	fs.StringVar(&fv.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&fv.dataPath, "data-path", "", "Directory holding both stores")
	fs.StringVar(&fv.relationalPath, "relational-path", "", "SQLite database file")
	fs.StringVar(&fv.documentPath, "document-path", "", "Badger directory")
	fs.StringVar(&fv.maxOpen, "relational-max-open", "", "Relational pool size (default: 8)")
	fs.StringVar(&fv.maxIdle, "relational-max-idle", "", "Idle relational connections (default: 4)")
	fs.StringVar(&fv.relTimeout, "relational-timeout", "", "Relational operation timeout (default: 3s)")
	fs.StringVar(&fv.batchSize, "scan-batch-size", "", "Keys per scan page (default: 500)")
	fs.StringVar(&fv.repairRate, "repair-rate", "", "Repair writes per second (default: 50)")
	fs.StringVar(&fv.repairBurst, "repair-burst", "", "Repair burst (default: 10)")
	fs.StringVar(&fv.port, "port", "", "Server port (default: 8080)")
	fs.StringVar(&fv.readTimeout, "read-timeout", "", "HTTP read timeout (default: 15s)")
	fs.StringVar(&fv.writeTimeout, "write-timeout", "", "HTTP write timeout (default: 15s)")
	fs.StringVar(&fv.idleTimeout, "idle-timeout", "", "HTTP idle timeout (default: 60s)")
	fs.StringVar(&fv.cors, "cors-origins", "", "Comma separated CORS origins")
	fs.StringVar(&fv.envFile, "env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// A missing .env file is fine.
	_ = loadEnvFile(fv.envFile)

	return build(fv)
}

// FromEnvironment loads configuration from environment variables and the
// .env file only. Used by tools that own their own flag parsing.
func FromEnvironment() (*Config, error) {
	_ = loadEnvFile(".env")
	return build(flagValues{})
}

func build(fv flagValues) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(fv.env, "ENV", "development"),
			DataPath:    getConfigValue(fv.dataPath, "DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(fv.logLevel, "LOG_LEVEL", "info"),
		},
		Relational: RelationalConfig{
			Path:         getConfigValue(fv.relationalPath, "RELATIONAL_PATH", ""),
			MaxOpenConns: getIntConfigValue(fv.maxOpen, "RELATIONAL_MAX_OPEN_CONNS", 8),
			MaxIdleConns: getIntConfigValue(fv.maxIdle, "RELATIONAL_MAX_IDLE_CONNS", 4),
		},
		Document: DocumentConfig{
			Path: getConfigValue(fv.documentPath, "DOCUMENT_PATH", ""),
		},
		Reconcile: ReconcileConfig{
			BatchSize:   getIntConfigValue(fv.batchSize, "SCAN_BATCH_SIZE", 500),
			RepairRate:  getFloatConfigValue(fv.repairRate, "REPAIR_RATE", 50),
			RepairBurst: getIntConfigValue(fv.repairBurst, "REPAIR_BURST", 10),
		},
		Server: ServerConfig{
			Port:         getConfigValue(fv.port, "SERVER_PORT", "8080"),
			CORSOrigins:  splitList(getConfigValue(fv.cors, "CORS_ORIGINS", "*")),
			RequestRate:  getFloatConfigValue("", "SERVER_REQUEST_RATE", 20),
			RequestBurst: getIntConfigValue("", "SERVER_REQUEST_BURST", 40),
		},
	}

	var err error
	if cfg.Relational.Timeout, err = getDurationConfigValue(fv.relTimeout, "RELATIONAL_TIMEOUT", "3s"); err != nil {
		return nil, err
	}
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(fv.readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(fv.writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(fv.idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Relational.Path == "" || c.Document.Path == "" {
		return errors.New("store paths cannot be empty after expansion")
	}
	if c.Relational.MaxOpenConns < 1 {
		return fmt.Errorf("relational pool size must be at least 1, got %d", c.Relational.MaxOpenConns)
	}
	if c.Relational.MaxIdleConns > c.Relational.MaxOpenConns {
		c.Relational.MaxIdleConns = c.Relational.MaxOpenConns
	}
	if c.Relational.Timeout <= 0 {
		return errors.New("relational timeout must be positive")
	}
	if c.Reconcile.BatchSize < 1 {
		return fmt.Errorf("scan batch size must be at least 1, got %d", c.Reconcile.BatchSize)
	}
	if c.Reconcile.RepairRate <= 0 || c.Reconcile.RepairBurst < 1 {
		return errors.New("repair rate and burst must be positive")
	}
	if c.Server.RequestRate < 0 || c.Server.RequestBurst < 0 {
		return errors.New("request rate and burst cannot be negative")
	}
	return nil
}

// expandPaths resolves the data directory and derives unset store paths from it.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.App.DataPath, err = expandPath(c.App.DataPath, filepath.Join(homeDir, "Libris", "data")); err != nil {
		return err
	}
	if c.Relational.Path, err = expandPath(c.Relational.Path, filepath.Join(c.App.DataPath, "libris.db")); err != nil {
		return err
	}
	if c.Document.Path, err = expandPath(c.Document.Path, filepath.Join(c.App.DataPath, "documents")); err != nil {
		return err
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}
	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparseable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- operator-supplied config path
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}
