package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/hmmseg/internal/timezone"
)

// Profile is the configuration shared by the CLI, the trainer and the API server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for the API server
	Addr string
	// Port is the binding port for the API server
	Port int
	// Data is the data directory; the file driver keeps model blobs here
	Data string
	// Driver is the model store driver (file, sqlite or postgres)
	Driver string
	// DSN points to the sqlite file or postgres database holding models
	DSN string
	// Codec is the model blob encoding (gob or msgpack)
	Codec string
	// ModelName is the default model used by cut, extract and serve
	ModelName string
	// Version is the current version of hmmseg
	Version string

	Workers   int     // HMMSEG_WORKERS (default: number of CPUs)
	CacheSize int     // HMMSEG_CACHE_SIZE (default: 4 loaded models)
	Timezone  string  // HMMSEG_TIMEZONE (default: Asia/Shanghai)
	RateLimit float64 // HMMSEG_RATE_LIMIT requests per second per client (default: 10)
	RateBurst int     // HMMSEG_RATE_BURST (default: 20)
	LogLevel  string  // HMMSEG_LOG_LEVEL (default: info)
}

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("ignoring non-integer environment value", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("ignoring non-numeric environment value", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

// FromEnv loads the tuning knobs from HMMSEG_* environment variables.
// Fields already set keep their values.
func (p *Profile) FromEnv() {
	if p.Driver == "" {
		p.Driver = getEnvOrDefault("HMMSEG_DRIVER", DriverFile)
	}
	if p.DSN == "" {
		p.DSN = os.Getenv("HMMSEG_DSN")
	}
	if p.Codec == "" {
		p.Codec = getEnvOrDefault("HMMSEG_CODEC", "gob")
	}
	if p.ModelName == "" {
		p.ModelName = getEnvOrDefault("HMMSEG_MODEL", "default")
	}
	if p.Workers == 0 {
		p.Workers = getIntEnvOrDefault("HMMSEG_WORKERS", runtime.NumCPU())
	}
	if p.CacheSize == 0 {
		p.CacheSize = getIntEnvOrDefault("HMMSEG_CACHE_SIZE", 4)
	}
	if p.Timezone == "" {
		p.Timezone = getEnvOrDefault("HMMSEG_TIMEZONE", "Asia/Shanghai")
	}
	if p.RateLimit == 0 {
		p.RateLimit = getFloatEnvOrDefault("HMMSEG_RATE_LIMIT", 10)
	}
	if p.RateBurst == 0 {
		p.RateBurst = getIntEnvOrDefault("HMMSEG_RATE_BURST", 20)
	}
	if p.LogLevel == "" {
		p.LogLevel = getEnvOrDefault("HMMSEG_LOG_LEVEL", "info")
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Data == "" {
		if p.Mode == "prod" && runtime.GOOS != "windows" {
			p.Data = "/var/opt/hmmseg"
		} else {
			p.Data = "."
		}
	}
	if p.Mode == "prod" {
		if _, err := os.Stat(p.Data); os.IsNotExist(err) {
			if err := os.MkdirAll(p.Data, 0770); err != nil {
				slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
				return err
			}
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	switch p.Driver {
	case DriverFile, DriverSQLite, DriverPostgres:
	case "":
		p.Driver = DriverFile
	default:
		return errors.Errorf("unknown model store driver %q", p.Driver)
	}
	if p.Driver == DriverSQLite && p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("hmmseg_%s.db", p.Mode))
	}
	if p.Driver == DriverPostgres && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}
	if !timezone.IsValidTimezone(p.Timezone) {
		return errors.Errorf("unknown timezone %q", p.Timezone)
	}
	if p.Workers <= 0 {
		p.Workers = 1
	}
	if p.CacheSize <= 0 {
		p.CacheSize = 1
	}
	return nil
}
