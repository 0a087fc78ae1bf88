package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the host-side settings for reaching an fmr device: which
// transport to use and that transport's connection parameters. Fields are
// zero-valued until LoadConfig fills them from .env and the environment.
type Config struct {
	Transport string // "usb", "tcp", or "user"

	TCPHost        string
	TCPPort        int
	TCPDialTimeout time.Duration
	TCPRWTimeout   time.Duration

	USBVendorID  uint16
	USBProductID uint16
}

func defaults() *Config {
	return &Config{
		Transport:      "tcp",
		TCPHost:        "127.0.0.1",
		TCPPort:        4243,
		TCPDialTimeout: 5 * time.Second,
		TCPRWTimeout:   10 * time.Second,
	}
}

var (
	loaded     *Config
	loadedOnce bool
)

// LoadConfig reads FMR_* settings from a .env file in the project root,
// then applies any matching environment variables on top. The result is
// cached after the first call.
func LoadConfig() (*Config, error) {
	if loaded != nil && loadedOnce {
		return loaded, nil
	}

	cfg := defaults()

	envPath := filepath.Join(findProjectRoot(), ".env")
	if data, err := os.ReadFile(envPath); err == nil {
		parseEnvFile(string(data), cfg)
	}
	applyEnvOverrides(cfg)

	loaded = cfg
	loadedOnce = true
	return cfg, nil
}

func parseEnvFile(content string, cfg *Config) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		setField(cfg, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}
}

func applyEnvOverrides(cfg *Config) {
	for _, key := range []string{
		"FMR_TRANSPORT", "FMR_TCP_HOST", "FMR_TCP_PORT",
		"FMR_TCP_DIAL_TIMEOUT_MS", "FMR_TCP_RW_TIMEOUT_MS",
		"FMR_USB_VENDOR_ID", "FMR_USB_PRODUCT_ID",
	} {
		if v := os.Getenv(key); v != "" {
			setField(cfg, key, v)
		}
	}
}

func setField(cfg *Config, key, value string) {
	switch key {
	case "FMR_TRANSPORT":
		cfg.Transport = value
	case "FMR_TCP_HOST":
		cfg.TCPHost = value
	case "FMR_TCP_PORT":
		if n, err := strconv.Atoi(value); err == nil {
			cfg.TCPPort = n
		}
	case "FMR_TCP_DIAL_TIMEOUT_MS":
		if n, err := strconv.Atoi(value); err == nil {
			cfg.TCPDialTimeout = time.Duration(n) * time.Millisecond
		}
	case "FMR_TCP_RW_TIMEOUT_MS":
		if n, err := strconv.Atoi(value); err == nil {
			cfg.TCPRWTimeout = time.Duration(n) * time.Millisecond
		}
	case "FMR_USB_VENDOR_ID":
		if n, err := strconv.ParseUint(value, 0, 16); err == nil {
			cfg.USBVendorID = uint16(n)
		}
	case "FMR_USB_PRODUCT_ID":
		if n, err := strconv.ParseUint(value, 0, 16); err == nil {
			cfg.USBProductID = uint16(n)
		}
	}
}

func findProjectRoot() string {
	cwd, _ := os.Getwd()
	if _, err := os.Stat(filepath.Join(cwd, ".env")); err == nil {
		return cwd
	}
	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return cwd
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return cwd
		}
		cwd = parent
	}
}

// MustLoadConfig loads the configuration or panics, for command entry
// points that have no sensible way to continue without one.
func MustLoadConfig() Config {
	cfg, err := LoadConfig()
	if err != nil {
		panic("fmr: failed to load configuration: " + err.Error())
	}
	return *cfg
}
