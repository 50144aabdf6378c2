// Package config provides configuration management for Angle.
// Values come from defaults, then an optional YAML file, then environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort          = 8790
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".angle"
	DefaultPublicDir     = "public"
	DefaultExportTimeout = 600 // seconds

	// Environment variable names
	EnvConfigFile    = "ANGLE_CONFIG"
	EnvPort          = "ANGLE_PORT"
	EnvLogLevel      = "ANGLE_LOG_LEVEL"
	EnvDataDir       = "ANGLE_DATA_DIR"
	EnvPublicDir     = "ANGLE_PUBLIC_DIR"
	EnvWorkerURL     = "WORKER_URL"
	EnvFFmpeg        = "ANGLE_FFMPEG"
	EnvFFprobe       = "ANGLE_FFPROBE"
	EnvFFplay        = "ANGLE_FFPLAY"
	EnvExportTimeout = "ANGLE_EXPORT_TIMEOUT"
	EnvRenderURL     = "ANGLE_RENDER_URL"
	EnvRenderToken   = "ANGLE_RENDER_TOKEN"
	EnvHeadless      = "ANGLE_HEADLESS"

	// Database filename
	DBFilename = "angle.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	TempDir() string
	CacheDir() string
	PublicDir() string
	WorkerURL() string
	FFmpegPath() string
	FFprobePath() string
	FFplayPath() string
	ExportTimeout() time.Duration
	RenderURL() string
	RenderToken() string
	Headless() bool
}

// fileConfig is the YAML layout. Zero values leave the default in place.
type fileConfig struct {
	Port          int    `yaml:"port"`
	LogLevel      string `yaml:"log_level"`
	DataDir       string `yaml:"data_dir"`
	PublicDir     string `yaml:"public_dir"`
	WorkerURL     string `yaml:"worker_url"`
	ExportTimeout int    `yaml:"export_timeout"`
	Headless      *bool  `yaml:"headless"`
	Tools         struct {
		FFmpeg  string `yaml:"ffmpeg"`
		FFprobe string `yaml:"ffprobe"`
		FFplay  string `yaml:"ffplay"`
	} `yaml:"tools"`
	Render struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"render"`
}

// EnvConfig holds the resolved configuration
type EnvConfig struct {
	port          int
	logLevel      string
	dataDir       string
	publicDir     string
	workerURL     string
	ffmpeg        string
	ffprobe       string
	ffplay        string
	exportTimeout time.Duration
	renderURL     string
	renderToken   string
	headless      bool
}

// New creates a new EnvConfig with defaults, the optional YAML file named
// by ANGLE_CONFIG and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		publicDir:     DefaultPublicDir,
		exportTimeout: DefaultExportTimeout * time.Second,
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 1 and 65535", cfg.port)
	}
	return cfg, nil
}

func (c *EnvConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", filepath.Base(path), err)
	}

	if fc.Port != 0 {
		c.port = fc.Port
	}
	setString(&c.logLevel, fc.LogLevel)
	setString(&c.dataDir, fc.DataDir)
	setString(&c.publicDir, fc.PublicDir)
	setString(&c.workerURL, fc.WorkerURL)
	setString(&c.ffmpeg, fc.Tools.FFmpeg)
	setString(&c.ffprobe, fc.Tools.FFprobe)
	setString(&c.ffplay, fc.Tools.FFplay)
	setString(&c.renderURL, fc.Render.URL)
	setString(&c.renderToken, fc.Render.Token)
	if fc.ExportTimeout > 0 {
		c.exportTimeout = time.Duration(fc.ExportTimeout) * time.Second
	}
	if fc.Headless != nil {
		c.headless = *fc.Headless
	}
	return nil
}

func (c *EnvConfig) loadEnv() error {
	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}

	setString(&c.logLevel, os.Getenv(EnvLogLevel))
	setString(&c.dataDir, os.Getenv(EnvDataDir))
	setString(&c.publicDir, os.Getenv(EnvPublicDir))
	setString(&c.workerURL, os.Getenv(EnvWorkerURL))
	setString(&c.ffmpeg, os.Getenv(EnvFFmpeg))
	setString(&c.ffprobe, os.Getenv(EnvFFprobe))
	setString(&c.ffplay, os.Getenv(EnvFFplay))
	setString(&c.renderURL, os.Getenv(EnvRenderURL))
	setString(&c.renderToken, os.Getenv(EnvRenderToken))

	if t := os.Getenv(EnvExportTimeout); t != "" {
		secs, err := strconv.Atoi(t)
		if err != nil || secs < 0 {
			return fmt.Errorf("invalid %s: must be a non-negative number of seconds", EnvExportTimeout)
		}
		c.exportTimeout = time.Duration(secs) * time.Second
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.headless = headless
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// TempDir holds per-export scratch files.
func (c *EnvConfig) TempDir() string {
	return filepath.Join(c.dataDir, "tmp")
}

// CacheDir holds playback copies of audio clip payloads.
func (c *EnvConfig) CacheDir() string {
	return filepath.Join(c.dataDir, "cache")
}

// PublicDir is where root-relative video locators are looked up first.
func (c *EnvConfig) PublicDir() string {
	return c.publicDir
}

func (c *EnvConfig) WorkerURL() string {
	return strings.TrimRight(c.workerURL, "/")
}

func (c *EnvConfig) FFmpegPath() string  { return c.ffmpeg }
func (c *EnvConfig) FFprobePath() string { return c.ffprobe }
func (c *EnvConfig) FFplayPath() string  { return c.ffplay }

// ExportTimeout bounds one export. Zero disables the limit.
func (c *EnvConfig) ExportTimeout() time.Duration {
	return c.exportTimeout
}

func (c *EnvConfig) RenderURL() string {
	return c.renderURL
}

func (c *EnvConfig) RenderToken() string {
	return c.renderToken
}

// Headless disables the system tray.
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
