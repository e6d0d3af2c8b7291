package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 20 * 1024 * 1024 // 20MB, uploads and templates
	DefaultTemplates   = "templates"
	DefaultOCRProvider = "openai"
	DefaultOCRModel    = "gpt-4o"
	DefaultOCRTimeout  = 60 * time.Second
	DefaultSessionTTL  = 2 * time.Hour

	envPrefix = "VTD"
)

// Config holds all configuration for the transfer documents service
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Documents
	TemplateDirectory string
	MaxFileSize       int64 // Maximum upload or template size in bytes
	HistoryDB         string

	// Recognition
	OCRProvider string
	OCRModel    string
	OCRTimeout  time.Duration
	OpenAIKey   string

	// Dossier submitter
	AgentNIF    string
	AgencyNIF   string
	DivisionKey string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
	SessionTTL time.Duration
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:              ModeServer,
		Host:              DefaultHost,
		Port:              DefaultPort,
		TemplateDirectory: DefaultTemplates,
		MaxFileSize:       DefaultMaxFileSize,
		OCRProvider:       DefaultOCRProvider,
		OCRModel:          DefaultOCRModel,
		OCRTimeout:        DefaultOCRTimeout,
		Version:           "1.0.0",
		ServerName:        "vehicle-transfer-docs",
		LogLevel:          DefaultLogLevel,
		SessionTTL:        DefaultSessionTTL,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.TemplateDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.TemplateDirectory); err == nil {
			cfg.TemplateDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// VTD_OCR_TIMEOUT maps to ocr-timeout
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("templates", cfg.TemplateDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("ocr-provider", cfg.OCRProvider)
	viper.SetDefault("ocr-model", cfg.OCRModel)
	viper.SetDefault("ocr-timeout", cfg.OCRTimeout)
	viper.SetDefault("openai-key", cfg.OpenAIKey)
	viper.SetDefault("history-db", cfg.HistoryDB)
	viper.SetDefault("agent-nif", cfg.AgentNIF)
	viper.SetDefault("agency-nif", cfg.AgencyNIF)
	viper.SetDefault("division-key", cfg.DivisionKey)
	viper.SetDefault("session-ttl", cfg.SessionTTL)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'server' for the HTTP API, 'stdio' for MCP standard I/O")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("templates", cfg.TemplateDirectory, "Directory containing the PDF form templates")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum upload and template size in bytes")
	pflag.String("ocr-provider", cfg.OCRProvider, "Vision model provider")
	pflag.String("ocr-model", cfg.OCRModel, "Vision model name")
	pflag.Duration("ocr-timeout", cfg.OCRTimeout, "Timeout of a single document recognition")
	pflag.String("openai-key", cfg.OpenAIKey, "OpenAI API key (defaults to OPENAI_API_KEY)")
	pflag.String("history-db", cfg.HistoryDB, "SQLite file for the history; empty disables history")
	pflag.String("agent-nif", cfg.AgentNIF, "NIF of the submitting agent in XML dossiers")
	pflag.String("agency-nif", cfg.AgencyNIF, "NIF of the agency in XML dossiers")
	pflag.String("division-key", cfg.DivisionKey, "DGT local division key in XML dossiers")
	pflag.Duration("session-ttl", cfg.SessionTTL, "Idle time after which an editing session is dropped")
}

var flagKeys = []string{
	"mode", "host", "port", "templates", "loglevel", "maxfilesize",
	"ocr-provider", "ocr-model", "ocr-timeout", "openai-key", "history-db",
	"agent-nif", "agency-nif", "division-key", "session-ttl",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range flagKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nVehicle transfer documents - read IDs and technical sheets, fill the transfer paperwork\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# HTTP API on 127.0.0.1:8080 (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --templates=/srv/templates --history-db=/var/lib/vtd/history.db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio                             # MCP server over stdio\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, key := range flagKeys {
			fmt.Fprintf(os.Stderr, "  %s\n", envName(key))
		}
	}
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.TemplateDirectory = viper.GetString("templates")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.OCRProvider = viper.GetString("ocr-provider")
	cfg.OCRModel = viper.GetString("ocr-model")
	cfg.OCRTimeout = viper.GetDuration("ocr-timeout")
	cfg.OpenAIKey = viper.GetString("openai-key")
	cfg.HistoryDB = viper.GetString("history-db")
	cfg.AgentNIF = viper.GetString("agent-nif")
	cfg.AgencyNIF = viper.GetString("agency-nif")
	cfg.DivisionKey = viper.GetString("division-key")
	cfg.SessionTTL = viper.GetDuration("session-ttl")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.TemplateDirectory == "" {
		return errors.New("template directory cannot be empty")
	}

	// A missing directory is accepted; only the official form needs it
	if info, err := os.Stat(c.TemplateDirectory); err == nil && !info.IsDir() {
		return fmt.Errorf("template path %s is not a directory", c.TemplateDirectory)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if !strings.EqualFold(c.OCRProvider, DefaultOCRProvider) {
		return fmt.Errorf("unsupported OCR provider: %s (must be: openai)", c.OCRProvider)
	}
	if c.OCRModel == "" {
		return errors.New("OCR model cannot be empty")
	}
	if c.OCRTimeout <= 0 {
		return errors.New("OCR timeout must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// HistoryEnabled reports whether bundles can be saved
func (c *Config) HistoryEnabled() bool {
	return c.HistoryDB != ""
}

// String returns a string representation of the configuration. The API key
// is never printed.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, TemplateDirectory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"OCR: %s/%s, OCRTimeout: %s, HistoryDB: %s}",
		c.Mode, c.Host, c.Port, c.TemplateDirectory, c.LogLevel, c.MaxFileSize,
		c.OCRProvider, c.OCRModel, c.OCRTimeout, c.HistoryDB)
}

// IsServerMode returns true if the service runs the HTTP API
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the service runs as an MCP server over stdio
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
