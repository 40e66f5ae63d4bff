package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/widgets/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "widgets.json"

	// DefaultRemoteCatalog is the shared widget catalog.
	DefaultRemoteCatalog = "https://widgets.structr.org/structr/rest/widgets"

	// DefaultLocalStore is the project-relative directory holding local widgets.
	DefaultLocalStore = "widgets"

	// DefaultPageSize is the number of local widgets fetched per page.
	DefaultPageSize = 25

	// DefaultRemoteTimeout bounds a single catalog request.
	DefaultRemoteTimeout = "30s"

	// DefaultServerAddr is the admin API listen address.
	DefaultServerAddr = ":8090"

	// DefaultMetricsNamespace prefixes all exported metrics.
	DefaultMetricsNamespace = "widgets"

	// EnvRemoteCatalog overrides Remote.Catalog when set.
	EnvRemoteCatalog = "WIDGETS_REMOTE_CATALOG"
)

// Config represents the complete widgets.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Local configures the project's own widget store.
	Local LocalConfig `json:"local,omitempty"`

	// Remote configures the shared widget catalog.
	Remote RemoteConfig `json:"remote,omitempty"`

	// Executor configures the command channel to the page backend.
	Executor ExecutorConfig `json:"executor,omitempty"`

	// Server configures the admin API.
	Server ServerConfig `json:"server,omitempty"`

	// Log configures structured logging.
	Log LogConfig `json:"log,omitempty"`

	// Tracing configures OpenTelemetry export.
	Tracing TracingConfig `json:"tracing,omitempty"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	configPath string
}

// LocalConfig contains local widget store settings.
type LocalConfig struct {
	// Store is a directory, file:// URL or http(s) collection URL.
	Store string `json:"store,omitempty"`

	// PageSize is the number of widgets fetched per page.
	PageSize int `json:"pageSize,omitempty"`

	// Origin is the base URL of the local page backend. A remote catalog
	// under this origin is not loaded a second time.
	Origin string `json:"origin,omitempty"`
}

// RemoteConfig contains shared catalog settings.
type RemoteConfig struct {
	// Catalog is an http(s):// collection URL or s3://bucket/key object.
	Catalog string `json:"catalog,omitempty"`

	// Timeout bounds one catalog request (Go duration syntax).
	Timeout string `json:"timeout,omitempty"`

	// Region is the AWS region for s3:// catalogs.
	Region string `json:"region,omitempty"`

	// Disabled turns off the remote catalog entirely.
	Disabled bool `json:"disabled,omitempty"`
}

// ExecutorConfig contains command channel settings.
type ExecutorConfig struct {
	// URL is the ws:// or wss:// command endpoint.
	URL string `json:"url,omitempty"`

	// SessionID identifies this panel to the backend. Generated when empty.
	SessionID string `json:"sessionId,omitempty"`
}

// ServerConfig contains admin API settings.
type ServerConfig struct {
	Addr string `json:"addr,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port. Tracing is off when empty.
	Endpoint string `json:"endpoint,omitempty"`

	// Insecure disables TLS towards the collector.
	Insecure bool `json:"insecure,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Local: LocalConfig{
			Store:    DefaultLocalStore,
			PageSize: DefaultPageSize,
		},
		Remote: RemoteConfig{
			Catalog: DefaultRemoteCatalog,
			Timeout: DefaultRemoteTimeout,
		},
		Server: ServerConfig{
			Addr: DefaultServerAddr,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: DefaultMetricsNamespace,
		},
	}
}

// Load reads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E122").
				WithDetail("No widgets.json found in " + filepath.Dir(path)).
				WithSuggestion("Create widgets.json or run 'widgets init'")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse widgets.json: " + err.Error()).
			WithSuggestion("Check that widgets.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	cfg.applyEnv()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Local.Store == "" {
		c.Local.Store = DefaultLocalStore
	}
	if c.Local.PageSize == 0 {
		c.Local.PageSize = DefaultPageSize
	}
	if c.Remote.Catalog == "" {
		c.Remote.Catalog = DefaultRemoteCatalog
	}
	if c.Remote.Timeout == "" {
		c.Remote.Timeout = DefaultRemoteTimeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// applyEnv applies environment overrides.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvRemoteCatalog)); v != "" {
		c.Remote.Catalog = strings.TrimRight(v, "/")
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Local.PageSize < 1 {
		return errors.New("E120").
			WithDetail("local.pageSize must be at least 1")
	}
	if _, err := time.ParseDuration(c.Remote.Timeout); err != nil {
		return errors.New("E120").
			WithDetail("remote.timeout is not a duration: " + c.Remote.Timeout)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("E120").
			WithDetail("log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E120").
			WithDetail("log.format must be text or json")
	}
	if c.Executor.URL != "" &&
		!strings.HasPrefix(c.Executor.URL, "ws://") &&
		!strings.HasPrefix(c.Executor.URL, "wss://") {
		return errors.New("E120").
			WithDetail("executor.url must start with ws:// or wss://")
	}
	return nil
}

// RemoteTimeout returns the parsed catalog request timeout.
func (c *Config) RemoteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Remote.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultRemoteTimeout)
	}
	return d
}

// LocalStoreLocator returns the local store locator. Relative directories
// are resolved against the project directory.
func (c *Config) LocalStoreLocator() string {
	store := c.Local.Store
	if strings.Contains(store, "://") || filepath.IsAbs(store) {
		return store
	}
	return filepath.Join(c.Dir(), store)
}

// RemoteIsLocal reports whether the remote catalog is served by the local
// origin, in which case loading it would duplicate the local widgets.
func (c *Config) RemoteIsLocal() bool {
	origin := strings.TrimRight(c.Local.Origin, "/")
	if origin == "" {
		return false
	}
	return strings.HasPrefix(c.Remote.Catalog, origin)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing widgets.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E122").
				WithDetail("No widgets.json found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'widgets init' to create one")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
