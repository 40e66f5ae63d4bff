package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/widgets/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Local.PageSize != DefaultPageSize {
		t.Errorf("Local.PageSize = %d, want %d", cfg.Local.PageSize, DefaultPageSize)
	}
	if cfg.Remote.Catalog != DefaultRemoteCatalog {
		t.Errorf("Remote.Catalog = %q, want %q", cfg.Remote.Catalog, DefaultRemoteCatalog)
	}
	if cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultServerAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvRemoteCatalog, "")
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Expected error for missing config")
	}
	if !errors.HasCode(err, "E122") {
		t.Errorf("missing config error = %v, want E122", err)
	}

	configJSON := `{
  "name": "shop",
  "local": {
    "store": "fragments",
    "pageSize": 10,
    "origin": "http://localhost:8082"
  },
  "remote": {
    "catalog": "https://catalog.example.com/rest/widgets",
    "timeout": "5s"
  },
  "executor": {
    "url": "ws://localhost:8082/structr/ws"
  },
  "log": {
    "level": "debug"
  }
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Name != "shop" {
		t.Errorf("Name = %q, want shop", cfg.Name)
	}
	if cfg.Local.PageSize != 10 {
		t.Errorf("Local.PageSize = %d, want 10", cfg.Local.PageSize)
	}
	if cfg.Remote.Catalog != "https://catalog.example.com/rest/widgets" {
		t.Errorf("Remote.Catalog = %q", cfg.Remote.Catalog)
	}
	if cfg.RemoteTimeout() != 5*time.Second {
		t.Errorf("RemoteTimeout = %v, want 5s", cfg.RemoteTimeout())
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	// Defaults fill what the file leaves out.
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want text", cfg.Log.Format)
	}
	if cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("Server.Addr = %q, want default", cfg.Server.Addr)
	}
	if got, want := cfg.LocalStoreLocator(), filepath.Join(tmpDir, "fragments"); got != want {
		t.Errorf("LocalStoreLocator = %q, want %q", got, want)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(`{"local": `), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(tmpDir)
	if !errors.HasCode(err, "E120") {
		t.Errorf("Load error = %v, want E120", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvRemoteCatalog, "http://mirror.internal/widgets/")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Remote.Catalog != "http://mirror.internal/widgets" {
		t.Errorf("Remote.Catalog = %q, want env override without trailing slash", cfg.Remote.Catalog)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Name = "roundtrip"
	cfg.Executor.SessionID = "abc"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "}\n") {
		t.Error("saved file should end with a newline")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "roundtrip" || loaded.Executor.SessionID != "abc" {
		t.Errorf("loaded = %+v", loaded)
	}

	loaded.Name = "changed"
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if err := New().Save(); err == nil {
		t.Error("Save without a path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero page size", func(c *Config) { c.Local.PageSize = 0 }, true},
		{"bad timeout", func(c *Config) { c.Remote.Timeout = "soon" }, true},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, true},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, true},
		{"http executor", func(c *Config) { c.Executor.URL = "http://x" }, true},
		{"wss executor", func(c *Config) { c.Executor.URL = "wss://x/ws" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRemoteIsLocal(t *testing.T) {
	cfg := New()
	if cfg.RemoteIsLocal() {
		t.Error("no origin configured should not be local")
	}

	cfg.Local.Origin = "http://localhost:8082/"
	cfg.Remote.Catalog = "http://localhost:8082/structr/rest/widgets"
	if !cfg.RemoteIsLocal() {
		t.Error("catalog under local origin should be local")
	}

	cfg.Remote.Catalog = DefaultRemoteCatalog
	if cfg.RemoteIsLocal() {
		t.Error("shared catalog should not be local")
	}
}

func TestRemoteTimeoutFallback(t *testing.T) {
	cfg := New()
	cfg.Remote.Timeout = "nope"
	if cfg.RemoteTimeout() != 30*time.Second {
		t.Errorf("RemoteTimeout = %v, want 30s fallback", cfg.RemoteTimeout())
	}
}

func TestLocalStoreLocator(t *testing.T) {
	cfg := New()
	cfg.Local.Store = "https://example.com/rest/widgets"
	if cfg.LocalStoreLocator() != "https://example.com/rest/widgets" {
		t.Errorf("URL store should be returned unchanged")
	}

	abs := filepath.Join(t.TempDir(), "w")
	cfg.Local.Store = abs
	if cfg.LocalStoreLocator() != abs {
		t.Errorf("absolute store should be returned unchanged")
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindProjectRoot = %q, want %q", got, want)
	}
}
