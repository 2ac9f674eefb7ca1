package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points HOME at a temp dir and clears PODPOST_* variables.
func isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"PODPOST_HOST", "PODPOST_SCHEME", "PODPOST_USERNAME", "PODPOST_PASSWORD",
		"PODPOST_DB", "PODPOST_OUTBOX", "PODPOST_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return home
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Pod.Scheme != SchemeHTTPS {
		t.Errorf("Scheme = %q, want https", cfg.Pod.Scheme)
	}
	if cfg.Pod.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Pod.Timeout)
	}
	if cfg.Pod.Provider == "" {
		t.Error("Provider not set")
	}
	if cfg.Storage.DBPath == "" {
		t.Error("DBPath not set")
	}
	if cfg.Outbox.Debounce <= 0 {
		t.Error("Debounce not set")
	}
	if len(cfg.Outbox.DefaultAspects) != 1 || cfg.Outbox.DefaultAspects[0] != "public" {
		t.Errorf("DefaultAspects = %v, want [public]", cfg.Outbox.DefaultAspects)
	}
	if cfg.Logging.Level == "" {
		t.Error("Log level not set")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:   "valid default config",
			modify: func(*Config) {},
		},
		{
			name:   "host with port",
			modify: func(c *Config) { c.Pod.Host = "pod.example:3000" },
		},
		{
			name:    "host with scheme",
			modify:  func(c *Config) { c.Pod.Host = "https://pod.example" },
			wantErr: ErrInvalidHost,
		},
		{
			name:    "host with path",
			modify:  func(c *Config) { c.Pod.Host = "pod.example/users" },
			wantErr: ErrInvalidHost,
		},
		{
			name:    "invalid scheme",
			modify:  func(c *Config) { c.Pod.Scheme = "ftp" },
			wantErr: ErrInvalidScheme,
		},
		{
			name:    "invalid timeout",
			modify:  func(c *Config) { c.Pod.Timeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "invalid debounce",
			modify:  func(c *Config) { c.Outbox.Debounce = -time.Second },
			wantErr: ErrInvalidDebounce,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePod(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidatePod(); !errors.Is(err, ErrNoHost) {
		t.Errorf("ValidatePod() error = %v, want ErrNoHost", err)
	}

	cfg.Pod.Host = "pod.example"
	if err := cfg.ValidatePod(); err != nil {
		t.Errorf("ValidatePod() error = %v, want nil", err)
	}

	cfg.Pod.Scheme = "gopher"
	if err := cfg.ValidatePod(); !errors.Is(err, ErrInvalidScheme) {
		t.Errorf("ValidatePod() error = %v, want ErrInvalidScheme", err)
	}
}

func TestPodConfigURL(t *testing.T) {
	p := PodConfig{Host: "pod.example", Scheme: SchemeHTTPS}
	if got := p.URL(); got != "https://pod.example" {
		t.Errorf("URL() = %q", got)
	}
	if !p.UseHTTPS() {
		t.Error("UseHTTPS() = false for https")
	}

	p.Scheme = SchemeHTTP
	if got := p.URL(); got != "http://pod.example" {
		t.Errorf("URL() = %q", got)
	}
	if p.UseHTTPS() {
		t.Error("UseHTTPS() = true for http")
	}
}

func TestLoaderLoadFromFile(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		content string
		create  bool
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name:   "valid config",
			create: true,
			content: `
pod:
  host: pod.example
  scheme: HTTP
  timeout: 15s
  provider: my-blog
account:
  username: alice
  password: secret
outbox:
  dir: /tmp/outbox
  debounce: 2s
  default_aspects: ["1", "2"]
logging:
  level: debug
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Pod.Host != "pod.example" {
					t.Errorf("Host = %q", cfg.Pod.Host)
				}
				if cfg.Pod.Scheme != SchemeHTTP {
					t.Errorf("Scheme = %q, want http", cfg.Pod.Scheme)
				}
				if cfg.Pod.Timeout != 15*time.Second {
					t.Errorf("Timeout = %v", cfg.Pod.Timeout)
				}
				if cfg.Pod.Provider != "my-blog" {
					t.Errorf("Provider = %q", cfg.Pod.Provider)
				}
				if cfg.Account.Username != "alice" || cfg.Account.Password != "secret" {
					t.Errorf("Account = %+v", cfg.Account)
				}
				if cfg.Outbox.Dir != "/tmp/outbox" || cfg.Outbox.Debounce != 2*time.Second {
					t.Errorf("Outbox = %+v", cfg.Outbox)
				}
				if strings.Join(cfg.Outbox.DefaultAspects, ",") != "1,2" {
					t.Errorf("DefaultAspects = %v", cfg.Outbox.DefaultAspects)
				}
				if cfg.Logging.Level != "debug" {
					t.Errorf("Level = %q", cfg.Logging.Level)
				}
				// Untouched sections keep their defaults.
				if cfg.Logging.Format != "text" {
					t.Errorf("Format = %q, want default text", cfg.Logging.Format)
				}
			},
		},
		{
			name:    "partial config",
			create:  true,
			content: "pod:\n  host: pod.example\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Pod.Scheme != SchemeHTTPS {
					t.Errorf("Scheme = %q, want default https", cfg.Pod.Scheme)
				}
				if cfg.Pod.Timeout != 60*time.Second {
					t.Errorf("Timeout = %v, want default", cfg.Pod.Timeout)
				}
			},
		},
		{
			name:    "invalid yaml",
			create:  true,
			content: "pod: [unclosed",
			wantErr: true,
		},
		{
			name:    "invalid values",
			create:  true,
			content: "pod:\n  scheme: ftp\n",
			wantErr: true,
		},
		{
			name:    "non-existent file",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			if tt.create {
				if err := os.WriteFile(filePath, []byte(tt.content), 0600); err != nil {
					t.Fatalf("Failed to create test file: %v", err)
				}
			}

			cfg, err := NewLoader(filePath).Load()

			if tt.wantErr {
				if err == nil {
					t.Error("Load() error = nil, wantErr = true")
				}
				return
			}

			if err != nil {
				t.Fatalf("Load() error = %v, wantErr = false", err)
			}

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoaderErrors(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()

	_, err := NewLoader("").LoadFromFile(filepath.Join(tmpDir, "missing.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadFromFile() error = %v, want ErrConfigNotFound", err)
	}

	bad := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("pod: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err = NewLoader("").LoadFromFile(bad)
	if !errors.Is(err, ErrInvalidYAML) {
		t.Errorf("LoadFromFile() error = %v, want ErrInvalidYAML", err)
	}
}

func TestLoad(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	want := filepath.Join(home, ".config", "podpost", "podpost.db")
	if cfg.Storage.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.Storage.DBPath, want)
	}
}

func TestLoadFindsUserConfig(t *testing.T) {
	isolate(t)

	path := DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("pod:\n  host: found.example\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if got := FindConfigFile(); got != path {
		t.Errorf("FindConfigFile() = %q, want %q", got, path)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pod.Host != "found.example" {
		t.Errorf("Host = %q, want found.example", cfg.Pod.Host)
	}
}

func TestSave(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Pod.Host = "pod.example"
	cfg.Logging.Level = "debug"
	cfg.Outbox.Debounce = 3 * time.Second

	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Config file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	loadedCfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if loadedCfg.Logging.Level != "debug" {
		t.Errorf("Loaded config LogLevel = %s, want debug", loadedCfg.Logging.Level)
	}
	if loadedCfg.Pod.Host != "pod.example" {
		t.Errorf("Loaded config Host = %s, want pod.example", loadedCfg.Pod.Host)
	}
	if loadedCfg.Outbox.Debounce != 3*time.Second {
		t.Errorf("Loaded config Debounce = %v, want 3s", loadedCfg.Outbox.Debounce)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Pod.Scheme = "ftp"

	if err := Save(cfg, filepath.Join(t.TempDir(), "config.yaml")); err == nil {
		t.Error("Save() error = nil for invalid config")
	}
}

func TestEnvVarOverrides(t *testing.T) {
	isolate(t)

	t.Setenv("PODPOST_HOST", " env.example ")
	t.Setenv("PODPOST_SCHEME", "HTTP")
	t.Setenv("PODPOST_USERNAME", "bob")
	t.Setenv("PODPOST_PASSWORD", "hunter2")
	t.Setenv("PODPOST_DB", "/env/podpost.db")
	t.Setenv("PODPOST_OUTBOX", "/env/outbox")
	t.Setenv("PODPOST_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Pod.Host != "env.example" {
		t.Errorf("Host = %q, want env.example", cfg.Pod.Host)
	}
	if cfg.Pod.Scheme != SchemeHTTP {
		t.Errorf("Scheme = %q, want http", cfg.Pod.Scheme)
	}
	if cfg.Account.Username != "bob" || cfg.Account.Password != "hunter2" {
		t.Errorf("Account = %+v", cfg.Account)
	}
	if cfg.Storage.DBPath != "/env/podpost.db" {
		t.Errorf("DBPath = %s, want /env/podpost.db", cfg.Storage.DBPath)
	}
	if cfg.Outbox.Dir != "/env/outbox" {
		t.Errorf("Outbox.Dir = %s, want /env/outbox", cfg.Outbox.Dir)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.Logging.Level)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("pod:\n  host: file.example\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PODPOST_HOST", "env.example")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Pod.Host != "env.example" {
		t.Errorf("Host = %q, want env.example", cfg.Pod.Host)
	}
}

func BenchmarkValidate(b *testing.B) {
	cfg := Default()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := cfg.Validate(); err != nil {
			b.Fatal(err)
		}
	}
}
