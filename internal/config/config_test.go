package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test decode defaults
	if cfg.Decode.NarrowEncoding != "shift_jis" {
		t.Errorf("expected narrow encoding 'shift_jis', got %s", cfg.Decode.NarrowEncoding)
	}
	if cfg.Decode.Batch {
		t.Error("expected batch to be false by default")
	}
	if !cfg.Decode.KeepAdditionalUVs {
		t.Error("expected keep_additional_uvs to be true by default")
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
decode:
  narrow_encoding: "windows-1252"
  batch: true
  keep_additional_uvs: false

logging:
  level: "debug"
  log_file: "mmdtool.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Decode.NarrowEncoding != "windows-1252" {
		t.Errorf("expected narrow encoding 'windows-1252', got %s", cfg.Decode.NarrowEncoding)
	}
	if !cfg.Decode.Batch {
		t.Error("expected batch to be true")
	}
	if cfg.Decode.KeepAdditionalUVs {
		t.Error("expected keep_additional_uvs to be false")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "mmdtool.log" {
		t.Errorf("expected log file 'mmdtool.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("decode:\n  batch: true\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Keys missing from the file keep their defaults
	if cfg.Decode.NarrowEncoding != "shift_jis" {
		t.Errorf("expected default narrow encoding, got %s", cfg.Decode.NarrowEncoding)
	}
	if !cfg.Decode.KeepAdditionalUVs {
		t.Error("expected keep_additional_uvs default to survive")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
decode:
  batch: not a bool
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileUnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("decode:\n  narow_encoding: euc-jp\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error for misspelled key, got nil")
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("empty file should load: %v", err)
	}
	if cfg.Decode.NarrowEncoding != "shift_jis" {
		t.Errorf("empty file changed defaults: %+v", cfg)
	}
}

func TestFindConfigFileEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv(EnvConfig, path)

	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty encoding means default", func(c *Config) { c.Decode.NarrowEncoding = "" }, false},
		{"euc-jp", func(c *Config) { c.Decode.NarrowEncoding = "euc-jp" }, false},
		{"unknown encoding", func(c *Config) { c.Decode.NarrowEncoding = "klingon" }, true},
		{"warn level", func(c *Config) { c.Logging.Level = "warn" }, false},
		{"unknown level", func(c *Config) { c.Logging.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create config.yaml in current directory
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("decode:\n  batch: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "encoding flag",
			setup: func() {
				*flagEncoding = "euc-jp"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Decode.NarrowEncoding != "euc-jp" {
					t.Errorf("expected narrow encoding 'euc-jp', got %s", cfg.Decode.NarrowEncoding)
				}
			},
			teardown: func() {
				*flagEncoding = ""
			},
		},
		{
			name: "batch flag",
			setup: func() {
				*flagBatch = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Decode.Batch {
					t.Error("expected batch to be enabled with batch flag")
				}
			},
			teardown: func() {
				*flagBatch = false
			},
		},
		{
			name: "log file flag",
			setup: func() {
				*flagLogFile = "/tmp/mmdtool.log"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.LogFile != "/tmp/mmdtool.log" {
					t.Errorf("expected log file '/tmp/mmdtool.log', got %s", cfg.Logging.LogFile)
				}
			},
			teardown: func() {
				*flagLogFile = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			tt.setup()
			defer tt.teardown()

			// Apply flags to default config
			cfg := Default()
			applyFlags(cfg)

			// Verify
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
decode:
  narrow_encoding: "euc-jp"
  keep_additional_uvs: false
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagEncoding = "shift_jis"
	defer func() {
		*flagConfig = ""
		*flagEncoding = ""
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Encoding should be from flag, not file
	if cfg.Decode.NarrowEncoding != "shift_jis" {
		t.Errorf("expected narrow encoding 'shift_jis' from flag, got %s", cfg.Decode.NarrowEncoding)
	}

	// keep_additional_uvs should be from file since no flag overrides it
	if cfg.Decode.KeepAdditionalUVs {
		t.Error("expected keep_additional_uvs false from file")
	}
}

func TestLoadInvalidEncoding(t *testing.T) {
	*flagEncoding = "klingon"
	defer func() { *flagEncoding = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown encoding, got nil")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Decode.Batch = true
	cfg.Logging.Level = "warn"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if !loaded.Decode.Batch || loaded.Logging.Level != "warn" {
		t.Errorf("saved config did not round-trip: %+v", loaded)
	}
}
