package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write YAML: %v", err)
	}
	return path
}

func TestLoad_ParsesRestoreAndInstances(t *testing.T) {
	yaml := `
restore:
  timeout: 3m
  run_dir: "/tmp/reseed-runs"
postgres:
  host: "db.example.com"
  port: 5432
  instances:
    - name: "app"
      database: "app"
      username: "app_user"
      wipe: true
      artifact:
        source: "local"
        local:
          path: "/var/backups/app.sql"
mysql:
  host: "mysql.example.com"
  port: 3306
`
	var cfg Config
	if err := cfg.Load(writeConfig(t, yaml)); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Restore.Timeout != 3*time.Minute {
		t.Fatalf("unexpected timeout: %v", cfg.Restore.Timeout)
	}
	if cfg.Restore.RunDir != "/tmp/reseed-runs" {
		t.Fatalf("unexpected run dir: %q", cfg.Restore.RunDir)
	}
	if cfg.Postgres.Host != "db.example.com" {
		t.Fatalf("unexpected postgres host: %q", cfg.Postgres.Host)
	}
	if len(cfg.Postgres.Instances) != 1 {
		t.Fatalf("expected 1 postgres instance, got %d", len(cfg.Postgres.Instances))
	}

	inst := cfg.Postgres.Instances[0]
	if inst.Name != "app" || inst.Database != "app" || !inst.Wipe {
		t.Fatalf("unexpected instance: %+v", inst)
	}
	if inst.Artifact.Source != "local" || inst.Artifact.Local.Path != "/var/backups/app.sql" {
		t.Fatalf("unexpected artifact: %+v", inst.Artifact)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	yaml := `
postgres:
  instances: []
`
	var cfg Config
	if err := cfg.Load(writeConfig(t, yaml)); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Restore.Timeout != 10*time.Minute {
		t.Fatalf("expected default timeout, got %v", cfg.Restore.Timeout)
	}
	if cfg.Postgres.Port != 5432 || cfg.Postgres.Tool != "psql" {
		t.Fatalf("unexpected postgres defaults: %+v", cfg.Postgres.EngineDefaults)
	}
	if cfg.MySQL.Port != 3306 || cfg.MySQL.Tool != "mysql" {
		t.Fatalf("unexpected mysql defaults: %+v", cfg.MySQL.EngineDefaults)
	}
}

func TestLoad_MergesIncludes(t *testing.T) {
	dir := t.TempDir()
	included := filepath.Join(dir, "postgres.yaml")
	if err := os.WriteFile(included, []byte(`
postgres:
  host: "included.example.com"
`), 0o644); err != nil {
		t.Fatalf("failed to write include: %v", err)
	}

	base := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(base, []byte(`
include:
  - "`+included+`"
restore:
  timeout: 1m
`), 0o644); err != nil {
		t.Fatalf("failed to write base: %v", err)
	}

	var cfg Config
	if err := cfg.Load(base); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Postgres.Host != "included.example.com" {
		t.Fatalf("include not merged, host = %q", cfg.Postgres.Host)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg Config
	err := cfg.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if !errors.Is(err, ErrLoadConfig) {
		t.Fatalf("expected ErrLoadConfig, got %v", err)
	}
}

func TestValidate_InstanceWithoutDatabase(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	cfg.Postgres.Instances = []DBInstance{{Name: "app"}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if !errors.Is(err, ErrValidateConfig) {
		t.Fatalf("expected ErrValidateConfig, got %v", err)
	}
}

func TestValidate_WipeWithoutUsername(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	cfg.Postgres.Instances = []DBInstance{{
		Name:     "app",
		Database: "app",
		Wipe:     true,
	}}

	if err := cfg.Validate(); !errors.Is(err, ErrValidateConfig) {
		t.Fatalf("expected ErrValidateConfig, got %v", err)
	}
}

func TestValidate_PortOutOfRange(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	cfg.Postgres.Instances = []DBInstance{{
		Name:     "app",
		Database: "app",
		Port:     70000,
	}}

	if err := cfg.Validate(); !errors.Is(err, ErrValidateConfig) {
		t.Fatalf("expected ErrValidateConfig, got %v", err)
	}
}

func TestValidate_S3ArtifactNeedsBucket(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	cfg.MySQL.Instances = []DBInstance{{
		Name:     "shop",
		Database: "shop",
		Artifact: ArtifactConfig{Source: "s3"},
	}}

	if err := cfg.Validate(); !errors.Is(err, ErrValidateConfig) {
		t.Fatalf("expected ErrValidateConfig, got %v", err)
	}
}

func TestValidate_UnknownCompression(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	cfg.Postgres.Instances = []DBInstance{{
		Name:     "app",
		Database: "app",
		Artifact: ArtifactConfig{
			Source:      "local",
			Local:       LocalArtifact{Path: "/var/backups/app.sql"},
			Compression: "gzip",
		},
	}}

	if err := cfg.Validate(); !errors.Is(err, ErrValidateConfig) {
		t.Fatalf("expected ErrValidateConfig, got %v", err)
	}
}

func TestValidate_HappyPath(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	cfg.Postgres.Instances = []DBInstance{{
		Name:     "app",
		Database: "app",
		Username: "app_user",
		Wipe:     true,
		Artifact: ArtifactConfig{
			Source: "s3",
			S3:     S3Artifact{Bucket: "backups", Prefix: "app/"},
		},
		Tunnel: &TunnelConfig{Host: "bastion"},
	}}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
