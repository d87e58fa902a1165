package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the YAML configuration.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

// Config represents the top-level YAML configuration file.
type Config struct {
	Include []string      `mapstructure:"include" yaml:"include,omitempty"`
	Restore RestoreConfig `mapstructure:"restore" yaml:"restore"`
	Vault   VaultConfig   `mapstructure:"vault"   yaml:"vault,omitempty"`

	// Per-engine groups
	Postgres DBGroupConfig `mapstructure:"postgres" yaml:"postgres"`
	MySQL    DBGroupConfig `mapstructure:"mysql"    yaml:"mysql"`
}

// RestoreConfig contains global restore options.
type RestoreConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RunDir  string        `mapstructure:"run_dir" yaml:"run_dir,omitempty"`
}

// VaultConfig holds connection settings for HashiCorp Vault.
type VaultConfig struct {
	Address     string `mapstructure:"address"      yaml:"address"`
	ApproleName string `mapstructure:"approle_name" yaml:"approle_name,omitempty"`
}

// EngineDefaults provides common settings for a DB engine.
type EngineDefaults struct {
	Host    string        `mapstructure:"host"    yaml:"host,omitempty"`
	Port    int           `mapstructure:"port"    yaml:"port,omitempty"`
	Tool    string        `mapstructure:"tool"    yaml:"tool,omitempty"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// DBGroupConfig groups common engine settings and Vault prefixes.
type DBGroupConfig struct {
	EngineDefaults `mapstructure:",squash" yaml:",inline"` // inline and squash host, port, tool, timeout

	Vault     VaultPaths   `mapstructure:"vault"     yaml:"vault,omitempty"`
	Instances []DBInstance `mapstructure:"instances" yaml:"instances"`
}

// VaultPaths holds the KV and role prefixes under the Vault mount.
type VaultPaths struct {
	KVBase   string `mapstructure:"kv_base"   yaml:"kv_base,omitempty"`
	RoleBase string `mapstructure:"role_base" yaml:"role_base,omitempty"`
}

// DBInstance represents a single database within a group. Credentials come
// from the first of: Vault role, Vault KV path, PasswordEnv, Password.
type DBInstance struct {
	Name        string         `mapstructure:"name"         yaml:"name"`
	Host        string         `mapstructure:"host"         yaml:"host,omitempty"`
	Port        int            `mapstructure:"port"         yaml:"port,omitempty"`
	Database    string         `mapstructure:"database"     yaml:"database,omitempty"`
	Username    string         `mapstructure:"username"     yaml:"username,omitempty"`
	Password    string         `mapstructure:"password"     yaml:"password,omitempty"`
	PasswordEnv string         `mapstructure:"password_env" yaml:"password_env,omitempty"`
	RoleName    string         `mapstructure:"role_name"    yaml:"role_name,omitempty"`
	KVPath      string         `mapstructure:"kv_path"      yaml:"kv_path,omitempty"`
	Wipe        bool           `mapstructure:"wipe"         yaml:"wipe,omitempty"`
	Artifact    ArtifactConfig `mapstructure:"artifact"     yaml:"artifact"`
	Tunnel      *TunnelConfig  `mapstructure:"tunnel"       yaml:"tunnel,omitempty"`
}

// TunnelConfig describes the SSH hop for instances that are not reachable
// directly.
type TunnelConfig struct {
	Host           string        `mapstructure:"host"             yaml:"host"`
	Port           int           `mapstructure:"port"             yaml:"port,omitempty"`
	User           string        `mapstructure:"user"             yaml:"user,omitempty"`
	PrivateKeyPath string        `mapstructure:"private_key_path" yaml:"private_key_path,omitempty"`
	KnownHostsPath string        `mapstructure:"known_hosts_path" yaml:"known_hosts_path,omitempty"`
	LocalPort      int           `mapstructure:"local_port"       yaml:"local_port,omitempty"`
	RemotePort     int           `mapstructure:"remote_port"      yaml:"remote_port,omitempty"`
	Native         bool          `mapstructure:"native"           yaml:"native,omitempty"`
	Insecure       bool          `mapstructure:"insecure"         yaml:"insecure,omitempty"`
	Timeout        time.Duration `mapstructure:"timeout"          yaml:"timeout,omitempty"`
}

// ArtifactConfig locates the dump to restore and how to decode it.
type ArtifactConfig struct {
	Source      string        `mapstructure:"source"       yaml:"source"` // "local" or "s3"
	Local       LocalArtifact `mapstructure:"local"        yaml:"local,omitempty"`
	S3          S3Artifact    `mapstructure:"s3"           yaml:"s3,omitempty"`
	AgeKeyPath  string        `mapstructure:"age_key_path" yaml:"age_key_path,omitempty"`
	Compression string        `mapstructure:"compression"  yaml:"compression,omitempty"` // "zstd" or empty
}

// LocalArtifact points at a dump file on disk.
type LocalArtifact struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// S3Artifact points at a dump object in an S3-compatible bucket. Key wins
// over Prefix; with Prefix the newest matching object is picked.
type S3Artifact struct {
	Endpoint     string `mapstructure:"endpoint"       yaml:"endpoint,omitempty"`
	Region       string `mapstructure:"region"         yaml:"region,omitempty"`
	Bucket       string `mapstructure:"bucket"         yaml:"bucket"`
	Key          string `mapstructure:"key"            yaml:"key,omitempty"`
	Prefix       string `mapstructure:"prefix"         yaml:"prefix,omitempty"`
	AccessKeyEnv string `mapstructure:"access_key_env" yaml:"access_key_env,omitempty"`
	SecretKeyEnv string `mapstructure:"secret_key_env" yaml:"secret_key_env,omitempty"`
}

// Load reads the configuration from the given YAML file using Viper,
// merges any included files, and unmarshals into the Config struct.
func (c *Config) Load(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Read base configuration
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read base config %s: %v", ErrLoadConfig, path, err)
	}

	// Merge include files (if any)
	for _, inc := range v.GetStringSlice("include") {
		data, err := os.ReadFile(inc)
		if err != nil {
			return fmt.Errorf("%w: read include %s: %v", ErrLoadConfig, inc, err)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("%w: merge include %s: %v", ErrLoadConfig, inc, err)
		}
	}

	// Unmarshal into the Config struct
	if err := v.UnmarshalExact(c); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}

	c.applyDefaults()
	return nil
}

// applyDefaults fills the values the YAML may omit.
func (c *Config) applyDefaults() {
	if c.Restore.Timeout <= 0 {
		c.Restore.Timeout = 10 * time.Minute
	}
	if c.Restore.RunDir == "" {
		c.Restore.RunDir = "./runs"
	}
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.Tool == "" {
		c.Postgres.Tool = "psql"
	}
	if c.MySQL.Host == "" {
		c.MySQL.Host = "localhost"
	}
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.Tool == "" {
		c.MySQL.Tool = "mysql"
	}
}

// Validate checks the loaded configuration for holes that would only blow up
// mid-restore. All failures wrap ErrValidateConfig.
func (c *Config) Validate() error {
	if err := validatePort(c.Postgres.Port, "postgres defaults"); err != nil {
		return err
	}
	if err := validatePort(c.MySQL.Port, "mysql defaults"); err != nil {
		return err
	}
	for _, inst := range c.Postgres.Instances {
		if err := c.validateInstance(inst, "postgres"); err != nil {
			return err
		}
	}
	for _, inst := range c.MySQL.Instances {
		if err := c.validateInstance(inst, "mysql"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateInstance(inst DBInstance, engine string) error {
	if inst.Name == "" {
		return fmt.Errorf("%w: %s instance without a name", ErrValidateConfig, engine)
	}
	if inst.Database == "" {
		return fmt.Errorf("%w: %s instance %q: database is required",
			ErrValidateConfig, engine, inst.Name)
	}
	if inst.Port != 0 {
		if err := validatePort(inst.Port, engine+" instance "+inst.Name); err != nil {
			return err
		}
	}
	if inst.Wipe && engine == "postgres" && inst.Username == "" && inst.RoleName == "" &&
		inst.KVPath == "" {
		return fmt.Errorf("%w: postgres instance %q: wipe needs a username",
			ErrValidateConfig, inst.Name)
	}
	if inst.Tunnel != nil && inst.Tunnel.Host == "" {
		return fmt.Errorf("%w: %s instance %q: tunnel host is required",
			ErrValidateConfig, engine, inst.Name)
	}
	return c.validateArtifact(inst, engine)
}

func (c *Config) validateArtifact(inst DBInstance, engine string) error {
	art := inst.Artifact
	switch art.Source {
	case "", "local":
		if art.Source == "local" && art.Local.Path == "" {
			return fmt.Errorf("%w: %s instance %q: local artifact needs a path",
				ErrValidateConfig, engine, inst.Name)
		}
	case "s3":
		if art.S3.Bucket == "" {
			return fmt.Errorf("%w: %s instance %q: s3 artifact needs a bucket",
				ErrValidateConfig, engine, inst.Name)
		}
		if art.S3.Key == "" && art.S3.Prefix == "" {
			return fmt.Errorf("%w: %s instance %q: s3 artifact needs a key or prefix",
				ErrValidateConfig, engine, inst.Name)
		}
	default:
		return fmt.Errorf("%w: %s instance %q: unknown artifact source %q",
			ErrValidateConfig, engine, inst.Name, art.Source)
	}
	switch art.Compression {
	case "", "zstd":
	default:
		return fmt.Errorf("%w: %s instance %q: unknown compression %q",
			ErrValidateConfig, engine, inst.Name, art.Compression)
	}
	return nil
}

func validatePort(port int, where string) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %s: port %d out of range", ErrValidateConfig, where, port)
	}
	return nil
}
