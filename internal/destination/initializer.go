package destination

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/kebairia/reseed/internal/config"
	"github.com/kebairia/reseed/internal/remote"
	"github.com/kebairia/reseed/internal/vault"
)

var initializers = map[string]func(
	ctx context.Context,
	cfg config.Config,
	vaultClient *vault.Client,
) ([]Destination, error){
	EnginePostgres: InitPostgresInstances,
	EngineMySQL:    InitMySQLInstances,
}

// InitPostgresInstances builds one Postgres destination per configured
// instance, resolving credentials first.
func InitPostgresInstances(
	ctx context.Context,
	cfg config.Config,
	vaultClient *vault.Client,
) ([]Destination, error) {
	var dests []Destination
	for _, instance := range cfg.Postgres.Instances {
		user, pass, err := resolveCredentials(ctx, vaultClient, cfg.Postgres.Vault, instance)
		if err != nil {
			return nil, fmt.Errorf("credentials for %q: %w", instance.Name, err)
		}
		opts := []PostgresOption{
			WithPostgresHost(instance.Host),
			WithPostgresPort(instance.Port),
			WithPostgresCredentials(user, pass),
			WithPostgresDatabase(instance.Database),
			WithPostgresWipe(instance.Wipe),
			WithPostgresTunnel(tunnelFromConfig(instance.Tunnel)),
			WithPostgresTimeout(cfg.Postgres.Timeout),
		}
		dest, err := NewPostgres(cfg, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres instance: %w", err)
		}
		dests = append(dests, dest)
	}
	return dests, nil
}

// InitMySQLInstances builds one MySQL destination per configured instance.
func InitMySQLInstances(
	ctx context.Context,
	cfg config.Config,
	vaultClient *vault.Client,
) ([]Destination, error) {
	var dests []Destination
	for _, instance := range cfg.MySQL.Instances {
		user, pass, err := resolveCredentials(ctx, vaultClient, cfg.MySQL.Vault, instance)
		if err != nil {
			return nil, fmt.Errorf("credentials for %q: %w", instance.Name, err)
		}
		opts := []MySQLOption{
			WithMySQLHost(instance.Host),
			WithMySQLPort(instance.Port),
			WithMySQLCredentials(user, pass),
			WithMySQLDatabase(instance.Database),
			WithMySQLWipe(instance.Wipe),
			WithMySQLTunnel(tunnelFromConfig(instance.Tunnel)),
			WithMySQLTimeout(cfg.MySQL.Timeout),
		}
		dest, err := NewMySQL(cfg, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mysql instance: %w", err)
		}
		dests = append(dests, dest)
	}
	return dests, nil
}

// InitializeDestinations builds every configured destination across engines.
func InitializeDestinations(
	ctx context.Context,
	cfg config.Config,
	vaultClient *vault.Client,
) ([]Destination, error) {
	dests := make([]Destination, 0)
	for engine, initializer := range initializers {
		instances, err := initializer(ctx, cfg, vaultClient)
		if err != nil {
			return nil, fmt.Errorf("initialize %s instances: %w", engine, err)
		}
		dests = append(dests, instances...)
	}
	return dests, nil
}

// resolveCredentials picks the username/password for an instance. A Vault
// role wins over a KV path, which wins over a password environment variable,
// which wins over a password written in the config file.
func resolveCredentials(
	ctx context.Context,
	vaultClient *vault.Client,
	paths config.VaultPaths,
	inst config.DBInstance,
) (string, string, error) {
	switch {
	case inst.RoleName != "":
		if vaultClient == nil {
			return "", "", fmt.Errorf("role %q set but vault is not configured", inst.RoleName)
		}
		creds, err := vaultClient.GetDynamicCredentials(ctx, path.Join(paths.RoleBase, inst.RoleName))
		if err != nil {
			return "", "", fmt.Errorf("vault read: %w", err)
		}
		return creds.Username, creds.Password, nil

	case inst.KVPath != "":
		if vaultClient == nil {
			return "", "", fmt.Errorf("kv path %q set but vault is not configured", inst.KVPath)
		}
		creds, err := vaultClient.GetStaticCredentials(ctx, path.Join(paths.KVBase, inst.KVPath))
		if err != nil {
			return "", "", fmt.Errorf("vault read: %w", err)
		}
		return creds.Username, creds.Password, nil

	case inst.PasswordEnv != "":
		pass := os.Getenv(inst.PasswordEnv)
		if pass == "" {
			return "", "", fmt.Errorf("environment variable %s is empty", inst.PasswordEnv)
		}
		return inst.Username, pass, nil

	default:
		return inst.Username, inst.Password, nil
	}
}

// tunnelFromConfig converts the YAML tunnel block into the remote package's
// tunnel type.
func tunnelFromConfig(tc *config.TunnelConfig) *remote.Tunnel {
	if tc == nil {
		return nil
	}
	return &remote.Tunnel{
		Host:           tc.Host,
		Port:           tc.Port,
		User:           tc.User,
		PrivateKeyPath: tc.PrivateKeyPath,
		KnownHostsPath: tc.KnownHostsPath,
		LocalPort:      tc.LocalPort,
		RemotePort:     tc.RemotePort,
		Native:         tc.Native,
		Insecure:       tc.Insecure,
		Timeout:        tc.Timeout,
	}
}
