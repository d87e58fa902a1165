package operations

import (
	"context"
	"fmt"
	"os"

	"github.com/kebairia/reseed/internal/config"
	"github.com/kebairia/reseed/internal/destination"
	"github.com/kebairia/reseed/internal/logger"
	"github.com/kebairia/reseed/internal/vault"
)

// Operator wires configuration, credentials, and logging for restore runs.
type Operator struct {
	ctx         context.Context
	cfg         config.Config
	vaultClient *vault.Client
	log         logger.Logger
}

// NewOperator loads and validates the YAML config at configPath. A Vault
// client is prepared only when the config names a Vault address; the AppRole
// role id rides in VAULT_ROLE_ID so it never sits in the YAML.
func NewOperator(ctx context.Context, configPath string) (*Operator, error) {
	var cfg config.Config
	if err := cfg.Load(configPath); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var vaultClient *vault.Client
	if cfg.Vault.Address != "" {
		client, err := vault.NewClient(ctx,
			vault.WithAddress(cfg.Vault.Address),
			vault.WithAppRole(os.Getenv("VAULT_ROLE_ID"), cfg.Vault.ApproleName),
		)
		if err != nil {
			return nil, fmt.Errorf("vault client init: %w", err)
		}
		vaultClient = client
	}

	log := logger.Global()

	return &Operator{
		ctx:         ctx,
		cfg:         cfg,
		vaultClient: vaultClient,
		log:         log,
	}, nil
}

// job pairs a built destination with the instance block it came from, so the
// restore pipeline can reach the artifact settings.
type job struct {
	dest destination.Destination
	inst config.DBInstance
}

// jobs builds every configured destination alongside its instance config.
// Initializers return destinations in config order, which keeps the pairing
// by index honest.
func (o *Operator) jobs() ([]job, error) {
	var jobs []job

	pgDests, err := destination.InitPostgresInstances(o.ctx, o.cfg, o.vaultClient)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres instances: %w", err)
	}
	for i, dest := range pgDests {
		jobs = append(jobs, job{dest: dest, inst: o.cfg.Postgres.Instances[i]})
	}

	myDests, err := destination.InitMySQLInstances(o.ctx, o.cfg, o.vaultClient)
	if err != nil {
		return nil, fmt.Errorf("initialize mysql instances: %w", err)
	}
	for i, dest := range myDests {
		jobs = append(jobs, job{dest: dest, inst: o.cfg.MySQL.Instances[i]})
	}

	return jobs, nil
}
