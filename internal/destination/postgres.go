package destination

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kebairia/reseed/internal/command"
	"github.com/kebairia/reseed/internal/config"
	"github.com/kebairia/reseed/internal/logger"
	"github.com/kebairia/reseed/internal/remote"
)

const EnginePostgres = "postgres"

// PostgresOption lets you override default settings on a Postgres.
type PostgresOption func(*Postgres)

// Postgres restores SQL dumps into a PostgreSQL database through psql.
type Postgres struct {
	Username string
	Password string
	Database string
	Host     string
	Port     int
	Tool     string // restore binary, normally "psql"
	Wipe     bool
	Tunnel   *remote.Tunnel
	Timeout  time.Duration
	Runner   command.Runner
	Logger   logger.Logger
}

// NewPostgres returns a Postgres configured from cfg plus any overrides.
// It also initializes the global logger.
func NewPostgres(cfg config.Config, opts ...PostgresOption) (*Postgres, error) {
	log, err := logger.Init()
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	p := &Postgres{
		Host:    cfg.Postgres.EngineDefaults.Host,
		Port:    cfg.Postgres.EngineDefaults.Port,
		Tool:    cfg.Postgres.EngineDefaults.Tool,
		Timeout: cfg.Restore.Timeout,
		Logger:  log,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.Tool == "" {
		p.Tool = "psql"
	}
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Minute
	}
	// Runner selection happens after options so a tunnel set there counts.
	if p.Runner == nil {
		if p.Tunnel != nil && p.Tunnel.Native {
			p.Runner = remote.Runner{Tunnel: *p.Tunnel, Logger: log}
		} else {
			p.Runner = command.ExecRunner{Logger: log}
		}
	}
	return p, nil
}

// WithPostgresHost overrides the host.
func WithPostgresHost(host string) PostgresOption {
	return func(p *Postgres) {
		if host != "" {
			p.Host = host
		}
	}
}

// WithPostgresPort overrides the port.
func WithPostgresPort(port int) PostgresOption {
	return func(p *Postgres) {
		if port > 0 {
			p.Port = port
		}
	}
}

// WithPostgresCredentials sets username and password.
func WithPostgresCredentials(user, pass string) PostgresOption {
	return func(p *Postgres) {
		if user != "" {
			p.Username = user
		}
		if pass != "" {
			p.Password = pass
		}
	}
}

// WithPostgresDatabase overrides the database name.
func WithPostgresDatabase(db string) PostgresOption {
	return func(p *Postgres) {
		if db != "" {
			p.Database = db
		}
	}
}

// WithPostgresTool overrides the restore binary.
func WithPostgresTool(tool string) PostgresOption {
	return func(p *Postgres) {
		if tool != "" {
			p.Tool = tool
		}
	}
}

// WithPostgresWipe enables the destructive schema wipe during Init.
func WithPostgresWipe(wipe bool) PostgresOption {
	return func(p *Postgres) {
		p.Wipe = wipe
	}
}

// WithPostgresTunnel routes the restore through an SSH hop.
func WithPostgresTunnel(tunnel *remote.Tunnel) PostgresOption {
	return func(p *Postgres) {
		if tunnel != nil {
			p.Tunnel = tunnel
		}
	}
}

// WithPostgresTimeout overrides the per-operation timeout.
func WithPostgresTimeout(timeout time.Duration) PostgresOption {
	return func(p *Postgres) {
		if timeout > 0 {
			p.Timeout = timeout
		}
	}
}

// WithPostgresRunner overrides how commands execute.
func WithPostgresRunner(runner command.Runner) PostgresOption {
	return func(p *Postgres) {
		if runner != nil {
			p.Runner = runner
		}
	}
}

// Init verifies the restore tool is resolvable, then wipes the public schema
// when wipe is enabled. The tool check comes first so a missing binary never
// reaches the network.
func (p *Postgres) Init() error {
	if err := binaryExists(p.Tool); err != nil {
		return err
	}
	if !p.Wipe {
		return nil
	}

	log := p.Logger
	ctx, cancel := context.WithTimeoutCause(context.Background(), p.Timeout, ErrTimeout)
	defer cancel()

	log.Info("wipe started",
		"database", p.Database,
		"engine", EnginePostgres,
		"host", p.Host,
	)
	spec := p.spec("-c", wipeQuery(p.Username))
	if err := p.Runner.Run(ctx, p.route(spec), nil); err != nil {
		return fmt.Errorf("wipe %s: %w", p.Database, wrapTimeout(ctx, err))
	}
	log.Info("wipe completed",
		"database", p.Database,
		"engine", EnginePostgres,
	)
	return nil
}

// Write streams data into psql reading from stdin. A run that dies
// mid-stream may leave the target partially restored; only pass/fail is
// reported.
func (p *Postgres) Write(data []byte) error {
	log := p.Logger
	ctx, cancel := context.WithTimeoutCause(context.Background(), p.Timeout, ErrTimeout)
	defer cancel()

	log.Info("restore started",
		"database", p.Database,
		"engine", EnginePostgres,
		"bytes", len(data),
	)
	startTime := time.Now()
	if err := p.Runner.Run(ctx, p.route(p.spec()), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("restore %s: %w", p.Database, wrapTimeout(ctx, err))
	}
	log.Info("restore completed",
		"database", p.Database,
		"engine", EnginePostgres,
		"duration", time.Since(startTime).String(),
	)
	return nil
}

// spec builds the psql invocation for this target; extra args follow the
// connection args, e.g. "-c" plus a statement. The password never goes here.
func (p *Postgres) spec(extra ...string) command.Spec {
	args := []string{
		"-h", p.Host,
		"-p", strconv.Itoa(p.Port),
		"-d", p.Database,
		"-U", p.Username,
	}
	args = append(args, extra...)
	return command.Spec{Program: p.Tool, Args: args}
}

// secrets holds the credentials psql reads from its environment.
func (p *Postgres) secrets() command.SecretEnv {
	return command.SecretEnv{"PGPASSWORD": p.Password}
}

// route wraps spec for the tunnel when one is configured; otherwise secrets
// fold into the local env overrides.
func (p *Postgres) route(spec command.Spec) command.Spec {
	if p.Tunnel != nil && !p.Tunnel.Native {
		return remote.Command(spec, p.secrets(), *p.Tunnel)
	}
	return p.secrets().Merge(spec)
}

// wipeQuery drops the public schema with everything in it, recreates it
// empty, and grants full privileges back to username and the public role.
func wipeQuery(username string) string {
	return fmt.Sprintf(
		`DROP SCHEMA public CASCADE; CREATE SCHEMA public; GRANT ALL ON SCHEMA public TO "%s"; GRANT ALL ON SCHEMA public TO public;`,
		username,
	)
}

// GetName returns the database name.
func (p *Postgres) GetName() string { return p.Database }

// GetEngine returns the engine name.
func (p *Postgres) GetEngine() string { return EnginePostgres }
