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

const EngineMySQL = "mysql"

// MySQLOption lets you override default settings on a MySQL.
type MySQLOption func(*MySQL)

// MySQL restores SQL dumps into a MySQL database through the mysql client.
type MySQL struct {
	Username string
	Password string
	Database string
	Host     string
	Port     int
	Tool     string // restore binary, normally "mysql"
	Wipe     bool
	Tunnel   *remote.Tunnel
	Timeout  time.Duration
	Runner   command.Runner
	Logger   logger.Logger
}

// NewMySQL returns a MySQL configured from cfg plus any overrides.
func NewMySQL(cfg config.Config, opts ...MySQLOption) (*MySQL, error) {
	log, err := logger.Init()
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	m := &MySQL{
		Host:    cfg.MySQL.EngineDefaults.Host,
		Port:    cfg.MySQL.EngineDefaults.Port,
		Tool:    cfg.MySQL.EngineDefaults.Tool,
		Timeout: cfg.Restore.Timeout,
		Logger:  log,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.Tool == "" {
		m.Tool = "mysql"
	}
	if m.Timeout <= 0 {
		m.Timeout = 10 * time.Minute
	}
	if m.Runner == nil {
		if m.Tunnel != nil && m.Tunnel.Native {
			m.Runner = remote.Runner{Tunnel: *m.Tunnel, Logger: log}
		} else {
			m.Runner = command.ExecRunner{Logger: log}
		}
	}
	return m, nil
}

// WithMySQLHost overrides the host.
func WithMySQLHost(host string) MySQLOption {
	return func(m *MySQL) {
		if host != "" {
			m.Host = host
		}
	}
}

// WithMySQLPort overrides the port.
func WithMySQLPort(port int) MySQLOption {
	return func(m *MySQL) {
		if port > 0 {
			m.Port = port
		}
	}
}

// WithMySQLCredentials sets username and password.
func WithMySQLCredentials(user, pass string) MySQLOption {
	return func(m *MySQL) {
		if user != "" {
			m.Username = user
		}
		if pass != "" {
			m.Password = pass
		}
	}
}

// WithMySQLDatabase sets the database name.
func WithMySQLDatabase(db string) MySQLOption {
	return func(m *MySQL) {
		if db != "" {
			m.Database = db
		}
	}
}

// WithMySQLTool overrides the restore binary.
func WithMySQLTool(tool string) MySQLOption {
	return func(m *MySQL) {
		if tool != "" {
			m.Tool = tool
		}
	}
}

// WithMySQLWipe enables the destructive database wipe during Init.
func WithMySQLWipe(wipe bool) MySQLOption {
	return func(m *MySQL) {
		m.Wipe = wipe
	}
}

// WithMySQLTunnel routes the restore through an SSH hop.
func WithMySQLTunnel(tunnel *remote.Tunnel) MySQLOption {
	return func(m *MySQL) {
		if tunnel != nil {
			m.Tunnel = tunnel
		}
	}
}

// WithMySQLTimeout overrides the per-operation timeout.
func WithMySQLTimeout(timeout time.Duration) MySQLOption {
	return func(m *MySQL) {
		if timeout > 0 {
			m.Timeout = timeout
		}
	}
}

// WithMySQLRunner overrides how commands execute.
func WithMySQLRunner(runner command.Runner) MySQLOption {
	return func(m *MySQL) {
		if runner != nil {
			m.Runner = runner
		}
	}
}

// Init verifies the restore tool is resolvable, then drops and recreates the
// database when wipe is enabled. The wipe connects without selecting the
// database it is about to drop.
func (m *MySQL) Init() error {
	if err := binaryExists(m.Tool); err != nil {
		return err
	}
	if !m.Wipe {
		return nil
	}

	log := m.Logger
	ctx, cancel := context.WithTimeoutCause(context.Background(), m.Timeout, ErrTimeout)
	defer cancel()

	log.Info("wipe started",
		"database", m.Database,
		"engine", EngineMySQL,
		"host", m.Host,
	)
	spec := command.Spec{
		Program: m.Tool,
		Args:    append(m.connectionArgs(), "-e", wipeStatement(m.Database)),
	}
	if err := m.Runner.Run(ctx, m.route(spec), nil); err != nil {
		return fmt.Errorf("wipe %s: %w", m.Database, wrapTimeout(ctx, err))
	}
	log.Info("wipe completed",
		"database", m.Database,
		"engine", EngineMySQL,
	)
	return nil
}

// Write streams data into the mysql client reading from stdin.
func (m *MySQL) Write(data []byte) error {
	log := m.Logger
	ctx, cancel := context.WithTimeoutCause(context.Background(), m.Timeout, ErrTimeout)
	defer cancel()

	log.Info("restore started",
		"database", m.Database,
		"engine", EngineMySQL,
		"bytes", len(data),
	)
	startTime := time.Now()
	spec := command.Spec{
		Program: m.Tool,
		Args:    append(m.connectionArgs(), m.Database),
	}
	if err := m.Runner.Run(ctx, m.route(spec), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("restore %s: %w", m.Database, wrapTimeout(ctx, err))
	}
	log.Info("restore completed",
		"database", m.Database,
		"engine", EngineMySQL,
		"duration", time.Since(startTime).String(),
	)
	return nil
}

// connectionArgs builds the host/port/user part of the mysql invocation.
// The password never goes here.
func (m *MySQL) connectionArgs() []string {
	return []string{
		"-h", m.Host,
		"-P", strconv.Itoa(m.Port),
		"-u", m.Username,
	}
}

// secrets holds the credentials the mysql client reads from its environment.
func (m *MySQL) secrets() command.SecretEnv {
	return command.SecretEnv{"MYSQL_PWD": m.Password}
}

// route wraps spec for the tunnel when one is configured; otherwise secrets
// fold into the local env overrides.
func (m *MySQL) route(spec command.Spec) command.Spec {
	if m.Tunnel != nil && !m.Tunnel.Native {
		return remote.Command(spec, m.secrets(), *m.Tunnel)
	}
	return m.secrets().Merge(spec)
}

// wipeStatement drops the database with everything in it and recreates it
// empty.
func wipeStatement(database string) string {
	return fmt.Sprintf(
		"DROP DATABASE IF EXISTS `%s`; CREATE DATABASE `%s`;",
		database, database,
	)
}

// GetName returns the database name.
func (m *MySQL) GetName() string { return m.Database }

// GetEngine returns the engine name.
func (m *MySQL) GetEngine() string { return EngineMySQL }
