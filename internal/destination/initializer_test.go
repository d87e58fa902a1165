package destination

import (
	"context"
	"testing"

	"github.com/kebairia/reseed/internal/config"
)

func TestResolveCredentials_PasswordEnvWinsOverConfig(t *testing.T) {
	t.Setenv("RESEED_TEST_PASSWORD", "from-env")
	inst := config.DBInstance{
		Name:        "app",
		Username:    "app_user",
		Password:    "from-config",
		PasswordEnv: "RESEED_TEST_PASSWORD",
	}

	user, pass, err := resolveCredentials(context.Background(), nil, config.VaultPaths{}, inst)
	if err != nil {
		t.Fatalf("resolveCredentials returned error: %v", err)
	}
	if user != "app_user" || pass != "from-env" {
		t.Fatalf("unexpected credentials: %q / %q", user, pass)
	}
}

func TestResolveCredentials_ConfigPasswordFallback(t *testing.T) {
	inst := config.DBInstance{Name: "app", Username: "app_user", Password: "from-config"}

	user, pass, err := resolveCredentials(context.Background(), nil, config.VaultPaths{}, inst)
	if err != nil {
		t.Fatalf("resolveCredentials returned error: %v", err)
	}
	if user != "app_user" || pass != "from-config" {
		t.Fatalf("unexpected credentials: %q / %q", user, pass)
	}
}

func TestResolveCredentials_EmptyEnvVarFails(t *testing.T) {
	inst := config.DBInstance{Name: "app", PasswordEnv: "RESEED_TEST_UNSET_4242"}

	if _, _, err := resolveCredentials(context.Background(), nil, config.VaultPaths{}, inst); err == nil {
		t.Fatal("expected an error for an empty password env var")
	}
}

func TestResolveCredentials_RoleNeedsVault(t *testing.T) {
	inst := config.DBInstance{Name: "app", RoleName: "app-restore"}

	if _, _, err := resolveCredentials(context.Background(), nil, config.VaultPaths{}, inst); err == nil {
		t.Fatal("expected an error when vault is not configured")
	}
}

func TestInitPostgresInstances_FromConfig(t *testing.T) {
	cfg := config.Config{}
	cfg.Postgres.Host = "default.example.com"
	cfg.Postgres.Port = 5432
	cfg.Postgres.Instances = []config.DBInstance{{
		Name:     "app",
		Host:     "db.example.com",
		Database: "app",
		Username: "app_user",
		Password: "hunter2",
		Wipe:     true,
	}}

	dests, err := InitPostgresInstances(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("InitPostgresInstances returned error: %v", err)
	}
	if len(dests) != 1 {
		t.Fatalf("expected 1 destination, got %d", len(dests))
	}

	p, ok := dests[0].(*Postgres)
	if !ok {
		t.Fatalf("expected *Postgres, got %T", dests[0])
	}
	if p.Host != "db.example.com" {
		t.Fatalf("instance host should override the default, got %q", p.Host)
	}
	if !p.Wipe || p.Tool != "psql" || p.Password != "hunter2" {
		t.Fatalf("unexpected destination: %+v", p)
	}
}

func TestInitializeDestinations_AllEngines(t *testing.T) {
	cfg := config.Config{}
	cfg.Postgres.Instances = []config.DBInstance{{
		Name: "app", Database: "app", Username: "app_user", Password: "x",
	}}
	cfg.MySQL.Instances = []config.DBInstance{{
		Name: "shop", Database: "shop", Username: "shop_user", Password: "y",
	}}

	dests, err := InitializeDestinations(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("InitializeDestinations returned error: %v", err)
	}
	if len(dests) != 2 {
		t.Fatalf("expected 2 destinations, got %d", len(dests))
	}

	engines := map[string]bool{}
	for _, d := range dests {
		engines[d.GetEngine()] = true
	}
	if !engines[EnginePostgres] || !engines[EngineMySQL] {
		t.Fatalf("missing engine coverage: %v", engines)
	}
}

func TestTunnelFromConfig(t *testing.T) {
	if tunnelFromConfig(nil) != nil {
		t.Fatal("nil config must map to nil tunnel")
	}

	tc := &config.TunnelConfig{Host: "bastion", User: "deploy", Port: 2222, Native: true}
	tunnel := tunnelFromConfig(tc)
	if tunnel == nil {
		t.Fatal("expected a tunnel")
	}
	if tunnel.Host != "bastion" || tunnel.User != "deploy" || tunnel.Port != 2222 || !tunnel.Native {
		t.Fatalf("unexpected tunnel: %+v", tunnel)
	}
}
