package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSpecEnvList_SortedPairs(t *testing.T) {
	spec := Spec{
		Program: "psql",
		Env: map[string]string{
			"ZZZ": "last",
			"AAA": "first",
		},
	}
	list := spec.EnvList()
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if list[0] != "AAA=first" || list[1] != "ZZZ=last" {
		t.Fatalf("unexpected env list: %v", list)
	}
}

func TestSpecEnvList_EmptyEnv(t *testing.T) {
	if got := (Spec{Program: "psql"}).EnvList(); got != nil {
		t.Fatalf("expected nil for empty env, got %v", got)
	}
}

func TestSecretEnvMerge_DoesNotMutateInput(t *testing.T) {
	spec := Spec{
		Program: "psql",
		Env:     map[string]string{"PGOPTIONS": "-c statement_timeout=0"},
	}
	secrets := SecretEnv{"PGPASSWORD": "hunter2"}

	merged := secrets.Merge(spec)

	if _, ok := spec.Env["PGPASSWORD"]; ok {
		t.Fatal("Merge mutated the original spec")
	}
	if merged.Env["PGPASSWORD"] != "hunter2" {
		t.Fatalf("secret missing from merged env: %v", merged.Env)
	}
	if merged.Env["PGOPTIONS"] != "-c statement_timeout=0" {
		t.Fatalf("existing entry lost: %v", merged.Env)
	}
}

func TestSecretEnvMerge_EmptySecretsReturnsSpecUnchanged(t *testing.T) {
	spec := Spec{Program: "psql", Env: map[string]string{"A": "1"}}
	merged := SecretEnv(nil).Merge(spec)
	if merged.Env["A"] != "1" || len(merged.Env) != 1 {
		t.Fatalf("unexpected env: %v", merged.Env)
	}
}

func TestExecRunner_ZeroExit(t *testing.T) {
	r := ExecRunner{}
	spec := Spec{Program: "sh", Args: []string{"-c", "exit 0"}}
	if err := r.Run(context.Background(), spec, nil); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := ExecRunner{}
	spec := Spec{Program: "sh", Args: []string{"-c", "exit 3"}}
	err := r.Run(context.Background(), spec, nil)
	if err == nil {
		t.Fatal("expected an error for exit status 3")
	}
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "exit status 3") {
		t.Fatalf("error should carry the exit status, got %q", err)
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := ExecRunner{}
	spec := Spec{Program: "definitely-not-a-real-binary-4242"}
	err := r.Run(context.Background(), spec, nil)
	if err == nil {
		t.Fatal("expected an error for a missing binary")
	}
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
}

func TestExecRunner_StreamsStdinAndEnv(t *testing.T) {
	out := filepath.Join(t.TempDir(), "payload")
	r := ExecRunner{}
	spec := Spec{
		Program: "sh",
		Args:    []string{"-c", `cat > "$OUT_FILE"`},
		Env:     map[string]string{"OUT_FILE": out},
	}
	payload := []byte("CREATE TABLE t (id int);\n")

	if err := r.Run(context.Background(), spec, bytes.NewReader(payload)); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading payload file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %q", got)
	}
}

// A process that exits before draining stdin must still count as a success;
// the short write alone is not an error.
func TestExecRunner_EarlyExitIgnoresStdinError(t *testing.T) {
	r := ExecRunner{}
	spec := Spec{Program: "sh", Args: []string{"-c", "exit 0"}}
	big := bytes.Repeat([]byte("x"), 4<<20)

	if err := r.Run(context.Background(), spec, bytes.NewReader(big)); err != nil {
		t.Fatalf("expected success despite unread stdin, got %v", err)
	}
}

func TestExecRunner_ContextCancelKillsProcess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	r := ExecRunner{}
	spec := Spec{Program: "sh", Args: []string{"-c", "sleep 10"}}
	err := r.Run(ctx, spec, nil)
	if err == nil {
		t.Fatal("expected an error once the context expired")
	}
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
}
