package command

import (
	"errors"
	"sort"
)

var (
	// ErrSpawn means the process never started (missing binary, bad path,
	// permission denied).
	ErrSpawn = errors.New("command spawn failed")
	// ErrCommandFailed means the process ran and exited non-zero or was
	// killed by a signal.
	ErrCommandFailed = errors.New("command failed")
)

// Spec describes one external command: the program, its arguments, and any
// extra environment entries beyond the parent environment. It carries no
// execution state, so the same Spec can be run, wrapped, or inspected freely.
type Spec struct {
	Program string
	Args    []string
	Env     map[string]string
}

// EnvList renders Env as sorted KEY=VALUE strings, the form os/exec wants.
func (s Spec) EnvList() []string {
	if len(s.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+s.Env[k])
	}
	return list
}

// SecretEnv holds environment entries that carry credentials. They are kept
// out of Spec until the last moment so argv builders and logs never see them.
type SecretEnv map[string]string

// Merge returns a copy of spec with the secret entries folded into its
// environment. The input spec is not modified.
func (e SecretEnv) Merge(spec Spec) Spec {
	if len(e) == 0 {
		return spec
	}
	env := make(map[string]string, len(spec.Env)+len(e))
	for k, v := range spec.Env {
		env[k] = v
	}
	for k, v := range e {
		env[k] = v
	}
	spec.Env = env
	return spec
}
