package remote

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kebairia/reseed/internal/command"
)

// Tunnel describes the SSH hop in front of a database that is not reachable
// directly. The zero value is unusable; Host is the only strictly required
// field, everything else has sensible defaults.
type Tunnel struct {
	Host           string
	Port           int
	User           string
	PrivateKeyPath string
	KnownHostsPath string
	LocalPort      int
	RemotePort     int
	Native         bool
	Insecure       bool
	Timeout        time.Duration
}

// target renders the destination argument for the ssh client.
func (t Tunnel) target() string {
	if t.User != "" {
		return t.User + "@" + t.Host
	}
	return t.Host
}

// Command rewrites spec so it executes on the tunnel host via the ssh client.
// ssh does not forward the local environment to non-interactive commands, so
// env overrides and secrets are re-exported inside the remote invocation,
// scoped to that invocation only.
func Command(spec command.Spec, secrets command.SecretEnv, tunnel Tunnel) command.Spec {
	var args []string
	if tunnel.Port > 0 {
		args = append(args, "-p", strconv.Itoa(tunnel.Port))
	}
	if tunnel.PrivateKeyPath != "" {
		args = append(args, "-i", tunnel.PrivateKeyPath)
	}
	args = append(args, "-o", "BatchMode=yes")
	if tunnel.LocalPort > 0 && tunnel.RemotePort > 0 {
		args = append(args, "-L",
			fmt.Sprintf("%d:localhost:%d", tunnel.LocalPort, tunnel.RemotePort))
	}
	args = append(args, tunnel.target(), remoteLine(spec, secrets))

	return command.Spec{Program: "ssh", Args: args}
}

// remoteLine renders spec as one shell command line, prefixed by export
// statements for its env overrides and the secrets. Exports always come
// before the program so the tool sees them at startup.
func remoteLine(spec command.Spec, secrets command.SecretEnv) string {
	var b strings.Builder
	for _, k := range sortedKeys(spec.Env) {
		b.WriteString("export " + k + "=" + quote(spec.Env[k]) + "; ")
	}
	for _, k := range sortedKeys(secrets) {
		b.WriteString("export " + k + "=" + quote(secrets[k]) + "; ")
	}
	b.WriteString(quote(spec.Program))
	for _, arg := range spec.Args {
		b.WriteByte(' ')
		b.WriteString(quote(arg))
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// safeArg matches values the remote shell treats as plain words.
var safeArg = regexp.MustCompile(`^[a-zA-Z0-9_@%+=:,./-]+$`)

// quote single-quotes value for the remote shell unless every character is
// shell-neutral. Embedded single quotes close the quote, emit an escaped
// quote, and reopen it.
func quote(value string) string {
	if value == "" {
		return "''"
	}
	if safeArg.MatchString(value) {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
