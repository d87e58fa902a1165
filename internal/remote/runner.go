package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/kebairia/reseed/internal/command"
	"github.com/kebairia/reseed/internal/logger"
)

// Runner executes specs on the tunnel host over a native SSH connection
// instead of shelling out to the ssh client. Host keys are verified against
// known_hosts unless the tunnel is marked insecure.
type Runner struct {
	Tunnel Tunnel
	Logger logger.Logger
}

// Ensure Runner satisfies command.Runner.
var _ command.Runner = Runner{}

// Run opens a session on the tunnel host and executes spec there, feeding
// input to the remote stdin. Env overrides travel inside the remote line as
// exports, same as the ssh-client path. Exit status decides success.
func (r Runner) Run(ctx context.Context, spec command.Spec, input io.Reader) error {
	client, err := r.dial()
	if err != nil {
		return fmt.Errorf("%w: ssh %s: %v", command.ErrSpawn, r.Tunnel.Host, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("%w: ssh session: %v", command.ErrSpawn, err)
	}
	defer session.Close()

	session.Stdout = io.Discard
	session.Stderr = os.Stderr

	var stdin io.WriteCloser
	if input != nil {
		pipe, err := session.StdinPipe()
		if err != nil {
			return fmt.Errorf("%w: ssh stdin: %v", command.ErrSpawn, err)
		}
		stdin = pipe
	}

	// Tear the connection down if the context expires mid-run.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-done:
		}
	}()

	line := remoteLine(spec, nil)
	if err := session.Start(line); err != nil {
		return fmt.Errorf("%w: %s on %s: %v",
			command.ErrSpawn, spec.Program, r.Tunnel.Host, err)
	}

	if stdin != nil {
		if _, err := io.Copy(stdin, input); err != nil {
			// The remote process may be gone already; its status decides.
			if r.Logger != nil {
				r.Logger.Debug("remote stdin write interrupted",
					"program", spec.Program,
					"host", r.Tunnel.Host,
					"error", err,
				)
			}
		}
		if err := stdin.Close(); err != nil && r.Logger != nil {
			r.Logger.Debug("remote stdin close failed",
				"program", spec.Program,
				"error", err,
			)
		}
	}

	if err := session.Wait(); err != nil {
		return fmt.Errorf("%w: %s on %s: %v",
			command.ErrCommandFailed, spec.Program, r.Tunnel.Host, err)
	}
	return nil
}

func (r Runner) dial() (*ssh.Client, error) {
	address, err := r.address()
	if err != nil {
		return nil, err
	}

	config, err := r.clientConfig()
	if err != nil {
		return nil, err
	}

	if r.Tunnel.Timeout <= 0 {
		return ssh.Dial("tcp", address, config)
	}

	conn, err := net.DialTimeout("tcp", address, r.Tunnel.Timeout)
	if err != nil {
		return nil, err
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(clientConn, chans, reqs), nil
}

func (r Runner) address() (string, error) {
	host := strings.TrimSpace(r.Tunnel.Host)
	if host == "" {
		return "", fmt.Errorf("ssh host is required")
	}
	if r.Tunnel.Port > 0 {
		return net.JoinHostPort(host, strconv.Itoa(r.Tunnel.Port)), nil
	}
	return net.JoinHostPort(host, "22"), nil
}

func (r Runner) clientConfig() (*ssh.ClientConfig, error) {
	if r.Tunnel.User == "" {
		return nil, fmt.Errorf("ssh user is required")
	}

	signer, err := r.signer()
	if err != nil {
		return nil, err
	}

	var hostKeyCallback ssh.HostKeyCallback
	if r.Tunnel.Insecure {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		callback, err := r.knownHostsCallback()
		if err != nil {
			return nil, err
		}
		hostKeyCallback = callback
	}

	return &ssh.ClientConfig{
		User:            r.Tunnel.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         r.Tunnel.Timeout,
	}, nil
}

func (r Runner) signer() (ssh.Signer, error) {
	if r.Tunnel.PrivateKeyPath == "" {
		return nil, fmt.Errorf("ssh key path is required")
	}

	privateKey, err := os.ReadFile(r.Tunnel.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(privateKey)
}

func (r Runner) knownHostsCallback() (ssh.HostKeyCallback, error) {
	path := strings.TrimSpace(r.Tunnel.KnownHostsPath)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("known hosts path not set and home dir unavailable")
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	return knownhosts.New(path)
}
