// Package remote lists directories on a remote host over the SFTP subsystem
// of SSH. It implements the same listing seam as the local filesystem, so the
// scan queue is oblivious to where the bytes live.
package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	pathpkg "path"
	"sort"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/sadopc/dirtree/internal/fsys"
)

const defaultRemotePath = "."

// Config configures a remote SFTP connection.
type Config struct {
	Target    string // user@host
	Port      int
	BatchMode bool // never prompt; fail instead
	Timeout   time.Duration
}

// Lister reads remote directories over an established SFTP session.
// Device ids are not available over SFTP, so entries report Dev 0 and
// filesystem-boundary detection is effectively disabled for remote scans.
type Lister struct {
	client sftpClient
	closer io.Closer
}

type sftpClient interface {
	ReadDir(string) ([]os.FileInfo, error)
	Stat(string) (os.FileInfo, error)
	RealPath(string) (string, error)
}

var dialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

var sshNewClientConn = func(conn net.Conn, addr string, config *ssh.ClientConfig) (ssh.Conn, <-chan ssh.NewChannel, <-chan *ssh.Request, error) {
	return ssh.NewClientConn(conn, addr, config)
}

// Dial connects to the configured host and starts the SFTP subsystem.
func Dial(ctx context.Context, cfg Config) (*Lister, error) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("ssh port must be between 1 and 65535")
	}

	user, host, err := parseSSHTarget(cfg.Target)
	if err != nil {
		return nil, err
	}

	hostCB, err := hostKeyCallback(host, cfg.Port, cfg.BatchMode)
	if err != nil {
		return nil, err
	}

	auth, err := buildAuthMethods(user, host, cfg.BatchMode)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sshConfig := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostCB,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", cfg.Port))
	sshClient, err := connectSSH(dialCtx, addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("SSH connection failed: %w", err)
	}

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("cannot start SFTP subsystem: %w", err)
	}

	return &Lister{
		client: client,
		closer: &remoteCloser{ssh: sshClient, sftp: client},
	}, nil
}

// NewWithClient wraps an existing SFTP-like client. Used by tests.
func NewWithClient(client sftpClient) *Lister {
	return &Lister{client: client}
}

// Close tears down the SFTP session and the SSH connection.
func (l *Lister) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Resolve canonicalizes a remote path via the server, falling back to a
// local clean when the server cannot resolve it.
func (l *Lister) Resolve(path string) string {
	path = cleanRemotePath(path)
	if resolved, err := l.client.RealPath(path); err == nil {
		return cleanRemotePath(resolved)
	}
	return path
}

// Join joins path elements with POSIX semantics; remote servers do not share
// the local separator.
func (l *Lister) Join(elem ...string) string {
	return pathpkg.Join(elem...)
}

// Stat returns the entry for a single remote path.
func (l *Lister) Stat(path string) (fsys.Entry, error) {
	info, err := l.client.Stat(cleanRemotePath(path))
	if err != nil {
		return fsys.Entry{}, fsys.MapError(fmt.Errorf("cannot stat remote path %q: %w", path, err))
	}
	return entryFromInfo(info), nil
}

// ReadDir lists the immediate entries of a remote directory, sorted by name.
// Sockets, devices and pipes are skipped; symlinks are reported as files
// with the link's own size, never followed.
func (l *Lister) ReadDir(path string) ([]fsys.Entry, error) {
	infos, err := l.client.ReadDir(cleanRemotePath(path))
	if err != nil {
		return nil, fsys.MapError(err)
	}

	entries := make([]fsys.Entry, 0, len(infos))
	for _, info := range infos {
		if isSpecialRemoteMode(info.Mode()) {
			continue
		}
		entries = append(entries, entryFromInfo(info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func entryFromInfo(info os.FileInfo) fsys.Entry {
	e := fsys.Entry{
		Name:  info.Name(),
		Mtime: info.ModTime(),
		Nlink: 1,
		IsDir: info.IsDir() && info.Mode()&os.ModeSymlink == 0,
	}
	if !e.IsDir {
		e.Size = info.Size()
	}
	return e
}

func cleanRemotePath(p string) string {
	if p == "" {
		return defaultRemotePath
	}
	clean := pathpkg.Clean(strings.ReplaceAll(p, "\\", "/"))
	if clean == "" {
		return defaultRemotePath
	}
	return clean
}

func isSpecialRemoteMode(mode os.FileMode) bool {
	return mode&(os.ModeDevice|os.ModeCharDevice|os.ModeSocket|os.ModeNamedPipe|os.ModeIrregular) != 0
}

func connectSSH(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := dialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// Ensure cancellation interrupts handshake/authentication.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	c, chans, reqs, err := sshNewClientConn(conn, addr, config)
	close(done)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

type remoteCloser struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (c *remoteCloser) Close() error {
	var retErr error
	if c.sftp != nil {
		if err := c.sftp.Close(); err != nil {
			retErr = err
		}
	}
	if c.ssh != nil {
		if err := c.ssh.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}
	return retErr
}
