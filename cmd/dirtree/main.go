package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sadopc/dirtree/internal/fsys"
	"github.com/sadopc/dirtree/internal/logging"
	"github.com/sadopc/dirtree/internal/remote"
	"github.com/sadopc/dirtree/internal/tree"
	"github.com/sadopc/dirtree/internal/ui"
	"github.com/sadopc/dirtree/internal/util"
)

var (
	version = "dev"
)

const defaultSSHPort = 22

type scanTarget struct {
	Remote         bool
	LocalPath      string
	SSHDestination string
	RemotePath     string
}

func main() {
	writeCache := flag.String("write-cache", "", "Scan headlessly and write the tree to a cache file (use '-' for stdout)")
	readCache := flag.String("read-cache", "", "Load a tree from a cache file instead of scanning")
	crossFS := flag.Bool("cross", false, "Descend into directories on other filesystems")
	logLevel := flag.String("log-level", "info", "Log level for headless runs (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Show version")
	sshPort := flag.Int("ssh-port", defaultSSHPort, "SSH port for remote scans")
	sshBatch := flag.Bool("ssh-batch", false, "Disable SSH password prompts (key/agent auth only)")
	sshTimeout := flag.Int("ssh-timeout", 15, "SSH connection timeout in seconds")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "dirtree - Interactive directory tree analyzer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: dirtree [options] [path|user@host [remote-path]]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  dirtree .                             Scan and browse the current directory\n")
		fmt.Fprintf(os.Stderr, "  dirtree /var                          Scan /var\n")
		fmt.Fprintf(os.Stderr, "  dirtree --cross /                     Cross filesystem boundaries\n")
		fmt.Fprintf(os.Stderr, "  dirtree --write-cache tree.json /var  Headless scan to a cache file\n")
		fmt.Fprintf(os.Stderr, "  dirtree --read-cache tree.json        Browse a previously written cache\n")
		fmt.Fprintf(os.Stderr, "  dirtree user@192.168.1.10 /var/log    Scan a remote host over SSH\n")
		fmt.Fprintf(os.Stderr, "  dirtree --ssh-port 2222 user@host\n")
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("dirtree %s\n", version)
		os.Exit(0)
	}

	if *sshPort < 1 || *sshPort > 65535 {
		fmt.Fprintf(os.Stderr, "Error: ssh-port must be between 1 and 65535\n")
		os.Exit(1)
	}

	// Cache browsing mode: no filesystem scan at all.
	if *readCache != "" {
		if flag.NArg() > 0 {
			fmt.Fprintf(os.Stderr, "Error: --read-cache cannot be used with scan targets\n")
			os.Exit(1)
		}
		if err := runFromCache(*readCache, *writeCache); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	target, err := resolveScanTarget(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if target.Remote {
		if err := runRemote(target, *sshPort, *sshBatch, *sshTimeout, *writeCache, *crossFS, *logLevel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	absPath, err := filepath.Abs(target.LocalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := runLocal(absPath, *writeCache, *crossFS, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runFromCache(cachePath, writeCache string) error {
	t := tree.New(fsys.NewLocal(), tree.WithVersion(version))
	if err := t.ReadCache(cachePath); err != nil {
		return err
	}

	// Re-export an imported cache.
	if writeCache != "" {
		if err := t.WriteCache(writeCache); err != nil {
			return err
		}
		if writeCache != "-" {
			fmt.Printf("Cache written to %s\n", writeCache)
		}
		return nil
	}

	return ui.Run(t, "", "")
}

func runLocal(absPath, writeCache string, crossFS bool, logLevel string) error {
	if writeCache != "" {
		log, err := logging.New(logLevel, true)
		if err != nil {
			return err
		}
		defer log.Sync()

		t := tree.New(fsys.NewLocal(),
			tree.WithLogger(log),
			tree.WithCrossFileSystems(crossFS),
			tree.WithVersion(version))
		return headlessScan(t, absPath, writeCache)
	}

	t := tree.New(fsys.NewLocal(),
		tree.WithLogger(logging.Discard()),
		tree.WithCrossFileSystems(crossFS),
		tree.WithVersion(version))
	return ui.Run(t, absPath, "")
}

func runRemote(target scanTarget, sshPort int, sshBatch bool, sshTimeout int, writeCache string, crossFS bool, logLevel string) error {
	cfg := remote.Config{
		Target:    target.SSHDestination,
		Port:      sshPort,
		BatchMode: sshBatch,
		Timeout:   time.Duration(sshTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lister, err := remote.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer lister.Close()

	remotePath := lister.Resolve(target.RemotePath)

	if writeCache != "" {
		log, err := logging.New(logLevel, true)
		if err != nil {
			return err
		}
		defer log.Sync()

		t := tree.New(lister,
			tree.WithLogger(log),
			tree.WithCrossFileSystems(crossFS),
			tree.WithVersion(version))
		go func() {
			<-ctx.Done()
			t.AbortReading()
		}()
		return headlessScan(t, remotePath, writeCache)
	}

	t := tree.New(lister,
		tree.WithLogger(logging.Discard()),
		tree.WithCrossFileSystems(crossFS),
		tree.WithVersion(version))
	return ui.Run(t, remotePath, "")
}

// headlessScan runs a scan to completion with console progress, then writes
// the cache file.
func headlessScan(t *tree.Tree, path, cachePath string) error {
	quiet := cachePath == "-"
	cl := &consoleListener{quiet: quiet}
	t.AddListener(cl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		t.AbortReading()
	}()

	if !quiet {
		fmt.Printf("Scanning %s...\n", path)
	}
	if err := t.StartReading(path); err != nil {
		return err
	}
	t.Wait()
	if !quiet {
		fmt.Fprintln(os.Stderr)
	}

	if cl.aborted.Load() {
		fmt.Fprintln(os.Stderr, "Scan aborted; writing partial tree")
	}

	totals := t.Root().Totals()
	if !quiet {
		fmt.Printf("Scanned %s items (%s) in %s directories\n",
			util.FormatCount(totals.Items), util.FormatSize(totals.Size), util.FormatCount(totals.SubDirs))
	}

	if err := t.WriteCache(cachePath); err != nil {
		return err
	}
	if !quiet {
		fmt.Printf("Cache written to %s\n", cachePath)
	}
	return nil
}

// consoleListener prints one-line progress over itself on stderr.
type consoleListener struct {
	tree.Events
	quiet   bool
	dirs    atomic.Int64
	aborted atomic.Bool
}

func (c *consoleListener) Progress(line string) {
	if c.quiet {
		return
	}
	n := c.dirs.Add(1)
	fmt.Fprintf(os.Stderr, "\r[%d] %s\x1b[K", n, line)
}

func (c *consoleListener) ScanAborted() {
	c.aborted.Store(true)
}

func resolveScanTarget(args []string) (scanTarget, error) {
	if len(args) == 0 {
		return scanTarget{LocalPath: "."}, nil
	}

	first := args[0]
	if pathExists(first) {
		if len(args) > 1 {
			return scanTarget{}, fmt.Errorf("too many positional arguments for local scan")
		}
		return scanTarget{LocalPath: first}, nil
	}

	if isRemote, err := validateRemoteTarget(first); isRemote {
		if err != nil {
			return scanTarget{}, err
		}
		if len(args) > 2 {
			return scanTarget{}, fmt.Errorf("too many positional arguments for remote scan")
		}

		remotePath := "."
		if len(args) == 2 && strings.TrimSpace(args[1]) != "" {
			remotePath = args[1]
		}

		return scanTarget{
			Remote:         true,
			SSHDestination: first,
			RemotePath:     remotePath,
		}, nil
	}

	if len(args) > 1 {
		return scanTarget{}, fmt.Errorf("too many positional arguments")
	}

	return scanTarget{LocalPath: first}, nil
}

func validateRemoteTarget(raw string) (bool, error) {
	if strings.ContainsAny(raw, `/\\`) {
		return false, nil
	}
	if strings.Count(raw, "@") != 1 {
		return false, nil
	}

	user, host, _ := strings.Cut(raw, "@")
	if user == "" || host == "" {
		return true, fmt.Errorf("invalid remote target %q: expected user@host", raw)
	}
	if strings.HasPrefix(user, "-") || strings.HasPrefix(host, "-") {
		return true, fmt.Errorf("invalid remote target %q", raw)
	}
	if strings.ContainsAny(user, " \t\n\r") || strings.ContainsAny(host, " \t\n\r") {
		return true, fmt.Errorf("invalid remote target %q: spaces are not allowed", raw)
	}
	if strings.HasPrefix(host, "[") {
		end := strings.Index(host, "]")
		switch {
		case end == -1:
			return true, fmt.Errorf("invalid remote target %q: malformed bracketed host", raw)
		case end == 1:
			return true, fmt.Errorf("invalid remote target %q: empty host", raw)
		case end != len(host)-1:
			rest := host[end+1:]
			if strings.HasPrefix(rest, ":") && isAllDigits(rest[1:]) {
				return true, fmt.Errorf("remote target %q must not include :port; use --ssh-port", raw)
			}
			return true, fmt.Errorf("invalid remote target %q: malformed bracketed host", raw)
		}
	} else if strings.Contains(host, "]") {
		return true, fmt.Errorf("invalid remote target %q: malformed bracketed host", raw)
	}
	if looksLikeHostPort(host) {
		return true, fmt.Errorf("remote target %q must not include :port; use --ssh-port", raw)
	}

	return true, nil
}

func looksLikeHostPort(host string) bool {
	if strings.Count(host, ":") != 1 {
		return false
	}
	_, port, ok := strings.Cut(host, ":")
	if !ok {
		return false
	}
	return isAllDigits(port)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
