package wgcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrPeerCommand is the sentinel matched by errors.Is for any failed
// invocation of the interface management tool.
var ErrPeerCommand = errors.New("peer command failed")

// CommandError carries the failed command line and its captured stderr.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Is reports a match against ErrPeerCommand so callers can classify
// failures without depending on the concrete type.
func (e *CommandError) Is(target error) bool {
	return target == ErrPeerCommand
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// PeerController synchronizes peers against the live network interface.
type PeerController interface {
	// AddPeer registers (or replaces) a peer with a single-host
	// allowed-ips route for the given address.
	AddPeer(ctx context.Context, publicKey, ip string) error
	// RemovePeer deregisters a peer by its public key.
	RemovePeer(ctx context.Context, publicKey string) error
	// DumpStatus returns the tool's free-form status report for the
	// interface. The text is opaque diagnostic output, never parsed.
	DumpStatus(ctx context.Context) (string, error)
}

// Runner implements PeerController by shelling out to the management tool
// (e.g. "awg" or "wg").
type Runner struct {
	bin     string
	iface   string
	timeout time.Duration
}

// NewRunner creates a Runner for the given tool binary and interface name.
// A non-positive timeout falls back to 10 seconds.
func NewRunner(bin, iface string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{bin: bin, iface: iface, timeout: timeout}
}

// AddPeer implements PeerController.
func (r *Runner) AddPeer(ctx context.Context, publicKey, ip string) error {
	_, err := r.run(ctx, "set", r.iface, "peer", publicKey, "allowed-ips", ip+"/32")
	return err
}

// RemovePeer implements PeerController.
func (r *Runner) RemovePeer(ctx context.Context, publicKey string) error {
	_, err := r.run(ctx, "set", r.iface, "peer", publicKey, "remove")
	return err
}

// DumpStatus implements PeerController.
func (r *Runner) DumpStatus(ctx context.Context) (string, error) {
	return r.run(ctx, "show", r.iface)
}

func (r *Runner) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s: %w", r.timeout, err)
		}
		return "", &CommandError{
			Args:   append([]string{r.bin}, args...),
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}
