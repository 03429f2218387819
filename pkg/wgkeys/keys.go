// Package wgkeys generates WireGuard-compatible Curve25519 keypairs.
//
// Keys are exchanged as base64 encodings of raw 32-byte values, the form the
// interface management tool expects. The default generator produces keys
// in-process via wgtypes; a CLI-backed generator that shells out to the
// tool's genkey/pubkey commands is available for deployments that want the
// tool itself to be the source of key material.
package wgkeys

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// Keypair holds a private/public keypair as base64 strings.
type Keypair struct {
	PrivateKey string
	PublicKey  string
}

// Generator produces keypairs for new users.
type Generator interface {
	Generate(ctx context.Context) (Keypair, error)
}

// Native generates keypairs in-process. The keys are ordinary Curve25519
// keys and interoperate with tool-generated ones.
type Native struct{}

// Generate implements Generator.
func (Native) Generate(ctx context.Context) (Keypair, error) {
	if err := ctx.Err(); err != nil {
		return Keypair{}, err
	}
	key, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return Keypair{}, fmt.Errorf("generating private key: %w", err)
	}
	return Keypair{
		PrivateKey: key.String(),
		PublicKey:  key.PublicKey().String(),
	}, nil
}

// CLI generates keypairs by invoking the external tool's genkey and pubkey
// commands. Every invocation is bounded by Timeout.
type CLI struct {
	// Bin is the tool binary, e.g. "awg".
	Bin string
	// Timeout bounds each command invocation.
	Timeout time.Duration
}

// Generate implements Generator.
func (g CLI) Generate(ctx context.Context) (Keypair, error) {
	private, err := g.run(ctx, "", "genkey")
	if err != nil {
		return Keypair{}, err
	}
	public, err := g.run(ctx, private, "pubkey")
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{PrivateKey: private, PublicKey: public}, nil
}

func (g CLI) run(ctx context.Context, stdin string, args ...string) (string, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.Bin, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", g.Bin, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
