// Package certs choreographs certificate issuance: a temporary nginx
// instance answers the ACME HTTP-01 challenge, the certbot service obtains
// the certificate, and the TLS nginx configuration replaces the HTTP-only
// one.
package certs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"mtpanel/mtpctl/compose"
	"mtpanel/mtpctl/config"
	"mtpanel/mtpctl/domain"
)

const (
	challengeWebroot  = "/var/www/certbot"
	domainPlaceholder = "{{DOMAIN}}"
)

type Provisioner struct {
	Runner domain.Runner
	Tool   compose.Tool
	Settle time.Duration
}

func NewProvisioner(r domain.Runner, tool compose.Tool) *Provisioner {
	return &Provisioner{Runner: r, Tool: tool, Settle: 5 * time.Second}
}

// Ensure obtains a certificate for cfg.Domain and installs the TLS nginx
// configuration. Issuance failure downgrades the run to HTTP only by
// clearing cfg.EnableSSL; the proxy keeps working either way.
func (p *Provisioner) Ensure(ctx domain.ExecutionContext, cfg *config.Config, ask config.Asker) bool {
	if !cfg.EnableSSL || cfg.Domain == "" {
		return false
	}

	fmt.Printf("\n %s Obtaining a Let's Encrypt certificate for %s...\n", color.YellowString("▶"), cfg.Domain)

	// nginx must be answering on the HTTP port before certbot runs
	up := p.Tool.CommandFor(ctx, "", "up", "-d", "nginx")
	if err := p.Runner.Run(up); err != nil {
		p.downgrade(cfg, fmt.Sprintf("Unable to start nginx for the challenge: %s", err))
		return false
	}
	defer p.Runner.Run(p.Tool.CommandFor(ctx, "", "stop", "nginx"))

	time.Sleep(p.Settle)

	email := strings.TrimSpace(ask.Ask("Email for certificate expiry notices (optional)", ""))

	issue := p.Tool.CommandFor(ctx, compose.ProfileSSL, issueArgs(cfg.Domain, email)...)
	if err := p.Runner.Run(issue); err != nil {
		p.downgrade(cfg, "Certificate issuance failed")
		return false
	}

	if err := InstallTLSConfig(ctx, cfg.Domain); err != nil {
		p.downgrade(cfg, err.Error())
		return false
	}

	fmt.Printf(" %s Certificate for %s installed\n", color.GreenString("✓"), cfg.Domain)
	return true
}

func (p *Provisioner) downgrade(cfg *config.Config, reason string) {
	fmt.Printf(" %s %s, continuing with HTTP only\n", color.YellowString("⚠"), reason)
	cfg.EnableSSL = false
}

func issueArgs(domainName, email string) []string {
	args := []string{
		"run", "--rm", "certbot", "certonly",
		"--webroot", "-w", challengeWebroot,
		"-d", domainName,
		"--agree-tos", "--no-eff-email", "-n",
	}
	if email != "" {
		args = append(args, "--email", email)
	} else {
		args = append(args, "--register-unsafely-without-email")
	}
	return args
}

// InstallTLSConfig renders the TLS template with the domain and makes it
// the active nginx configuration inside the persisted data tree.
func InstallTLSConfig(ctx domain.ExecutionContext, domainName string) error {
	template, err := os.ReadFile(ctx.Path("nginx", "default-ssl.conf.template"))
	if err != nil {
		return fmt.Errorf("Unable to read the TLS template: %s", err)
	}
	rendered := strings.ReplaceAll(string(template), domainPlaceholder, domainName)

	target := filepath.Join(ctx.DataDir(), "nginx", "conf.d", "default.conf")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("Unable to prepare the nginx config directory: %s", err)
	}
	if err := os.WriteFile(target, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("Unable to install the TLS configuration: %s", err)
	}
	return nil
}
