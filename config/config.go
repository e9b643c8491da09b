// Package config handles the deployment configuration: an interactive
// collection step on first install, then a flat .env file every later
// start and update reads as the single source of truth.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultProxyPort = 2443
	DefaultHTTPPort  = 80

	// TLS always terminates on 443, the ACME client depends on it
	HTTPSPort = 443
)

// truthy tokens start with y/Y ("y", "yes", "Y"...)
var enabledPattern = regexp.MustCompile(`^[Yy]`)

type Config struct {
	Domain    string
	ProxyPort int
	HTTPPort  int
	HTTPSPort int
	EnableSSL bool
}

func Default() Config {
	return Config{
		ProxyPort: DefaultProxyPort,
		HTTPPort:  DefaultHTTPPort,
		HTTPSPort: HTTPSPort,
	}
}

// Load reads the .env file. Unknown keys are ignored; unparsable port
// values fall back to their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("Unable to read the deployment configuration: %s", err)
	}

	cfg := Default()
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "DOMAIN":
			cfg.Domain = value
		case "PROXY_PORT":
			cfg.ProxyPort = parsePort(value, DefaultProxyPort)
		case "HTTP_PORT":
			cfg.HTTPPort = parsePort(value, DefaultHTTPPort)
		case "HTTPS_PORT":
			cfg.HTTPSPort = parsePort(value, HTTPSPort)
		case "ENABLE_SSL":
			cfg.EnableSSL = enabledPattern.MatchString(value)
		}
	}
	return cfg, nil
}

// Save writes the .env file. The compose definitions read the same file
// for variable substitution, so keys must stay flat KEY=value lines.
func (c Config) Save(path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "DOMAIN=%s\n", c.Domain)
	fmt.Fprintf(&b, "PROXY_PORT=%d\n", c.ProxyPort)
	fmt.Fprintf(&b, "HTTP_PORT=%d\n", c.HTTPPort)
	fmt.Fprintf(&b, "HTTPS_PORT=%d\n", c.HTTPSPort)
	fmt.Fprintf(&b, "ENABLE_SSL=%s\n", formatEnabled(c.EnableSSL))

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("Unable to write the deployment configuration: %s", err)
	}
	return nil
}

// PanelURL is the address the operator reaches the web panel at. The host
// falls back to the server IP when no domain was configured.
func (c Config) PanelURL(serverIP string) string {
	if c.EnableSSL && c.Domain != "" {
		return "https://" + c.Domain
	}
	host := c.Domain
	if host == "" {
		host = serverIP
	}
	return fmt.Sprintf("http://%s:%d", host, c.HTTPPort)
}

// FirewallPorts lists the ports that must be reachable from outside.
func (c Config) FirewallPorts() []int {
	ports := []int{c.HTTPPort, c.ProxyPort}
	if c.EnableSSL {
		ports = append(ports, c.HTTPSPort)
	}
	return ports
}

func parsePort(value string, fallback int) int {
	port, err := strconv.Atoi(value)
	if err != nil || port <= 0 || port > 65535 {
		return fallback
	}
	return port
}

func formatEnabled(enabled bool) string {
	if enabled {
		return "y"
	}
	return "n"
}
