package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Songmu/prompter"
	"github.com/fatih/color"
)

// Asker is the prompt surface separating interactive input from the
// orchestration logic.
type Asker interface {
	Ask(question, defaultValue string) string
	Confirm(question string, defaultYes bool) bool
	Secret(question string) string
}

// TerminalAsker prompts on the operator's terminal.
type TerminalAsker struct{}

func (TerminalAsker) Ask(question, defaultValue string) string {
	return prompter.Prompt(question, defaultValue)
}

func (TerminalAsker) Confirm(question string, defaultYes bool) bool {
	return prompter.YN(question, defaultYes)
}

func (TerminalAsker) Secret(question string) string {
	return prompter.Password(question)
}

// DefaultsAsker answers every prompt with its default. Used for unattended
// runs and when stdin is not a terminal.
type DefaultsAsker struct{}

func (DefaultsAsker) Ask(question, defaultValue string) string      { return defaultValue }
func (DefaultsAsker) Confirm(question string, defaultYes bool) bool { return defaultYes }
func (DefaultsAsker) Secret(question string) string                 { return "" }

// Collect gathers the deployment configuration interactively. The TLS
// question is only asked when a domain was given; without one the panel is
// reached by IP and certificates cannot be issued anyway.
func Collect(ask Asker) Config {
	cfg := Default()

	cfg.Domain = strings.TrimSpace(ask.Ask("Domain name (leave empty for IP-only access)", ""))
	if cfg.Domain != "" {
		cfg.EnableSSL = ask.Confirm("Enable SSL with Let's Encrypt?", true)
	}

	cfg.ProxyPort = askPort(ask, "Proxy port", DefaultProxyPort)
	cfg.HTTPPort = askPort(ask, "HTTP port", DefaultHTTPPort)

	return cfg
}

func askPort(ask Asker, question string, fallback int) int {
	answer := strings.TrimSpace(ask.Ask(question, strconv.Itoa(fallback)))
	port, err := strconv.Atoi(answer)
	if err != nil || port <= 0 || port > 65535 {
		fmt.Printf(" %s '%s' is not a usable port, keeping %d\n", color.YellowString("→"), answer, fallback)
		return fallback
	}
	return port
}
