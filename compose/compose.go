// Package compose wraps the compose orchestration tool: finding one,
// building its command lines, selecting feature profiles.
package compose

import (
	"errors"
	"strings"

	"mtpanel/mtpctl/config"
	"mtpanel/mtpctl/domain"
)

// ProfileSSL activates the certificate-issuance service in the stack.
const ProfileSSL = "ssl"

// Tool is a detected compose implementation: either the docker CLI plugin
// or the standalone docker-compose binary.
type Tool struct {
	Command []string
}

func (t Tool) IsZero() bool { return len(t.Command) == 0 }

func (t Tool) String() string { return strings.Join(t.Command, " ") }

// Args assembles a full command line for the installation's compose
// project. The profile, when set, decides which optional services join.
func (t Tool) Args(ctx domain.ExecutionContext, profile string, sub ...string) []string {
	args := append([]string{}, t.Command...)
	args = append(args, "-f", ctx.Path("docker-compose.yml"), "--project-directory", ctx.RootDir)
	if profile != "" {
		args = append(args, "--profile", profile)
	}
	args = append(args, sub...)
	return args
}

// CommandFor wraps Args into an executable command.
func (t Tool) CommandFor(ctx domain.ExecutionContext, profile string, sub ...string) domain.Command {
	return domain.NewCommand(t.Args(ctx, profile, sub...))
}

// Profile derives the feature profile from the configuration. Derived on
// every start and update, never persisted.
func Profile(cfg config.Config) string {
	if cfg.EnableSSL && cfg.Domain != "" {
		return ProfileSSL
	}
	return ""
}

// Detect finds a usable compose tool. The docker CLI plugin is preferred;
// the standalone v1 binary still counts.
func Detect(r domain.Runner, look func(string) (string, error)) (Tool, error) {
	if _, err := look("docker"); err == nil {
		if err := r.RunQuietly(domain.NewCommand([]string{"docker", "compose", "version"})); err == nil {
			return Tool{Command: []string{"docker", "compose"}}, nil
		}
	}
	if _, err := look("docker-compose"); err == nil {
		return Tool{Command: []string{"docker-compose"}}, nil
	}
	return Tool{}, errors.New("no compose tool found")
}
