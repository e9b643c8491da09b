package actions

import (
	"fmt"
	"os"
	"os/exec"

	"mtpanel/mtpctl/compose"
	"mtpanel/mtpctl/config"
	"mtpanel/mtpctl/domain"
)

func StartActionHandler(ctx domain.ExecutionContext) error {
	tool, cfg, err := composeEnv(ctx)
	if err != nil {
		return err
	}

	runner := domain.ExecRunner{}
	if err := runner.Run(tool.CommandFor(ctx, compose.Profile(cfg), "up", "-d")); err != nil {
		return fmt.Errorf("Unable to start the stack: %s", err)
	}
	return nil
}

// composeEnv resolves what every lifecycle command needs: a compose tool
// and the persisted configuration. A missing configuration falls back to
// defaults so a half-installed stack can still be driven.
func composeEnv(ctx domain.ExecutionContext) (compose.Tool, config.Config, error) {
	if _, err := os.Stat(ctx.Path("docker-compose.yml")); err != nil {
		return compose.Tool{}, config.Config{}, fmt.Errorf("No installation found in %s (run 'mtpctl install' first)", ctx.RootDir)
	}

	tool, err := compose.Detect(domain.ExecRunner{}, exec.LookPath)
	if err != nil {
		return compose.Tool{}, config.Config{}, fmt.Errorf("Unable to find a compose tool: %s", err)
	}

	cfg, err := config.Load(ctx.EnvFile())
	if err != nil {
		cfg = config.Default()
	}
	return tool, cfg, nil
}
