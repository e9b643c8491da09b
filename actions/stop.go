package actions

import (
	"fmt"

	"mtpanel/mtpctl/compose"
	"mtpanel/mtpctl/domain"
)

func StopActionHandler(ctx domain.ExecutionContext) error {
	tool, cfg, err := composeEnv(ctx)
	if err != nil {
		return err
	}

	runner := domain.ExecRunner{}
	if err := runner.Run(tool.CommandFor(ctx, compose.Profile(cfg), "stop")); err != nil {
		return fmt.Errorf("Unable to stop the stack: %s", err)
	}
	return nil
}

func RestartActionHandler(ctx domain.ExecutionContext) error {
	tool, cfg, err := composeEnv(ctx)
	if err != nil {
		return err
	}

	runner := domain.ExecRunner{}
	if err := runner.Run(tool.CommandFor(ctx, compose.Profile(cfg), "restart")); err != nil {
		return fmt.Errorf("Unable to restart the stack: %s", err)
	}
	return nil
}
