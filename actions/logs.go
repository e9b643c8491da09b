package actions

import (
	"fmt"

	"mtpanel/mtpctl/compose"
	"mtpanel/mtpctl/domain"
)

func LogsActionHandler(ctx domain.ExecutionContext, service string) error {
	tool, cfg, err := composeEnv(ctx)
	if err != nil {
		return err
	}

	args := []string{"logs", "--tail", "200"}
	if service != "" {
		args = append(args, service)
	}

	runner := domain.ExecRunner{}
	if err := runner.Run(tool.CommandFor(ctx, compose.Profile(cfg), args...)); err != nil {
		return fmt.Errorf("Unable to read the logs: %s", err)
	}
	return nil
}
