package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/jawher/mow.cli"
	"golang.org/x/term"

	"mtpanel/mtpctl/actions"
	"mtpanel/mtpctl/config"
	"mtpanel/mtpctl/domain"
)

func main() {

	app := cli.App("mtpctl", "Deploy and manage an MTProto proxy stack")

	app.Version("v version", "mtpctl 1.2.0")

	dir := app.String(cli.StringOpt{
		Name:   "d dir",
		Value:  "/opt/mtproto",
		Desc:   "Installation directory of the stack. The environment var 'MTPCTL_DIR' can be used too.",
		EnvVar: "MTPCTL_DIR",
	})
	yes := app.Bool(cli.BoolOpt{
		Name:  "y yes",
		Value: false,
		Desc:  "Assume the default answer for every question",
	})

	ctx := domain.ExecutionContext{}

	app.Before = func() {
		ctx.RootDir = *dir
		ctx.Yes = *yes
		setupLogging(*dir)
	}

	app.Command("install", "Provision the host and deploy the stack", func(cmd *cli.Cmd) {

		channel := cmd.StringOpt("channel", "stable", "Artifact channel: 'stable' follows tagged releases, 'main' follows the development branch")

		cmd.Action = func() {
			requireRoot()
			ctx.Channel = *channel

			if err := actions.InstallActionHandler(ctx, asker(ctx)); err != nil {
				fail(err)
			}
		}
	})

	app.Command("update", "Replace the deployed artifacts with the latest set", func(cmd *cli.Cmd) {

		channel := cmd.StringOpt("channel", "stable", "Artifact channel: 'stable' follows tagged releases, 'main' follows the development branch")

		cmd.Action = func() {
			requireRoot()
			ctx.Channel = *channel

			if err := actions.UpdateActionHandler(ctx); err != nil {
				fail(err)
			}
		}
	})

	app.Command("start", "Start the stack", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			requireRoot()

			if err := actions.StartActionHandler(ctx); err != nil {
				fail(err)
			}
		}
	})

	app.Command("stop", "Stop the stack", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			requireRoot()

			if err := actions.StopActionHandler(ctx); err != nil {
				fail(err)
			}
		}
	})

	app.Command("restart", "Restart the stack", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			requireRoot()

			if err := actions.RestartActionHandler(ctx); err != nil {
				fail(err)
			}
		}
	})

	app.Command("logs", "Display logs of all services (or the specified service)", func(cmd *cli.Cmd) {

		cmd.Spec = "[SERVICE]"
		service := cmd.StringArg("SERVICE", "", "The compose service to log")

		cmd.Action = func() {
			if err := actions.LogsActionHandler(ctx, *service); err != nil {
				fail(err)
			}
		}
	})

	app.Command("status", "Check the host and the stack health", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			if err := actions.StatusActionHandler(ctx); err != nil {
				fail(err)
			}
		}
	})

	app.Command("backup", "Archive the data directory and the deployment configuration", func(cmd *cli.Cmd) {

		cmd.Spec = "[-o] [--encrypt]"
		output := cmd.StringOpt("o output", "", "Write the backup to this file")
		encrypt := cmd.BoolOpt("encrypt", false, "Encrypt the backup with a passphrase")

		cmd.Action = func() {
			requireRoot()

			if err := actions.BackupActionHandler(ctx, *output, *encrypt, asker(ctx)); err != nil {
				fail(err)
			}
		}
	})

	app.Command("restore", "Restore a backup archive into the installation", func(cmd *cli.Cmd) {

		cmd.Spec = "FILE"
		file := cmd.StringArg("FILE", "", "The backup archive to restore")

		cmd.Action = func() {
			requireRoot()

			if err := actions.RestoreActionHandler(ctx, *file, asker(ctx)); err != nil {
				fail(err)
			}
		}
	})

	app.Run(os.Args)
}

func requireRoot() {
	if os.Geteuid() != 0 {
		fmt.Printf(" %s This command must run as root\n", color.RedString("✗"))
		cli.Exit(1)
	}
}

func fail(err error) {
	fmt.Printf("\n %s %s\n", color.RedString("✗"), err)
	slog.Error("command failed", "error", err)
	cli.Exit(1)
}

// asker picks interactive prompts on a terminal and defaults otherwise, so
// unattended runs never hang on a question.
func asker(ctx domain.ExecutionContext) config.Asker {
	if ctx.Yes || !term.IsTerminal(int(os.Stdin.Fd())) {
		return config.DefaultsAsker{}
	}
	return config.TerminalAsker{}
}

// setupLogging sends the debug trail to a log file inside the installation
// directory. Before the directory exists the trail is simply dropped.
func setupLogging(root string) {
	var writer io.Writer = io.Discard
	if info, err := os.Stat(root); err == nil && info.IsDir() {
		if file, err := os.OpenFile(filepath.Join(root, "mtpctl.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err == nil {
			writer = file
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: slog.LevelDebug})))
}
