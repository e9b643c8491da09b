package actions

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/fatih/color"

	"mtpanel/mtpctl/compose"
	"mtpanel/mtpctl/config"
	"mtpanel/mtpctl/domain"
	"mtpanel/mtpctl/engine"
	"mtpanel/mtpctl/probe"
	"mtpanel/mtpctl/utils"
)

// StatusActionHandler reports the health of the host and the stack: what
// the prober sees, whether the runtime pieces are present and a compose ps
// of the services.
func StatusActionHandler(ctx domain.ExecutionContext) error {
	runner := domain.ExecRunner{}

	env := probe.New().Classify()
	fmt.Printf("\n Environment: %s\n\n", env)

	ok := true

	_, dockerErr := exec.LookPath("docker")
	ok = check(dockerErr == nil, "docker binary", "run 'mtpctl install'") && ok

	tool, composeErr := compose.Detect(runner, exec.LookPath)
	composeLabel := "compose tool"
	if !tool.IsZero() {
		composeLabel = fmt.Sprintf("compose tool (%s)", tool)
	}
	ok = check(composeErr == nil, composeLabel, "run 'mtpctl install'") && ok

	daemonUp := dockerErr == nil && pingDaemon()
	ok = check(daemonUp, "docker daemon", "systemctl start docker") && ok

	_, installErr := os.Stat(ctx.Path("docker-compose.yml"))
	ok = check(installErr == nil, fmt.Sprintf("installation (%s)", ctx.RootDir), "run 'mtpctl install'") && ok

	cfg, cfgErr := config.Load(ctx.EnvFile())
	ok = check(cfgErr == nil, "deployment configuration", "run 'mtpctl install'") && ok

	if cfgErr == nil {
		domainLabel := cfg.Domain
		if domainLabel == "" {
			domainLabel = "(none)"
		}
		ssl := "off"
		if cfg.EnableSSL {
			ssl = "on"
		}
		fmt.Printf("\n   Domain: %s   Proxy port: %d   SSL: %s\n", domainLabel, cfg.ProxyPort, ssl)
	}

	if daemonUp {
		fmt.Println("")
		for _, name := range []string{"mtg-proxy", "mtproto-nginx"} {
			fmt.Printf("   %-15s %s\n", name, utils.ContainerState(runner, name))
		}
	}

	if composeErr == nil && installErr == nil && daemonUp {
		fmt.Println("")
		runner.Run(tool.CommandFor(ctx, compose.Profile(cfg), "ps"))
	}

	if !ok {
		return fmt.Errorf("Some checks failed")
	}
	return nil
}

func check(ok bool, label, hint string) bool {
	if ok {
		fmt.Printf(" [ %s ] %s\n", color.GreenString("OK"), label)
	} else {
		fmt.Printf(" [%s] %s (%s)\n", color.YellowString("WARN"), label, hint)
	}
	return ok
}

func pingDaemon() bool {
	cli, err := engine.NewClient()
	if err != nil {
		return false
	}
	defer cli.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return cli.Ping(pingCtx) == nil
}
