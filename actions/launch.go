package actions

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"mtpanel/mtpctl/compose"
	"mtpanel/mtpctl/config"
	"mtpanel/mtpctl/domain"
	"mtpanel/mtpctl/utils"
)

// the panel prints this line once, right after generating its first-run
// admin account
const readinessMarker = "INITIAL ADMIN CREDENTIALS"

// compose service name of the web panel; readiness watches its logs
const panelService = "app"

const (
	readinessTimeout  = 30 * time.Second
	readinessInterval = time.Second
)

// Launch builds and starts the stack under the profile derived from the
// configuration, then waits for the panel to report readiness.
func Launch(ctx domain.ExecutionContext, tool compose.Tool, cfg config.Config, r domain.Runner) error {
	fmt.Printf("\n %s Starting the stack...\n", color.YellowString("▶"))
	up := tool.CommandFor(ctx, compose.Profile(cfg), "up", "-d", "--build")
	if err := r.Run(up); err != nil {
		return fmt.Errorf("Unable to start the stack: %s", err)
	}

	WaitReady(ctx, tool, r, readinessTimeout, readinessInterval)
	return nil
}

// WaitReady polls the panel service logs for the readiness marker. Not
// seeing it in time is not an error: on slow hosts the panel may simply
// need longer than the polling window.
func WaitReady(ctx domain.ExecutionContext, tool compose.Tool, r domain.Runner, timeout, interval time.Duration) bool {
	fmt.Printf("\n %s Waiting for the panel to come up...\n", color.YellowString("▶"))

	deadline := time.Now().Add(timeout)
	for {
		logs := tool.CommandFor(ctx, "", "logs", "--no-color", panelService)
		if out, err := r.Output(logs); err == nil && strings.Contains(out, readinessMarker) {
			if banner := extractBanner(out); banner != "" {
				fmt.Printf("\n%s\n", banner)
			}
			fmt.Printf("\n %s The panel is up\n", color.GreenString("✓"))
			return true
		}
		if !time.Now().Before(deadline) {
			break
		}
		time.Sleep(interval)
	}

	fmt.Printf(" %s The panel did not report readiness in time; it may still be starting (check 'mtpctl logs %s')\n", color.YellowString("⚠"), panelService)
	return false
}

// extractBanner pulls the credential block the panel prints between ====
// delimiter lines, so the operator sees it without digging through logs.
func extractBanner(logs string) string {
	lines := strings.Split(logs, "\n")
	for i, line := range lines {
		if !strings.Contains(line, readinessMarker) {
			continue
		}

		start := i
		for start > 0 && i-start < 12 && !strings.Contains(lines[start], "====") {
			start--
		}
		end := i
		for end < len(lines)-1 && end-i < 12 && !strings.Contains(lines[end], "====") {
			end++
		}
		if !strings.Contains(lines[start], "====") || !strings.Contains(lines[end], "====") {
			return strings.TrimSpace(line)
		}
		return strings.Join(lines[start:end+1], "\n")
	}
	return ""
}

func printSummary(cfg config.Config, warnings []string) {
	serverIP := ""
	if cfg.Domain == "" {
		serverIP = utils.ServerIP()
	}

	fmt.Printf("\n\n %s Deployment complete\n\n", color.GreenString("✓"))
	fmt.Printf("   Panel:      %s\n", cfg.PanelURL(serverIP))
	fmt.Printf("   Proxy port: %d\n", cfg.ProxyPort)

	fmt.Println("\n   Management commands:")
	for _, command := range []string{"mtpctl status", "mtpctl logs " + panelService, "mtpctl restart", "mtpctl update"} {
		fmt.Printf("    → %s\n", command)
	}

	if len(warnings) > 0 {
		fmt.Printf("\n %s Warnings:\n", color.YellowString("⚠"))
		for _, warning := range warnings {
			fmt.Printf("   %s %s\n", color.YellowString("→"), warning)
		}
	}
	fmt.Println("")
}
