// Package firewall opens the deployment's public ports on whichever host
// firewall is present. Hosts without ufw or firewalld are left untouched.
package firewall

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fatih/color"

	"mtpanel/mtpctl/config"
	"mtpanel/mtpctl/domain"
)

// Open allows the ports the configuration exposes. Rule failures never
// abort a deployment: the operator gets a warning and the ports to open
// by hand.
func Open(cfg config.Config, r domain.Runner, look func(string) (string, error)) {
	ports := cfg.FirewallPorts()

	if _, err := look("ufw"); err == nil {
		openWith(r, ports, ufwRule)
		return
	}
	if _, err := look("firewall-cmd"); err == nil {
		openWith(r, ports, firewalldRule)
		if err := r.RunQuietly(domain.Command{Name: "firewall-cmd", Args: []string{"--reload"}}); err != nil {
			fmt.Printf(" %s Unable to reload firewalld: %s\n", color.YellowString("⚠"), err)
		}
		return
	}

	slog.Debug("no firewall tool found, skipping port rules")
}

func openWith(r domain.Runner, ports []int, rule func(int) domain.Command) {
	for _, port := range ports {
		if err := r.RunQuietly(rule(port)); err != nil {
			fmt.Printf(" %s Unable to open port %d, allow it manually: %s\n", color.YellowString("⚠"), port, err)
			continue
		}
		fmt.Printf("  %s port %d\n", color.GreenString("✓"), port)
	}
}

func ufwRule(port int) domain.Command {
	return domain.Command{Name: "ufw", Args: []string{"allow", strconv.Itoa(port) + "/tcp"}}
}

func firewalldRule(port int) domain.Command {
	return domain.Command{Name: "firewall-cmd", Args: []string{"--permanent", "--add-port=" + strconv.Itoa(port) + "/tcp"}}
}
