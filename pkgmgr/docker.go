package pkgmgr

import (
	"fmt"

	"github.com/fatih/color"

	"mtpanel/mtpctl/compose"
	"mtpanel/mtpctl/domain"
)

// EnsureDocker makes sure the container runtime is installed and running.
// A resolvable docker binary means the host is already equipped: no side
// effects, no network calls.
func (i *Installer) EnsureDocker(env domain.Environment) error {
	if _, err := i.Look("docker"); err == nil {
		fmt.Printf(" %s docker is already installed\n", color.GreenString("✓"))
		return nil
	}

	var err error
	if m := i.ForEnvironment(env); m != nil && i.available(m) {
		fmt.Printf(" %s installing docker (%s)\n", color.YellowString("→"), m.Name())
		err = m.InstallDocker()
	} else {
		// nothing recognized this distribution, the vendor script deals
		// with far more of them than we do
		fmt.Printf(" %s installing docker (vendor script)\n", color.YellowString("→"))
		err = i.Runner.Run(domain.NewCommand([]string{"sh", "-c", "curl -fsSL https://get.docker.com | sh"}))
	}
	if err != nil {
		return fmt.Errorf("Unable to install docker: %s", err)
	}

	i.startDaemon()
	return nil
}

func (i *Installer) startDaemon() {
	cmd := domain.NewCommand([]string{"systemctl", "enable", "--now", "docker"})
	if err := i.Runner.Run(cmd); err != nil {
		fmt.Printf(" %s could not enable the docker service, start it manually if needed\n", color.YellowString("⚠"))
	}
}

// EnsureCompose guarantees a compose tool, preferring whatever is already
// there: the docker CLI plugin, then the standalone binary, then a plugin
// package install, then a direct binary download.
func (i *Installer) EnsureCompose(env domain.Environment) (compose.Tool, error) {
	if tool, err := compose.Detect(i.Runner, i.Look); err == nil {
		fmt.Printf(" %s compose tool found (%s)\n", color.GreenString("✓"), tool)
		return tool, nil
	}

	if m := i.ForEnvironment(env); m != nil && i.available(m) {
		fmt.Printf(" %s installing the compose plugin (%s)\n", color.YellowString("→"), m.Name())
		if err := m.Install("docker-compose-plugin"); err == nil {
			if tool, err := compose.Detect(i.Runner, i.Look); err == nil {
				return tool, nil
			}
		}
	}

	fmt.Printf(" %s downloading the standalone compose binary\n", color.YellowString("→"))
	download := domain.NewCommand([]string{"sh", "-c",
		`curl -fsSL "https://github.com/docker/compose/releases/latest/download/docker-compose-$(uname -s)-$(uname -m)" -o /usr/local/bin/docker-compose && chmod 0755 /usr/local/bin/docker-compose`})
	if err := i.Runner.Run(download); err != nil {
		return compose.Tool{}, fmt.Errorf("Unable to install a compose tool: %s", err)
	}

	tool, err := compose.Detect(i.Runner, i.Look)
	if err != nil {
		return compose.Tool{}, fmt.Errorf("Unable to install a compose tool: %s", err)
	}
	return tool, nil
}
