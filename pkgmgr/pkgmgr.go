// Package pkgmgr installs host prerequisites through the distribution's
// package manager, with fallback chains for hosts nothing recognizes.
package pkgmgr

import (
	"fmt"
	"os/exec"
	"strings"

	"mtpanel/mtpctl/domain"
)

// base tooling every later step depends on
var basePackages = []string{"curl", "ca-certificates", "tar"}

// Manager is one package-management lineage. All variants expose the same
// operations so callers can try them in sequence.
type Manager interface {
	Name() string
	Bin() string
	Install(packages ...string) error
	InstallDocker() error
}

// Installer drives prerequisite installation. Look is swapped out in tests
// to simulate present or missing binaries.
type Installer struct {
	Runner domain.Runner
	Look   func(file string) (string, error)
}

func NewInstaller(r domain.Runner) *Installer {
	return &Installer{Runner: r, Look: exec.LookPath}
}

func (i *Installer) available(m Manager) bool {
	_, err := i.Look(m.Bin())
	return err == nil
}

// ForEnvironment returns the manager matching the OS family, nil when the
// family is unrecognized.
func (i *Installer) ForEnvironment(env domain.Environment) Manager {
	switch env.OSFamily {
	case domain.FamilyDebian:
		return aptManager{run: i.Runner, osID: env.OSID}
	case domain.FamilyRedHat:
		return yumManager{run: i.Runner}
	case domain.FamilyFedora:
		return dnfManager{run: i.Runner}
	}
	return nil
}

// All returns every known manager in probe order.
func (i *Installer) All() []Manager {
	return []Manager{
		aptManager{run: i.Runner},
		dnfManager{run: i.Runner},
		yumManager{run: i.Runner},
	}
}

// EnsurePrereqs installs curl, CA certificates and archive tooling. On an
// unrecognized distribution every known manager is tried in turn. Failure
// is reported, not fatal: missing prerequisites only bite later, at the
// runtime verification.
func (i *Installer) EnsurePrereqs(env domain.Environment) error {
	if m := i.ForEnvironment(env); m != nil {
		if !i.available(m) {
			return fmt.Errorf("%s not found on a %s system", m.Bin(), env.OSFamily)
		}
		return m.Install(basePackages...)
	}

	for _, m := range i.All() {
		if !i.available(m) {
			continue
		}
		if err := m.Install(basePackages...); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no package manager could install %s", strings.Join(basePackages, ", "))
}

type aptManager struct {
	run  domain.Runner
	osID string
}

func (aptManager) Name() string { return "apt" }
func (aptManager) Bin() string  { return "apt-get" }

func (m aptManager) Install(packages ...string) error {
	if err := m.run.Run(domain.NewCommand([]string{"apt-get", "update", "-qq"})); err != nil {
		return err
	}
	args := append([]string{"apt-get", "install", "-y"}, packages...)
	return m.run.Run(domain.NewCommand(args))
}

func (m aptManager) InstallDocker() error {
	repo := "debian"
	if m.osID == "ubuntu" {
		repo = "ubuntu"
	}
	steps := []domain.Command{
		domain.NewCommand([]string{"install", "-m", "0755", "-d", "/etc/apt/keyrings"}),
		domain.NewCommand([]string{"sh", "-c", fmt.Sprintf(
			"curl -fsSL https://download.docker.com/linux/%s/gpg -o /etc/apt/keyrings/docker.asc", repo)}),
		domain.NewCommand([]string{"sh", "-c", fmt.Sprintf(
			`echo "deb [signed-by=/etc/apt/keyrings/docker.asc] https://download.docker.com/linux/%s $(. /etc/os-release && echo $VERSION_CODENAME) stable" > /etc/apt/sources.list.d/docker.list`, repo)}),
		domain.NewCommand([]string{"apt-get", "update", "-qq"}),
		domain.NewCommand([]string{"apt-get", "install", "-y",
			"docker-ce", "docker-ce-cli", "containerd.io", "docker-compose-plugin"}),
	}
	return runAll(m.run, steps)
}

type yumManager struct {
	run domain.Runner
}

func (yumManager) Name() string { return "yum" }
func (yumManager) Bin() string  { return "yum" }

func (m yumManager) Install(packages ...string) error {
	args := append([]string{"yum", "install", "-y"}, packages...)
	return m.run.Run(domain.NewCommand(args))
}

func (m yumManager) InstallDocker() error {
	steps := []domain.Command{
		domain.NewCommand([]string{"yum", "install", "-y", "yum-utils"}),
		domain.NewCommand([]string{"yum-config-manager", "--add-repo",
			"https://download.docker.com/linux/centos/docker-ce.repo"}),
		domain.NewCommand([]string{"yum", "install", "-y",
			"docker-ce", "docker-ce-cli", "containerd.io", "docker-compose-plugin"}),
	}
	return runAll(m.run, steps)
}

type dnfManager struct {
	run domain.Runner
}

func (dnfManager) Name() string { return "dnf" }
func (dnfManager) Bin() string  { return "dnf" }

func (m dnfManager) Install(packages ...string) error {
	args := append([]string{"dnf", "install", "-y"}, packages...)
	return m.run.Run(domain.NewCommand(args))
}

func (m dnfManager) InstallDocker() error {
	steps := []domain.Command{
		domain.NewCommand([]string{"dnf", "install", "-y", "dnf-plugins-core"}),
		domain.NewCommand([]string{"dnf", "config-manager", "--add-repo",
			"https://download.docker.com/linux/fedora/docker-ce.repo"}),
		domain.NewCommand([]string{"dnf", "install", "-y",
			"docker-ce", "docker-ce-cli", "containerd.io", "docker-compose-plugin"}),
	}
	return runAll(m.run, steps)
}

func runAll(r domain.Runner, commands []domain.Command) error {
	for _, cmd := range commands {
		if err := r.Run(cmd); err != nil {
			return err
		}
	}
	return nil
}
