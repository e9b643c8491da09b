package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"mtpanel/mtpctl/domain"
)

// daemon settings for nested container execution: the guest does not own
// its kernel, so seccomp filtering and SELinux labeling cannot hold
var constrainedDaemonConfig = []byte(`{
  "seccomp-profile": "unconfined",
  "selinux-enabled": false
}
`)

// Adapter relaxes the runtime daemon configuration on hosts whose
// virtualization cannot offer full kernel isolation to nested containers.
type Adapter struct {
	ConfigPath string
	Runner     domain.Runner
	Settle     time.Duration
	Now        func() time.Time
}

func NewAdapter(r domain.Runner) *Adapter {
	return &Adapter{
		ConfigPath: "/etc/docker/daemon.json",
		Runner:     r,
		Settle:     10 * time.Second,
		Now:        time.Now,
	}
}

// Apply rewrites the daemon configuration and restarts the daemon. Strict
// no-op outside lxc and openvz: no file writes, no service restarts.
func (a *Adapter) Apply(env domain.Environment) error {
	if !env.Constrained() {
		return nil
	}

	fmt.Printf("\n %s Adapting docker for %s (host isolation will be reduced)\n", color.YellowString("▶"), env.Virt)

	if err := a.writeDaemonConfig(); err != nil {
		return err
	}
	a.disableAppArmor()
	return a.restartDaemon()
}

func (a *Adapter) writeDaemonConfig() error {
	if current, err := os.ReadFile(a.ConfigPath); err == nil {
		backup := fmt.Sprintf("%s.bak.%s", a.ConfigPath, a.Now().Format("20060102_150405"))
		if err := os.WriteFile(backup, current, 0o644); err == nil {
			fmt.Printf(" %s previous daemon config saved to %s\n", color.YellowString("→"), backup)
		}
	}

	if err := os.MkdirAll(filepath.Dir(a.ConfigPath), 0o755); err != nil {
		return fmt.Errorf("Unable to prepare the docker config directory: %s", err)
	}
	if err := os.WriteFile(a.ConfigPath, constrainedDaemonConfig, 0o644); err != nil {
		return fmt.Errorf("Unable to write the docker daemon config: %s", err)
	}
	return nil
}

// an active AppArmor profile blocks nested containers the same way
func (a *Adapter) disableAppArmor() {
	check := domain.NewCommand([]string{"systemctl", "is-active", "--quiet", "apparmor"})
	if err := a.Runner.RunQuietly(check); err != nil {
		return
	}
	a.Runner.Run(domain.NewCommand([]string{"systemctl", "stop", "apparmor"}))
	a.Runner.Run(domain.NewCommand([]string{"systemctl", "disable", "apparmor"}))
}

func (a *Adapter) restartDaemon() error {
	if err := a.Runner.Run(domain.NewCommand([]string{"systemctl", "restart", "docker"})); err != nil {
		return fmt.Errorf("Unable to restart the docker daemon: %s", err)
	}
	fmt.Printf(" %s waiting for the daemon to settle...\n", color.YellowString("→"))
	time.Sleep(a.Settle)
	return nil
}
