package actions

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"mtpanel/mtpctl/certs"
	"mtpanel/mtpctl/compose"
	"mtpanel/mtpctl/config"
	"mtpanel/mtpctl/domain"
	"mtpanel/mtpctl/engine"
	"mtpanel/mtpctl/firewall"
	"mtpanel/mtpctl/pkgmgr"
	"mtpanel/mtpctl/probe"
	"mtpanel/mtpctl/utils"
)

// InstallActionHandler provisions the host end to end: probe, install the
// runtime, adapt it, verify it, fetch the artifact set, collect the
// configuration and bring the stack up. Re-running it on an installed host
// is safe.
func InstallActionHandler(ctx domain.ExecutionContext, ask config.Asker) error {
	runner := domain.ExecRunner{}
	var warnings []string
	warn := func(message string) {
		fmt.Printf(" %s %s\n", color.YellowString("⚠"), message)
		warnings = append(warnings, message)
	}

	/*
	 * 1. Classify the host
	 */
	fmt.Printf("\n %s Probing the environment...\n", color.YellowString("▶"))
	ctx.Env = probe.New().Classify()
	fmt.Printf("   %s\n", ctx.Env)

	/*
	 * 2. Base prerequisites and the container runtime
	 */
	fmt.Printf("\n %s Installing prerequisites...\n", color.YellowString("▶"))
	installer := pkgmgr.NewInstaller(runner)
	if err := installer.EnsurePrereqs(ctx.Env); err != nil {
		warn(fmt.Sprintf("prerequisites could not be installed automatically (%s), install curl, ca-certificates and tar manually", err))
	}
	if err := installer.EnsureDocker(ctx.Env); err != nil {
		warn(err.Error())
	}

	/*
	 * 3. Adapt the runtime to constrained virtualization
	 */
	if err := engine.NewAdapter(runner).Apply(ctx.Env); err != nil {
		warn(fmt.Sprintf("runtime adaptation failed: %s", err))
	}

	/*
	 * 4. Compose tool
	 */
	tool, err := installer.EnsureCompose(ctx.Env)
	if err != nil {
		return fmt.Errorf("Unable to continue without a compose tool: %s", err)
	}

	/*
	 * 5. Verify the runtime actually works here; nothing past this point
	 *    makes sense on a broken daemon
	 */
	fmt.Printf("\n %s Verifying the container runtime...\n", color.YellowString("▶"))
	if err := verifyRuntime(); err != nil {
		fmt.Printf("\n %s %s\n", color.RedString("✗"), err)
		fmt.Printf(" %s %s\n", color.YellowString("→"), engine.Remediation(ctx.Env.Virt))
		return fmt.Errorf("container runtime verification failed")
	}
	fmt.Printf(" %s docker is operational\n", color.GreenString("✓"))

	/*
	 * 6. Fetch the artifact set on first install
	 */
	if _, err := os.Stat(ctx.Path("docker-compose.yml")); os.IsNotExist(err) {
		fmt.Printf("\n %s Downloading the artifact set...\n", color.YellowString("▶"))
		if err := fetchFreshArtifacts(ctx); err != nil {
			return err
		}
	}

	/*
	 * 7. Deployment configuration: collected once, reused afterwards
	 */
	cfg, err := ensureConfig(ctx, ask)
	if err != nil {
		return err
	}

	/*
	 * 8. Certificates
	 */
	requested := cfg.EnableSSL
	certs.NewProvisioner(runner, tool).Ensure(ctx, &cfg, ask)
	if requested && !cfg.EnableSSL {
		warnings = append(warnings, "certificate issuance failed, the panel stays on plain HTTP")
		if err := cfg.Save(ctx.EnvFile()); err != nil {
			warn(fmt.Sprintf("could not persist the HTTP-only downgrade: %s", err))
		}
	}

	/*
	 * 9. Firewall
	 */
	fmt.Printf("\n %s Opening firewall ports...\n", color.YellowString("▶"))
	firewall.Open(cfg, runner, exec.LookPath)

	/*
	 * 10. Launch and readiness
	 */
	if err := Launch(ctx, tool, cfg, runner); err != nil {
		return err
	}

	printSummary(cfg, warnings)
	return nil
}

func verifyRuntime() error {
	cli, err := engine.NewClient()
	if err != nil {
		return err
	}
	defer cli.Close()

	verifyCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return cli.Verify(verifyCtx)
}

// ensureConfig loads the persisted configuration, or collects and saves it
// on first install.
func ensureConfig(ctx domain.ExecutionContext, ask config.Asker) (config.Config, error) {
	if _, err := os.Stat(ctx.EnvFile()); err == nil {
		fmt.Printf("\n %s Using the existing deployment configuration\n", color.GreenString("✓"))
		return config.Load(ctx.EnvFile())
	}

	fmt.Printf("\n %s Deployment configuration\n", color.YellowString("▶"))
	cfg := config.Collect(ask)
	if err := cfg.Save(ctx.EnvFile()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func fetchFreshArtifacts(ctx domain.ExecutionContext) error {
	if err := os.MkdirAll(ctx.RootDir, 0o755); err != nil {
		return fmt.Errorf("Unable to create %s: %s", ctx.RootDir, err)
	}

	workDir, err := os.MkdirTemp("", "mtpctl-install")
	if err != nil {
		return fmt.Errorf("Unable to create a working directory: %s", err)
	}
	defer os.RemoveAll(workDir)

	tarball, ref, err := NewFetcher().Acquire(ctx.Channel, workDir)
	if err != nil {
		return err
	}
	fmt.Printf(" %s got %s\n", color.GreenString("✓"), ref)

	extracted := filepath.Join(workDir, "extracted")
	if err := utils.UntarStripped(tarball, extracted); err != nil {
		return fmt.Errorf("Unable to unpack the artifact set: %s", err)
	}
	if err := validateArtifacts(extracted); err != nil {
		return err
	}
	return deployArtifacts(ctx, extracted)
}

// validateArtifacts makes sure an acquired tree actually is the panel
// stack before it replaces anything. A broken archive counts as a failed
// acquisition.
func validateArtifacts(dir string) error {
	manifest, err := compose.Inspect(filepath.Join(dir, "docker-compose.yml"))
	if err != nil {
		return err
	}
	for _, service := range []string{panelService, "nginx"} {
		if !manifest.HasService(service) {
			return fmt.Errorf("The fetched artifact set does not define the '%s' service, aborting", service)
		}
	}
	return nil
}

// deployArtifacts copies a fresh artifact tree into the installation
// directory, leaving user-owned state that is already there alone.
func deployArtifacts(ctx domain.ExecutionContext, sourceDir string) error {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Name() == "data" {
			if _, err := os.Stat(ctx.DataDir()); err == nil {
				continue
			}
		}
		if entry.Name() == ".env" {
			if _, err := os.Stat(ctx.EnvFile()); err == nil {
				continue
			}
		}

		source := filepath.Join(sourceDir, entry.Name())
		target := ctx.Path(entry.Name())
		if entry.IsDir() {
			err = utils.CopyTree(source, target)
		} else {
			err = utils.CopyFile(source, target)
		}
		if err != nil {
			return fmt.Errorf("Unable to install %s: %s", entry.Name(), err)
		}
	}
	return nil
}
