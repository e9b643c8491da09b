package actions

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Songmu/prompter"
	"github.com/fatih/color"

	"mtpanel/mtpctl/compose"
	"mtpanel/mtpctl/config"
	"mtpanel/mtpctl/domain"
	"mtpanel/mtpctl/engine"
	"mtpanel/mtpctl/utils"
)

// image tag the compose definition references for the throttling-capable
// proxy engine
const engineImageTag = "mtg-custom"

// artifacts recreated from every acquired archive; data/ and .env are
// deliberately absent
var replaceablePaths = []string{"app", "nginx", "docker-compose.yml", "Dockerfile", "Dockerfile.mtg"}

// UpdateActionHandler replaces the application artifacts with a freshly
// acquired set while preserving all user state. Only a failed acquisition
// aborts; every later step degrades to a warning so the stack comes back
// up in some form.
func UpdateActionHandler(ctx domain.ExecutionContext) error {
	runner := domain.ExecRunner{}
	var warnings []string

	if _, err := os.Stat(ctx.Path("docker-compose.yml")); err != nil {
		return fmt.Errorf("No installation found in %s (run 'mtpctl install' first)", ctx.RootDir)
	}
	if !ctx.Yes && !prompter.YN(fmt.Sprintf("Update the installation in %s?", ctx.RootDir), true) {
		return nil
	}

	tool, err := compose.Detect(runner, exec.LookPath)
	if err != nil {
		return fmt.Errorf("Unable to find a compose tool: %s", err)
	}

	cfg, err := config.Load(ctx.EnvFile())
	if err != nil {
		warnings = append(warnings, "deployment configuration missing, defaults in effect")
		cfg = config.Default()
	}

	/*
	 * 1. Snapshot the current artifacts
	 */
	fmt.Printf("\n %s Snapshotting the current installation...\n", color.YellowString("▶"))
	if dir := Snapshot(ctx); dir != "" {
		fmt.Printf(" %s saved to %s\n", color.GreenString("✓"), dir)
	}

	/*
	 * 2. Acquire the new artifact set (the only step allowed to abort)
	 */
	fmt.Printf("\n %s Downloading the new artifact set...\n", color.YellowString("▶"))
	workDir, err := os.MkdirTemp("", "mtpctl-update")
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

	/*
	 * 3. Stop the stack and swap the artifacts
	 */
	fmt.Printf("\n %s Replacing the application artifacts...\n", color.YellowString("▶"))
	runner.Run(tool.CommandFor(ctx, compose.Profile(cfg), "down"))
	if err := ReplaceArtifacts(ctx, extracted); err != nil {
		warnings = append(warnings, fmt.Sprintf("artifact replacement incomplete: %s", err))
	}

	/*
	 * 4. Migrate layout changes left behind by older versions
	 */
	if err := MigrateLayout(ctx); err != nil {
		warnings = append(warnings, fmt.Sprintf("layout migration incomplete: %s", err))
	}

	/*
	 * 5. Rebuild the custom engine image when one is defined
	 */
	if err := rebuildEngineImage(ctx); err != nil {
		warnings = append(warnings, fmt.Sprintf("custom engine image rebuild failed, traffic throttling will be unavailable: %s", err))
	}

	/*
	 * 6. Restart under the recomputed profile
	 */
	cfg, err = config.Load(ctx.EnvFile())
	if err != nil {
		cfg = config.Default()
	}
	if err := Launch(ctx, tool, cfg, runner); err != nil {
		warnings = append(warnings, err.Error())
	}

	printSummary(cfg, warnings)
	return nil
}

// Snapshot copies the replaceable artifacts into a timestamped directory
// next to them. Best effort: an update must not be blocked by a failed
// safety copy.
func Snapshot(ctx domain.ExecutionContext) string {
	dest := ctx.Path(fmt.Sprintf("backup-%s", time.Now().UTC().Format("20060102_150405")))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		fmt.Printf(" %s snapshot skipped: %s\n", color.YellowString("⚠"), err)
		return ""
	}

	for _, name := range replaceablePaths {
		source := ctx.Path(name)
		info, err := os.Stat(source)
		if err != nil {
			continue
		}

		target := filepath.Join(dest, name)
		if info.IsDir() {
			err = utils.CopyTree(source, target)
		} else {
			err = utils.CopyFile(source, target)
		}
		if err != nil {
			fmt.Printf(" %s snapshot of %s failed: %s\n", color.YellowString("⚠"), name, err)
		}
	}
	return dest
}

// ReplaceArtifacts removes each replaceable path and recreates it from the
// extracted artifact tree. Paths the new set no longer ships simply stay
// deleted.
func ReplaceArtifacts(ctx domain.ExecutionContext, sourceDir string) error {
	for _, name := range replaceablePaths {
		target := ctx.Path(name)
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("Unable to remove %s: %s", target, err)
		}

		source := filepath.Join(sourceDir, name)
		info, err := os.Stat(source)
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return err
		}

		if info.IsDir() {
			err = utils.CopyTree(source, target)
		} else {
			err = utils.CopyFile(source, target)
		}
		if err != nil {
			return fmt.Errorf("Unable to install %s: %s", name, err)
		}
	}
	return nil
}

// MigrateLayout moves configuration from locations older versions used to
// the current ones. Running it on an already-migrated tree changes
// nothing.
func MigrateLayout(ctx domain.ExecutionContext) error {
	legacy := ctx.Path("nginx", "default.conf")
	current := ctx.Path("data", "nginx", "conf.d", "default.conf")

	if _, err := os.Stat(legacy); err != nil {
		return nil
	}
	if _, err := os.Stat(current); err == nil {
		return nil
	}

	fmt.Printf(" %s migrating nginx/default.conf to data/nginx/conf.d/\n", color.YellowString("→"))
	if err := utils.CopyFile(legacy, current); err != nil {
		return fmt.Errorf("Unable to migrate the nginx configuration: %s", err)
	}
	return nil
}

func rebuildEngineImage(ctx domain.ExecutionContext) error {
	if _, err := os.Stat(ctx.Path("Dockerfile.mtg")); os.IsNotExist(err) {
		return nil
	}

	fmt.Printf("\n %s Rebuilding the custom engine image...\n", color.YellowString("▶"))
	cli, err := engine.NewClient()
	if err != nil {
		return err
	}
	defer cli.Close()

	buildCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	return cli.BuildImage(buildCtx, ctx.RootDir, "Dockerfile.mtg", engineImageTag, func(line string) {
		fmt.Println("   " + line)
	})
}
