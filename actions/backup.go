package actions

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jhoonb/archivex"

	"mtpanel/mtpctl/config"
	"mtpanel/mtpctl/domain"
	"mtpanel/mtpctl/utils"
)

// BackupActionHandler archives the user-owned state of the installation:
// the data directory and the deployment configuration. Everything else is
// reproducible from the artifact set.
func BackupActionHandler(ctx domain.ExecutionContext, output string, encrypt bool, ask config.Asker) error {
	if _, err := os.Stat(ctx.DataDir()); err != nil {
		return fmt.Errorf("Nothing to back up: %s does not exist", ctx.DataDir())
	}

	// prepare the directory to stage the backup
	backupDir := ".mtpctl_backup"
	if err := os.Mkdir(backupDir, os.ModePerm); err != nil {
		return fmt.Errorf("Unable to create a backup directory: %s", err)
	}
	defer os.RemoveAll(backupDir)

	stage := path.Join(backupDir, "backup")
	if err := utils.CopyTree(ctx.DataDir(), path.Join(stage, "data")); err != nil {
		return fmt.Errorf("Unable to stage the data directory: %s", err)
	}
	if _, err := os.Stat(ctx.EnvFile()); err == nil {
		if err := utils.CopyFile(ctx.EnvFile(), path.Join(stage, ".env")); err != nil {
			return fmt.Errorf("Unable to stage the configuration file: %s", err)
		}
	}

	tar := new(archivex.TarFile)
	tar.Create(path.Join(backupDir, "backup_archive.tar.gz"))
	tar.AddAll(stage, false)
	tar.Close()

	// save the archive with the right name
	archiveFilename := output
	if archiveFilename == "" {
		now := time.Now().UTC()
		year, month, day := now.Date()
		hour, minutes, seconds := now.Clock()
		archiveFilename = fmt.Sprintf("backup-%d%02d%02d_%02d%02d%02d.tar.gz", year, month, day, hour, minutes, seconds)
	}

	if encrypt {
		passphrase := ask.Secret("Passphrase for the encrypted backup")
		if passphrase == "" {
			return fmt.Errorf("An empty passphrase cannot protect a backup")
		}

		archive, err := os.ReadFile(path.Join(backupDir, "backup_archive.tar.gz"))
		if err != nil {
			return fmt.Errorf("Unable to read the staged archive: %s", err)
		}
		sealed, err := utils.Seal(archive, []byte(passphrase))
		if err != nil {
			return fmt.Errorf("Unable to encrypt the backup: %s", err)
		}
		if !strings.HasSuffix(archiveFilename, ".enc") {
			archiveFilename += ".enc"
		}
		if err := os.WriteFile(archiveFilename, sealed, 0o600); err != nil {
			return fmt.Errorf("Unable to create the backup file: %s", err)
		}
	} else {
		if err := os.Rename(path.Join(backupDir, "backup_archive.tar.gz"), archiveFilename); err != nil {
			return fmt.Errorf("Unable to create the backup file: %s", err)
		}
	}

	fmt.Printf("\n %s Done: %s\n", color.GreenString("✓"), archiveFilename)
	return nil
}
