package actions

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Songmu/prompter"
	"github.com/fatih/color"

	"mtpanel/mtpctl/config"
	"mtpanel/mtpctl/domain"
	"mtpanel/mtpctl/utils"
)

// RestoreActionHandler unpacks a backup archive into the installation
// directory. Only data/ and .env are taken from the archive; anything else
// it may carry is ignored.
func RestoreActionHandler(ctx domain.ExecutionContext, file string, ask config.Asker) error {
	if !ctx.Yes {
		ok := prompter.YN(fmt.Sprintf("Restore %s into %s? Existing data will be overwritten", file, ctx.RootDir), false)
		if !ok {
			return nil
		}
	}

	var reader io.Reader
	if strings.HasSuffix(file, ".enc") {
		sealed, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("Unable to read the backup file: %s", err)
		}
		plain, err := utils.Unseal(sealed, []byte(ask.Secret("Backup passphrase")))
		if err != nil {
			return err
		}
		reader = bytes.NewReader(plain)
	} else {
		archive, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("Unable to read the backup file: %s", err)
		}
		defer archive.Close()
		reader = archive
	}

	if err := restoreArchive(ctx, reader); err != nil {
		return err
	}

	fmt.Printf("\n %s Done\n", color.GreenString("✓"))
	return nil
}

func restoreArchive(ctx domain.ExecutionContext, reader io.Reader) error {
	gzipReader, err := gzip.NewReader(reader)
	if err != nil {
		return fmt.Errorf("Unable to read the backup archive: %s", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	base := filepath.Clean(ctx.RootDir)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}

		name := path.Clean(header.Name)
		if name != ".env" && name != "data" && !strings.HasPrefix(name, "data/") {
			continue
		}

		target := filepath.Join(base, filepath.FromSlash(name))
		if !strings.HasPrefix(target, base+string(os.PathSeparator)) {
			return fmt.Errorf("backup entry escapes the installation: %s", header.Name)
		}

		if header.Typeflag == tar.TypeDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		fmt.Printf(" → Restoring %s\n", name)
		if err := restoreFile(target, tarReader, header.FileInfo()); err != nil {
			return err
		}
	}

	return nil
}

func restoreFile(dest string, source io.Reader, sourceInfo os.FileInfo) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	file, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, sourceInfo.Mode())
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, source)
	return err
}
