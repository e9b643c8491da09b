package utils

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Untar unpacks a gzipped tarball into dir. With strip set, the single
// top-level directory release archives carry is removed from every entry.
// Entries that would land outside dir abort the extraction.
func Untar(tarball, dir string) error {
	reader, err := os.Open(tarball)
	if err != nil {
		return err
	}
	defer reader.Close()
	return untarStream(reader, dir, false)
}

// UntarStripped is Untar for archives wrapped in a top-level directory.
func UntarStripped(tarball, dir string) error {
	reader, err := os.Open(tarball)
	if err != nil {
		return err
	}
	defer reader.Close()
	return untarStream(reader, dir, true)
}

func untarStream(reader io.Reader, dir string, strip bool) error {
	gzipReader, err := gzip.NewReader(reader)
	if err != nil {
		return err
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	base := filepath.Clean(dir)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}

		name := path.Clean(header.Name)
		if name == "." || name == "/" {
			continue
		}
		if strings.HasPrefix(name, "..") {
			return fmt.Errorf("archive entry escapes the destination: %s", header.Name)
		}
		if strip {
			i := strings.IndexByte(name, '/')
			if i < 0 {
				// the wrapper directory itself
				continue
			}
			name = name[i+1:]
		}

		target := filepath.Join(base, filepath.FromSlash(name))
		if target != base && !strings.HasPrefix(target, base+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes the destination: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tarReader, header.FileInfo()); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeEntry(target string, reader io.Reader, info os.FileInfo) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
