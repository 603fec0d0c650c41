// Package extract untars a downloaded archive, transparently decompressing
// gzip, bzip2, xz and lz4 streams detected by their magic bytes.
package extract

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rget-dev/rget/pkg/logging"
)

var ErrArchiveEscape = errors.New("archive contains entry outside of target directory")

// ExtractFile opens the archive at path and unpacks it into destDir,
// creating the directory if needed.
func ExtractFile(path, destDir string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening archive %s: %w", path, err)
	}
	defer f.Close()
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	return Extract(f, destDir)
}

// Extract unpacks the (possibly compressed) tar stream r into destDir.
func Extract(r io.Reader, destDir string) error {
	buffered := bufio.NewReader(r)
	header, err := buffered.Peek(magicLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error peeking archive header: %w", err)
	}

	var stream io.Reader = buffered
	if decompress := detectFormat(header); decompress != nil {
		if stream, err = decompress(buffered); err != nil {
			return fmt.Errorf("error decompressing archive: %w", err)
		}
	}
	return untar(stream, destDir)
}

type deferredLink struct {
	typeflag byte
	oldName  string
	newName  string
}

func untar(r io.Reader, destDir string) error {
	logger := logging.GetLogger()
	tarReader := tar.NewReader(r)

	// Links are created after all regular entries so a link target that
	// appears later in the archive already exists.
	var links []deferredLink

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		target, err := secureJoin(destDir, header.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, cleanFileMode(os.FileMode(header.Mode))); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(tarReader, target, os.FileMode(header.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink, tar.TypeLink:
			links = append(links, deferredLink{typeflag: header.Typeflag, oldName: header.Linkname, newName: target})
		default:
			return fmt.Errorf("unsupported entry type %q for %s", header.Typeflag, header.Name)
		}
	}

	for _, l := range links {
		if err := createLink(l, destDir); err != nil {
			return err
		}
	}
	logger.Debug().Str("dest", destDir).Msg("Extract")
	return nil
}

func writeEntry(tarReader io.Reader, target string, mode os.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, cleanFileMode(mode))
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, tarReader); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func createLink(l deferredLink, destDir string) error {
	if l.typeflag == tar.TypeLink {
		oldPath, err := secureJoin(destDir, l.oldName)
		if err != nil {
			return err
		}
		return os.Link(oldPath, l.newName)
	}
	return os.Symlink(l.oldName, l.newName)
}

// secureJoin resolves name under destDir and rejects entries that would
// escape it.
func secureJoin(destDir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty entry name", ErrArchiveEscape)
	}
	target, err := filepath.Abs(filepath.Join(destDir, name))
	if err != nil {
		return "", err
	}
	destAbs, err := filepath.Abs(destDir)
	if err != nil {
		return "", err
	}
	if target != destAbs && !strings.HasPrefix(target, destAbs+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrArchiveEscape, name)
	}
	return target, nil
}

func cleanFileMode(mode os.FileMode) os.FileMode {
	return mode &^ (os.ModeSticky | os.ModeSetuid | os.ModeSetgid)
}
