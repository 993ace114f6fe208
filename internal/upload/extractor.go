package upload

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/orchestra-dev/orchestra/internal/config"
	"github.com/orchestra-dev/orchestra/pkg/api"
)

// Extractor unpacks a received archive into a uniquely named staging
// directory under the shared file-server root
type Extractor struct {
	root string
}

var ErrUnsafePath = errors.New("archive entry escapes extraction directory")

const extractedFileMode = 0o755

// NewExtractor creates an extractor rooted at the configured file area
func NewExtractor(cfg *config.Config) *Extractor {
	return &Extractor{root: cfg.FileServerRoot}
}

// Extract unpacks the tar archive at archivePath and moves its single
// top-level directory into the root under a collision-free generated name.
// The temporary extraction directory is removed on every exit path; any
// archive shape other than exactly one top-level directory fails with
// BadParameters
func (e *Extractor) Extract(archivePath string) (string, error) {
	tempDir, err := os.MkdirTemp(e.root, "blueprint-submit-")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = os.RemoveAll(tempDir)
	}()

	if err := e.untar(archivePath, tempDir); err != nil {
		return "", err
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return "", err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return "", api.BadParameters("archive must contain exactly 1 directory")
	}

	// Unique per upload so repeated uploads of archives sharing a directory
	// name never collide in the shared root
	base := entries[0].Name()
	generated := fmt.Sprintf("%s-%s", base, uuid.New())

	staged := filepath.Join(tempDir, generated)
	if err := os.Rename(filepath.Join(tempDir, base), staged); err != nil {
		return "", err
	}
	if err := os.Rename(staged, filepath.Join(e.root, generated)); err != nil {
		return "", err
	}
	return generated, nil
}

func (e *Extractor) untar(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	var reader io.Reader = f
	gz, err := gzip.NewReader(f)
	switch {
	case err == nil:
		defer func() {
			_ = gz.Close()
		}()
		reader = gz
	case errors.Is(err, gzip.ErrHeader):
		// Plain uncompressed tar
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
	default:
		return api.BadParameters("failed to read archive: %v", err)
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return api.BadParameters("failed to read archive: %v", err)
		}
		if err := extractEntry(tr, hdr, dest); err != nil {
			return err
		}
	}
}

func extractEntry(tr *tar.Reader, hdr *tar.Header, dest string) error {
	target, err := safeJoin(dest, hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, extractedFileMode)
	case tar.TypeReg:
		if err := os.MkdirAll(
			filepath.Dir(target), extractedFileMode,
		); err != nil {
			return err
		}
		out, err := os.OpenFile(
			target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC,
			os.FileMode(hdr.Mode)&os.ModePerm)
		if err != nil {
			return err
		}
		_, err = io.Copy(out, tr)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		return err
	default:
		// Links, devices, and other entry types are dropped
		return nil
	}
}

func safeJoin(dest, name string) (string, error) {
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) || cleaned == ".." ||
		strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(dest, cleaned), nil
}
