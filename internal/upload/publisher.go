package upload

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gocloud.dev/blob"

	"github.com/orchestra-dev/orchestra/internal/config"
	"github.com/orchestra-dev/orchestra/internal/store"
	"github.com/orchestra-dev/orchestra/pkg/api"
	"github.com/orchestra-dev/orchestra/pkg/log"
)

// Publisher registers parsed blueprints in storage and relocates their
// staged files into the permanent blueprint layout
type Publisher struct {
	cfg      *config.Config
	storage  store.Storage
	resolver *Resolver
	mirror   *blob.Bucket
}

// ErrArchiveGone is the unrecoverable condition raised when the original
// upload vanished from the scratch area before the final move
var ErrArchiveGone = errors.New(
	"uploaded archive no longer exists - cannot move archive to " +
		"uploaded blueprints directory")

const pluginsFolder = "plugins"

// NewPublisher creates a publisher. The mirror bucket is optional; when
// present the retained upload is copied to it after a successful publish
func NewPublisher(
	cfg *config.Config, storage store.Storage, resolver *Resolver,
	mirror *blob.Bucket,
) *Publisher {
	return &Publisher{
		cfg:      cfg,
		storage:  storage,
		resolver: resolver,
		mirror:   mirror,
	}
}

// Publish runs the commit points of blueprint publication: parse, insert
// into storage, relocate staged files, package bundled plugins, and retain
// the original upload. Failures before the storage insert remove the staged
// directory; a missing upload archive at the final move is unrecoverable
func (p *Publisher) Publish(
	ctx context.Context, stagedDir, explicitFile, archivePath string,
	blueprintID api.BlueprintID,
) (*api.Blueprint, error) {
	plan, _, err := p.resolver.Resolve(ctx, stagedDir, explicitFile)
	if err != nil {
		return nil, err
	}

	if blueprintID == "" {
		blueprintID = api.BlueprintID(uuid.New().String())
	}
	now := time.Now().UTC()
	blueprint := &api.Blueprint{
		ID:        blueprintID,
		Plan:      plan,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.storage.InsertBlueprint(ctx, blueprint); err != nil {
		_ = os.RemoveAll(filepath.Join(p.cfg.FileServerRoot, stagedDir))
		return nil, err
	}

	blueprintDir := filepath.Join(
		p.cfg.FileServerRoot, p.cfg.BlueprintsFolder, string(blueprintID))
	if err := os.MkdirAll(filepath.Dir(blueprintDir), 0o755); err != nil {
		return nil, err
	}
	if err := os.Rename(
		filepath.Join(p.cfg.FileServerRoot, stagedDir), blueprintDir,
	); err != nil {
		return nil, err
	}

	if err := p.processPlugins(blueprintDir); err != nil {
		return nil, err
	}

	if err := p.retainArchive(ctx, archivePath, blueprintID); err != nil {
		return nil, err
	}

	slog.Info("Blueprint published", log.BlueprintID(blueprintID))
	return blueprint, nil
}

// processPlugins packages every immediate subdirectory of the blueprint's
// plugins directory into a distributable zip written alongside it
func (p *Publisher) processPlugins(blueprintDir string) error {
	pluginsDir := filepath.Join(blueprintDir, pluginsFolder)
	entries, err := os.ReadDir(pluginsDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pluginDir := filepath.Join(pluginsDir, entry.Name())
		target := filepath.Join(pluginsDir, entry.Name()+".zip")
		if err := zipDir(pluginDir, target); err != nil {
			return err
		}
	}
	return nil
}

// zipDir archives a directory tree. Entry names are rooted at the
// directory's own basename so the unit unpacks into a single folder on a
// worker node
func zipDir(dir, target string) error {
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(out)

	parent := filepath.Dir(dir)
	err = filepath.WalkDir(dir, func(
		path string, d os.DirEntry, err error,
	) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	})

	if zerr := zw.Close(); err == nil {
		err = zerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// retainArchive moves the original upload into the uploaded-blueprints
// layout for later download and audit, then mirrors it when a bucket is
// configured. A missing source archive at this point is fatal for the
// request; no typed error or retry applies
func (p *Publisher) retainArchive(
	ctx context.Context, archivePath string, id api.BlueprintID,
) error {
	if _, err := os.Stat(archivePath); err != nil {
		return fmt.Errorf("%w: %s", ErrArchiveGone, archivePath)
	}

	dir := filepath.Join(
		p.cfg.FileServerRoot, p.cfg.UploadedBlueprintsFolder, string(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	retained := filepath.Join(dir, string(id)+".tar.gz")
	if err := os.Rename(archivePath, retained); err != nil {
		return err
	}

	if p.mirror != nil {
		p.mirrorArchive(ctx, retained, id)
	}
	return nil
}

func (p *Publisher) mirrorArchive(
	ctx context.Context, retained string, id api.BlueprintID,
) {
	data, err := os.ReadFile(retained)
	if err == nil {
		key := string(id) + "/" + string(id) + ".tar.gz"
		err = p.mirror.WriteAll(ctx, key, data, nil)
	}
	if err != nil {
		// The local copy is authoritative; mirroring is best effort
		slog.Warn("Failed to mirror blueprint archive",
			log.BlueprintID(id), log.Error(err))
	}
}
