package upload_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/orchestra-dev/orchestra/internal/assert"
	"github.com/orchestra-dev/orchestra/internal/assert/helpers"
	"github.com/orchestra-dev/orchestra/internal/upload"
	"github.com/orchestra-dev/orchestra/pkg/api"
	"github.com/orchestra-dev/orchestra/pkg/dsl"
)

type publishEnv struct {
	env       *helpers.TestEnv
	publisher *upload.Publisher
	extractor *upload.Extractor
}

func newPublishEnv(t *testing.T) *publishEnv {
	t.Helper()
	env := helpers.NewTestEnv(t)
	resolver := upload.NewResolver(env.Config, dsl.NewYAMLParser())
	return &publishEnv{
		env:       env,
		publisher: upload.NewPublisher(env.Config, env.Storage, resolver, nil),
		extractor: upload.NewExtractor(env.Config),
	}
}

func (p *publishEnv) submit(
	t *testing.T, files map[string]string, id api.BlueprintID,
) (*api.Blueprint, error) {
	t.Helper()
	archive := helpers.BuildArchive(t, files)

	// the receiver's scratch copy lives under the file server root
	scratch := filepath.Join(p.env.Config.FileServerRoot, "upload-test.tar.gz")
	data, err := os.ReadFile(archive)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(scratch, data, 0o644))

	staged, err := p.extractor.Extract(scratch)
	require.NoError(t, err)

	return p.publisher.Publish(context.Background(), staged, "", scratch, id)
}

func TestPublishBlueprint(t *testing.T) {
	as := assert.New(t)
	p := newPublishEnv(t)

	blueprint, err := p.submit(t, map[string]string{
		"my-app/blueprint.yaml": helpers.MinimalBlueprintYAML,
	}, "bp-1")
	as.NoError(err)
	as.Equal(api.BlueprintID("bp-1"), blueprint.ID)
	as.Equal("hello-world", blueprint.Plan.Name)

	stored, err := p.env.Storage.GetBlueprint(context.Background(), "bp-1")
	as.NoError(err)
	as.Equal(blueprint.Plan.Name, stored.Plan.Name)

	root := p.env.Config.FileServerRoot
	as.FileExists(filepath.Join(
		root, "blueprints", "bp-1", "blueprint.yaml"))
	as.FileExists(filepath.Join(
		root, "uploaded-blueprints", "bp-1", "bp-1.tar.gz"))
}

func TestPublishGeneratesID(t *testing.T) {
	as := assert.New(t)
	p := newPublishEnv(t)

	blueprint, err := p.submit(t, map[string]string{
		"my-app/blueprint.yaml": helpers.MinimalBlueprintYAML,
	}, "")
	as.NoError(err)
	as.NotEmpty(blueprint.ID)

	_, err = p.env.Storage.GetBlueprint(context.Background(), blueprint.ID)
	as.NoError(err)
}

func TestPublishDuplicateIDRemovesStagedDir(t *testing.T) {
	as := assert.New(t)
	p := newPublishEnv(t)

	files := map[string]string{
		"my-app/blueprint.yaml": helpers.MinimalBlueprintYAML,
	}
	_, err := p.submit(t, files, "bp-1")
	as.NoError(err)

	_, err = p.submit(t, files, "bp-1")
	as.ErrCode(api.CodeConflict, err)

	// nothing from the failed submission survives in the shared root
	entries, err2 := os.ReadDir(p.env.Config.FileServerRoot)
	require.NoError(t, err2)
	for _, e := range entries {
		as.NotContains(e.Name(), "my-app-")
	}
}

func TestPublishMissingEntryRemovesStagedDir(t *testing.T) {
	as := assert.New(t)
	p := newPublishEnv(t)

	_, err := p.submit(t, map[string]string{
		"my-app/not-blueprint.yaml": helpers.MinimalBlueprintYAML,
	}, "bp-1")
	as.ErrCode(api.CodeBadParameters, err)

	// the staged tree does not survive a pre-persistence failure
	entries, err2 := os.ReadDir(p.env.Config.FileServerRoot)
	require.NoError(t, err2)
	for _, e := range entries {
		as.NotContains(e.Name(), "my-app-")
	}
}

func TestPublishInvalidBlueprint(t *testing.T) {
	as := assert.New(t)
	p := newPublishEnv(t)

	_, err := p.submit(t, map[string]string{
		"my-app/blueprint.yaml": "nodes: {not: [a, list",
	}, "bp-1")
	as.ErrCode(api.CodeInvalidBlueprint, err)

	_, err = p.env.Storage.GetBlueprint(context.Background(), "bp-1")
	as.ErrCode(api.CodeNotFound, err)
}

func TestPublishPackagesPlugins(t *testing.T) {
	as := assert.New(t)
	p := newPublishEnv(t)

	_, err := p.submit(t, map[string]string{
		"my-app/blueprint.yaml":            helpers.MinimalBlueprintYAML,
		"my-app/plugins/agent/setup.py":    "setup",
		"my-app/plugins/agent/src/impl.py": "impl",
	}, "bp-1")
	as.NoError(err)

	zipPath := filepath.Join(
		p.env.Config.FileServerRoot,
		"blueprints", "bp-1", "plugins", "agent.zip")
	as.FileExists(zipPath)

	r, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	as.ElementsMatch(
		[]string{"agent/setup.py", "agent/src/impl.py"}, names)
}

func TestPublishMissingArchiveIsFatal(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	resolver := upload.NewResolver(env.Config, dsl.NewYAMLParser())
	publisher := upload.NewPublisher(env.Config, env.Storage, resolver, nil)

	staged := stageDir(t, env.Config, map[string]string{
		"blueprint.yaml": helpers.MinimalBlueprintYAML,
	})

	_, err := publisher.Publish(
		context.Background(), staged, "",
		filepath.Join(env.Config.FileServerRoot, "vanished.tar.gz"), "bp-1")
	as.ErrorIs(err, upload.ErrArchiveGone)
	as.ErrCode(api.CodeInternal, err)
}

func TestPublishMirrorsArchive(t *testing.T) {
	as := assert.New(t)
	env := helpers.NewTestEnv(t)
	bucket := memblob.OpenBucket(nil)
	defer func() { _ = bucket.Close() }()

	resolver := upload.NewResolver(env.Config, dsl.NewYAMLParser())
	publisher := upload.NewPublisher(env.Config, env.Storage, resolver, bucket)
	extractor := upload.NewExtractor(env.Config)

	archive := helpers.BuildArchive(t, map[string]string{
		"my-app/blueprint.yaml": helpers.MinimalBlueprintYAML,
	})
	scratch := filepath.Join(env.Config.FileServerRoot, "upload-m.tar.gz")
	data, err := os.ReadFile(archive)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(scratch, data, 0o644))

	staged, err := extractor.Extract(scratch)
	require.NoError(t, err)

	_, err = publisher.Publish(context.Background(), staged, "", scratch, "bp-1")
	as.NoError(err)

	exists, err := bucket.Exists(context.Background(), "bp-1/bp-1.tar.gz")
	as.NoError(err)
	as.True(exists)
}
