package helpers

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orchestra-dev/orchestra/pkg/api"
)

// NewTestPlan creates a small two-node plan with install and uninstall
// workflows. The web node is contained in the vm node
func NewTestPlan() *api.Plan {
	return &api.Plan{
		Name: "test-app",
		Nodes: []*api.PlanNode{
			{
				ID:   "vm",
				Type: "host",
			},
			{
				ID:     "web",
				Type:   "server",
				HostID: "vm",
				Relationships: []api.Relationship{
					{Type: "contained_in", TargetID: "vm"},
				},
			},
		},
		Workflows: map[api.WorkflowID]api.Workflow{
			"install":   {Operation: "default.install"},
			"uninstall": {Operation: "default.uninstall"},
		},
	}
}

// NewTestBlueprint creates a blueprint with a random id when none is given
func NewTestBlueprint(id api.BlueprintID) *api.Blueprint {
	if id == "" {
		id = api.BlueprintID("bp-" + uuid.New().String()[:8])
	}
	now := time.Now().UTC()
	return &api.Blueprint{
		ID:        id,
		Plan:      NewTestPlan(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SeedBlueprint stores a test blueprint and returns it
func (e *TestEnv) SeedBlueprint(
	t *testing.T, id api.BlueprintID,
) *api.Blueprint {
	t.Helper()
	blueprint := NewTestBlueprint(id)
	require.NoError(t, e.Storage.InsertBlueprint(context.Background(), blueprint))
	return blueprint
}

// SeedDeployment stores a blueprint and creates a deployment from it
func (e *TestEnv) SeedDeployment(
	t *testing.T, id api.DeploymentID,
) *api.Deployment {
	t.Helper()
	blueprint := e.SeedBlueprint(t, "")
	deployment, err := e.Manager.CreateDeployment(
		context.Background(), blueprint.ID, id)
	require.NoError(t, err)
	return deployment
}

// BuildArchive writes a gzipped tar archive containing the given files,
// keyed by their path within the archive, and returns its location
func BuildArchive(t *testing.T, files map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "archive.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	dirs := map[string]bool{}
	for name, content := range files {
		for dir := filepath.Dir(name); dir != "."; dir = filepath.Dir(dir) {
			if dirs[dir] {
				continue
			}
			dirs[dir] = true
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Name:     dir + "/",
				Typeflag: tar.TypeDir,
				Mode:     0o755,
			}))
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err = tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return path
}

// MinimalBlueprintYAML is a valid topology document with one node and one
// workflow
const MinimalBlueprintYAML = `
name: hello-world
nodes:
  - name: vm
    type: host
workflows:
  install:
    operation: default.install
`
