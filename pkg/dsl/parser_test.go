package dsl_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestra-dev/orchestra/pkg/dsl"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blueprint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func parseDoc(t *testing.T, content string) (*dsl.YAMLParser, string) {
	t.Helper()
	return dsl.NewYAMLParser(), writeDoc(t, content)
}

func TestParseDocument(t *testing.T) {
	parser, path := parseDoc(t, `
name: web-app
nodes:
  - name: vm
    type: host
    instances: 2
  - name: web
    type: server
    host: vm
    properties:
      port: 8080
    relationships:
      - type: contained_in
        target: vm
workflows:
  install:
    operation: default.install
    parameters:
      retries: 3
`)

	plan, err := parser.Parse(context.Background(), path, "", "")
	require.NoError(t, err)

	assert.Equal(t, "web-app", plan.Name)
	require.Len(t, plan.Nodes, 2)

	vm := plan.Nodes[0]
	assert.Equal(t, "host", vm.Type)
	assert.Equal(t, 2, vm.InstanceCount())

	web := plan.Nodes[1]
	assert.Equal(t, vm.ID, web.HostID)
	require.Len(t, web.Relationships, 1)
	assert.Equal(t, vm.ID, web.Relationships[0].TargetID)
	assert.Equal(t, 8080, web.Properties["port"])

	assert.True(t, plan.HasWorkflow("install"))
}

func TestParseFileURL(t *testing.T) {
	parser, path := parseDoc(t, `
nodes:
  - name: vm
    type: host
`)

	plan, err := parser.Parse(context.Background(), "file://"+path, "", "")
	require.NoError(t, err)
	assert.Len(t, plan.Nodes, 1)
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		contains string
	}{
		{"missing file", "", "failed to read"},
		{"invalid yaml", "nodes: [:::", "invalid YAML"},
		{"no nodes", "name: empty", "declares no nodes"},
		{"unnamed node", "nodes:\n  - type: host", "missing a name"},
		{"untyped node", "nodes:\n  - name: vm", "missing a type"},
		{"duplicate node",
			"nodes:\n  - name: vm\n    type: host\n" +
				"  - name: vm\n    type: host",
			"duplicate node name"},
		{"unknown host",
			"nodes:\n  - name: web\n    type: server\n    host: vm",
			"unknown host"},
		{"unknown target",
			"nodes:\n  - name: web\n    type: server\n" +
				"    relationships:\n      - type: depends_on\n" +
				"        target: db",
			"unknown target"},
	}

	parser := dsl.NewYAMLParser()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tc.doc != "" {
				path = writeDoc(t, tc.doc)
			}

			_, err := parser.Parse(context.Background(), path, "", "")
			require.Error(t, err)

			var parseErr *dsl.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Contains(t, parseErr.Detail, tc.contains)
		})
	}
}
