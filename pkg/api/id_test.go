package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orchestra-dev/orchestra/pkg/api"
)

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello-world", "hello-world"},
		{"hello world", "hello-world"},
		{"hello/world", "helloworld"},
		{"  spaced  ", "spaced"},
		{"v1.2+build_3", "v1.2+build_3"},
		{"<script>", "script"},
		{"---", ""},
	}

	for _, tc := range tests {
		assert.Equal(t,
			api.BlueprintID(tc.expected),
			api.SanitizeID(api.BlueprintID(tc.input)))
	}
}

func TestSanitizeIDTypes(t *testing.T) {
	assert.Equal(t,
		api.DeploymentID("my-app"),
		api.SanitizeID(api.DeploymentID("my app!")))
}
