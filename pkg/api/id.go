package api

import (
	"regexp"
	"strings"
)

type (
	// BlueprintID is a unique identifier for a published blueprint
	BlueprintID string

	// DeploymentID is a unique identifier for a deployment
	DeploymentID string

	// ExecutionID is a unique identifier for a workflow execution
	ExecutionID string

	// NodeID is a unique identifier for a node template
	NodeID string

	// InstanceID is a unique identifier for a node instance
	InstanceID string

	// WorkflowID names a workflow within a deployment's plan
	WorkflowID string
)

// InvalidIDChars matches characters not permitted in caller-supplied
// identifiers. Valid characters are: letters, digits, underscore, dot,
// hyphen, plus, space
var InvalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

// SanitizeID removes invalid characters from an ID, replaces spaces with
// hyphens, and trims leading and trailing hyphens
func SanitizeID[T ~string](id T) T {
	sanitized := InvalidIDChars.ReplaceAllString(string(id), "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return T(strings.Trim(sanitized, "-"))
}
