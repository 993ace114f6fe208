// Package dsl defines the contract to the declarative-document parser and
// provides a YAML reference implementation for local development and tests
package dsl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/orchestra-dev/orchestra/pkg/api"
)

type (
	// Parser resolves and validates a topology entry document, returning a
	// parsed plan or a structured *ParseError
	Parser interface {
		Parse(
			ctx context.Context, entryURL, aliasURL, resourceBaseURL string,
		) (*api.Plan, error)
	}

	// ParseError is the structured failure raised when a document cannot be
	// parsed or fails validation. Detail carries the parser's original
	// diagnostic text
	ParseError struct {
		Detail string
	}

	// YAMLParser parses entry documents from the local filesystem. Entry
	// URLs may be plain paths or file:// URLs
	YAMLParser struct{}

	document struct {
		Name      string              `yaml:"name"`
		Nodes     []documentNode      `yaml:"nodes"`
		Workflows map[string]workflow `yaml:"workflows"`
	}

	documentNode struct {
		Name          string         `yaml:"name"`
		Type          string         `yaml:"type"`
		Instances     int            `yaml:"instances"`
		Host          string         `yaml:"host"`
		Properties    map[string]any `yaml:"properties"`
		Relationships []relationship `yaml:"relationships"`
	}

	relationship struct {
		Type       string         `yaml:"type"`
		Target     string         `yaml:"target"`
		Properties map[string]any `yaml:"properties"`
	}

	workflow struct {
		Operation  string         `yaml:"operation"`
		Parameters map[string]any `yaml:"parameters"`
	}
)

var _ Parser = (*YAMLParser)(nil)

func (e *ParseError) Error() string {
	return e.Detail
}

// NewParseError creates a parse error with a formatted diagnostic
func NewParseError(format string, args ...any) *ParseError {
	return &ParseError{Detail: fmt.Sprintf(format, args...)}
}

// NewYAMLParser creates the local filesystem YAML parser
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

// Parse reads and validates the entry document. Alias mapping and resource
// base URLs are accepted for contract parity but unused by the local
// implementation
func (p *YAMLParser) Parse(
	_ context.Context, entryURL, _, _ string,
) (*api.Plan, error) {
	path := strings.TrimPrefix(entryURL, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewParseError("failed to read entry document: %v", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewParseError("invalid YAML document: %v", err)
	}
	return buildPlan(&doc)
}

func buildPlan(doc *document) (*api.Plan, error) {
	if len(doc.Nodes) == 0 {
		return nil, NewParseError("document declares no nodes")
	}

	names := map[string]bool{}
	for _, n := range doc.Nodes {
		if n.Name == "" {
			return nil, NewParseError("node is missing a name")
		}
		if names[n.Name] {
			return nil, NewParseError("duplicate node name: %s", n.Name)
		}
		names[n.Name] = true
	}

	plan := &api.Plan{
		Name:      doc.Name,
		Nodes:     make([]*api.PlanNode, 0, len(doc.Nodes)),
		Workflows: map[api.WorkflowID]api.Workflow{},
	}

	for _, n := range doc.Nodes {
		node, err := buildPlanNode(&n, names)
		if err != nil {
			return nil, err
		}
		plan.Nodes = append(plan.Nodes, node)
	}

	for name, wf := range doc.Workflows {
		if name == "" {
			return nil, NewParseError("workflow is missing a name")
		}
		plan.Workflows[api.WorkflowID(name)] = api.Workflow{
			Operation:  wf.Operation,
			Parameters: wf.Parameters,
		}
	}

	return plan, nil
}

func buildPlanNode(
	n *documentNode, names map[string]bool,
) (*api.PlanNode, error) {
	if n.Type == "" {
		return nil, NewParseError("node %s is missing a type", n.Name)
	}
	if n.Host != "" && !names[n.Host] {
		return nil, NewParseError(
			"node %s references unknown host: %s", n.Name, n.Host)
	}

	rels := make([]api.Relationship, 0, len(n.Relationships))
	for _, r := range n.Relationships {
		if !names[r.Target] {
			return nil, NewParseError(
				"node %s has relationship to unknown target: %s",
				n.Name, r.Target)
		}
		rels = append(rels, api.Relationship{
			Type:       r.Type,
			TargetID:   api.NodeID(r.Target),
			Properties: r.Properties,
		})
	}

	return &api.PlanNode{
		ID:            api.NodeID(n.Name),
		Type:          n.Type,
		Instances:     n.Instances,
		HostID:        api.NodeID(n.Host),
		Properties:    n.Properties,
		Relationships: rels,
	}, nil
}
