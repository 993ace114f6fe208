package api

type (
	// Plan is the parsed topology document returned by the DSL parser. The
	// manager treats it as mostly opaque; only node templates and workflow
	// names are interpreted, for deployment materialization and workflow
	// enumeration
	Plan struct {
		Name      string                  `json:"name,omitempty"`
		Nodes     []*PlanNode             `json:"nodes"`
		Workflows map[WorkflowID]Workflow `json:"workflows"`
		Raw       Params                  `json:"raw,omitempty"`
	}

	// PlanNode is a node template within a parsed plan
	PlanNode struct {
		ID            NodeID         `json:"id"`
		Type          string         `json:"type"`
		Instances     int            `json:"instances,omitempty"`
		HostID        NodeID         `json:"host_id,omitempty"`
		Properties    Params         `json:"properties,omitempty"`
		Relationships []Relationship `json:"relationships,omitempty"`
	}

	// Workflow describes a named workflow declared by a plan
	Workflow struct {
		Operation  string `json:"operation,omitempty"`
		Parameters Params `json:"parameters,omitempty"`
	}
)

// WorkflowNames returns the names of all workflows declared by the plan
func (p *Plan) WorkflowNames() []WorkflowID {
	names := make([]WorkflowID, 0, len(p.Workflows))
	for name := range p.Workflows {
		names = append(names, name)
	}
	return names
}

// HasWorkflow reports whether the plan declares the named workflow
func (p *Plan) HasWorkflow(id WorkflowID) bool {
	_, ok := p.Workflows[id]
	return ok
}

// InstanceCount returns the number of instances to materialize for a node
// template, defaulting to one
func (n *PlanNode) InstanceCount() int {
	if n.Instances <= 0 {
		return 1
	}
	return n.Instances
}
