package ir

// Change actions.
const (
	ActionCreate  = "CREATE"
	ActionUpdate  = "UPDATE"
	ActionReplace = "REPLACE"
	ActionDelete  = "DELETE"
	ActionNoop    = "NOOP"
)

// Plan is the difference between two sets of synthesized templates.
type Plan struct {
	Metadata *PlanMetadata     `json:"metadata"`
	Changes  []*ResourceChange `json:"changes"`
	// SectionChanges holds changed outputs, parameters and conditions.
	SectionChanges []*SectionChange `json:"sectionChanges,omitempty"`
	Summary        *PlanSummary     `json:"summary"`
}

type PlanMetadata struct {
	Timestamp     string   `json:"timestamp"`
	PriorSerial   int      `json:"priorSerial"`
	PriorLineage  string   `json:"priorLineage,omitempty"`
	StacksAdded   []string `json:"stacksAdded,omitempty"`
	StacksRemoved []string `json:"stacksRemoved,omitempty"`
}

type ResourceChange struct {
	Address string                   `json:"address"` // <stack>/<logicalId>
	Stack   string                   `json:"stack"`
	Action  string                   `json:"action"`
	Desired *TemplateResource        `json:"resource,omitempty"`
	Prior   *TemplateResource        `json:"prior,omitempty"`
	Diff    map[string]*PropertyDiff `json:"diff,omitempty"`
}

// Template sections compared besides Resources.
const (
	SectionOutputs    = "Outputs"
	SectionParameters = "Parameters"
	SectionConditions = "Conditions"
)

// SectionChange is a changed entry of a non-resource template section.
type SectionChange struct {
	Address string `json:"address"` // <stack>/<section>.<name>
	Stack   string `json:"stack"`
	Section string `json:"section"`
	Name    string `json:"name"`
	Action  string `json:"action"`
	Before  any    `json:"before,omitempty"`
	After   any    `json:"after,omitempty"`
}

type PropertyDiff struct {
	Before any    `json:"before"`
	After  any    `json:"after"`
	Action string `json:"action"` // "create", "update", "delete"
}

type PlanSummary struct {
	Create  int `json:"create"`
	Update  int `json:"update"`
	Delete  int `json:"delete"`
	Replace int `json:"replace"`
	NoOp    int `json:"noop"`
}

// HasChanges reports whether the plan contains anything but no-ops: a
// resource change, a section change, or a stack added or removed.
func (p *Plan) HasChanges() bool {
	if p == nil {
		return false
	}
	if len(p.SectionChanges) > 0 {
		return true
	}
	if md := p.Metadata; md != nil && len(md.StacksAdded)+len(md.StacksRemoved) > 0 {
		return true
	}
	if p.Summary == nil {
		return false
	}
	s := p.Summary
	return s.Create+s.Update+s.Delete+s.Replace > 0
}

// ResourceType returns the type of whichever side of the change is present.
func (c *ResourceChange) ResourceType() string {
	if c.Desired != nil {
		return c.Desired.Type
	}
	if c.Prior != nil {
		return c.Prior.Type
	}
	return ""
}
