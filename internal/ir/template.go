package ir

// Template is the subset of a CloudFormation template the tooling inspects.
type Template struct {
	Description string                       `json:"Description,omitempty"`
	Parameters  map[string]map[string]any    `json:"Parameters,omitempty"`
	Conditions  map[string]any               `json:"Conditions,omitempty"`
	Resources   map[string]*TemplateResource `json:"Resources"`
	Outputs     map[string]*TemplateOutput   `json:"Outputs,omitempty"`
}

// TemplateResource is a single logical resource in a template.
type TemplateResource struct {
	Type           string         `json:"Type"`
	Properties     map[string]any `json:"Properties,omitempty"`
	DependsOn      any            `json:"DependsOn,omitempty"` // string or []string
	Condition      string         `json:"Condition,omitempty"`
	DeletionPolicy string         `json:"DeletionPolicy,omitempty"`
	Metadata       map[string]any `json:"Metadata,omitempty"`
}

// TemplateOutput is a stack output declaration.
type TemplateOutput struct {
	Description string         `json:"Description,omitempty"`
	Value       any            `json:"Value"`
	Export      map[string]any `json:"Export,omitempty"`
}

// ExportName returns the literal export name of the output, if any.
func (o *TemplateOutput) ExportName() string {
	if o == nil || o.Export == nil {
		return ""
	}
	name, _ := o.Export["Name"].(string)
	return name
}

// ResourcesOfType returns the logical ids of all resources with the given type.
func (t *Template) ResourcesOfType(resourceType string) []string {
	var ids []string
	for id, res := range t.Resources {
		if res.Type == resourceType {
			ids = append(ids, id)
		}
	}
	return ids
}
