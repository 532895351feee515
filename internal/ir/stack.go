package ir

// StackInfo describes one synthesized stack in a cloud assembly.
type StackInfo struct {
	App          string   `json:"app"`
	ID           string   `json:"id"`   // construct id
	Name         string   `json:"name"` // CloudFormation stack name
	TemplateFile string   `json:"templateFile"`
	Account      string   `json:"account,omitempty"`
	Region       string   `json:"region,omitempty"`
	Dependencies []string `json:"dependencies"` // stack names this stack depends on
}
