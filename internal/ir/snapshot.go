package ir

// Snapshot records the templates of the last recorded synthesis.
type Snapshot struct {
	Version    int              `json:"version"`
	Serial     int              `json:"serial"`
	Lineage    string           `json:"lineage"`
	RecordedAt string           `json:"recordedAt,omitempty"`
	Stacks     []*StackSnapshot `json:"stacks"`
}

type StackSnapshot struct {
	App          string    `json:"app"`
	Name         string    `json:"name"`
	TemplateHash string    `json:"templateHash"`
	Dependencies []string  `json:"dependencies"`
	Template     *Template `json:"template"`
}

// Templates returns the recorded templates keyed by stack name.
func (s *Snapshot) Templates() map[string]*Template {
	out := make(map[string]*Template, len(s.Stacks))
	for _, st := range s.Stacks {
		out[st.Name] = st.Template
	}
	return out
}

// Stack returns the recorded stack with the given name, or nil.
func (s *Snapshot) Stack(name string) *StackSnapshot {
	for _, st := range s.Stacks {
		if st.Name == name {
			return st
		}
	}
	return nil
}
