package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/picklr-io/datastacks/internal/ir"
)

// LoadTemplate reads a synthesized CloudFormation template.
func LoadTemplate(path string) (*ir.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	var tmpl ir.Template
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	if tmpl.Resources == nil {
		tmpl.Resources = map[string]*ir.TemplateResource{}
	}
	return &tmpl, nil
}

// LoadTemplates reads the template of every stack, keyed by stack name.
// Relative template paths resolve against outDir.
func LoadTemplates(outDir string, stacks []*ir.StackInfo) (map[string]*ir.Template, error) {
	out := make(map[string]*ir.Template, len(stacks))
	for _, s := range stacks {
		path := s.TemplateFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(outDir, path)
		}
		tmpl, err := LoadTemplate(path)
		if err != nil {
			return nil, fmt.Errorf("stack %s: %w", s.Name, err)
		}
		out[s.Name] = tmpl
	}
	return out, nil
}
