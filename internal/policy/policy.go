// Package policy evaluates rules against synthesized CloudFormation
// templates.
package policy

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/picklr-io/datastacks/internal/ir"
)

const (
	DenyType          = "deny_type"
	PropertyEquals    = "property_equals"
	PropertyNotEquals = "property_not_equals"
	RequireProperty   = "require_property"

	SeverityError   = "error"
	SeverityWarning = "warning"
)

// File is a collection of policy rules.
type File struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

// Rule defines a single policy check.
type Rule struct {
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description" json:"description"`
	ResourceType string `yaml:"resource_type" json:"resource_type"` // empty = all types
	Condition    string `yaml:"condition" json:"condition"`
	Property     string `yaml:"property" json:"property"` // dotted path below Properties
	Value        string `yaml:"value" json:"value"`
	Severity     string `yaml:"severity" json:"severity"`
}

// Violation is a rule failing on one resource.
type Violation struct {
	Rule     Rule
	Stack    string
	Resource string
	Message  string
}

func (v Violation) IsError() bool {
	return v.Rule.Severity != SeverityWarning
}

// Load reads a rules file. JSON files parse as YAML.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}
	return f, nil
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	for i := range f.Rules {
		if f.Rules[i].Severity == "" {
			f.Rules[i].Severity = SeverityError
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate reports every malformed rule.
func (f *File) Validate() error {
	var errs []error
	for i, r := range f.Rules {
		label := r.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			errs = append(errs, fmt.Errorf("rule %s: name is required", label))
		}
		switch r.Condition {
		case DenyType:
			if r.ResourceType == "" {
				errs = append(errs, fmt.Errorf("rule %s: %s requires resource_type", label, DenyType))
			}
		case PropertyEquals, PropertyNotEquals, RequireProperty:
			if r.Property == "" {
				errs = append(errs, fmt.Errorf("rule %s: %s requires property", label, r.Condition))
			}
		default:
			errs = append(errs, fmt.Errorf("rule %s: unknown condition %q", label, r.Condition))
		}
		if r.Severity != SeverityError && r.Severity != SeverityWarning {
			errs = append(errs, fmt.Errorf("rule %s: severity must be %s or %s, got %q", label, SeverityError, SeverityWarning, r.Severity))
		}
	}
	return errors.Join(errs...)
}

// Evaluate applies rules to every resource of every template. Violations
// are ordered by stack, logical id and rule.
func Evaluate(templates map[string]*ir.Template, rules []Rule) []Violation {
	var violations []Violation

	for _, stack := range sortedKeys(templates) {
		tmpl := templates[stack]
		if tmpl == nil {
			continue
		}
		for _, id := range sortedKeys(tmpl.Resources) {
			res := tmpl.Resources[id]
			for _, rule := range rules {
				if rule.ResourceType != "" && rule.ResourceType != res.Type {
					continue
				}
				if msg, failed := check(rule, res); failed {
					violations = append(violations, Violation{
						Rule:     rule,
						Stack:    stack,
						Resource: id,
						Message:  fmt.Sprintf("%s/%s (%s): %s", stack, id, res.Type, msg),
					})
				}
			}
		}
	}
	return violations
}

func check(rule Rule, res *ir.TemplateResource) (string, bool) {
	switch rule.Condition {
	case DenyType:
		return fmt.Sprintf("resource type %s is denied", res.Type), true

	case PropertyEquals:
		if val, ok := Lookup(res.Properties, rule.Property); ok && format(val) == rule.Value {
			return fmt.Sprintf("property %s=%s is not allowed", rule.Property, format(val)), true
		}

	case PropertyNotEquals:
		if val, ok := Lookup(res.Properties, rule.Property); ok && format(val) != rule.Value {
			return fmt.Sprintf("property %s=%s, expected %s", rule.Property, format(val), rule.Value), true
		}

	case RequireProperty:
		if _, ok := Lookup(res.Properties, rule.Property); !ok {
			return fmt.Sprintf("missing required property %s", rule.Property), true
		}
	}
	return "", false
}

// Lookup resolves a dotted path such as "VpcConfig.SubnetIds.0" in a
// template properties tree.
func Lookup(props map[string]any, path string) (any, bool) {
	var cur any = props
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func format(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}

// Counts returns the number of error and warning violations.
func Counts(violations []Violation) (errs, warnings int) {
	for _, v := range violations {
		if v.IsError() {
			errs++
		} else {
			warnings++
		}
	}
	return errs, warnings
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
