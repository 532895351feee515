// Package config loads CDK context from the sources the cdk CLI uses and
// decodes it into the typed configuration each app reads.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	// ContextEnvVar carries the merged context when the cdk CLI runs the app.
	ContextEnvVar = "CDK_CONTEXT_JSON"

	// AccountEnvVar and RegionEnvVar are set by the cdk CLI from the active profile.
	AccountEnvVar = "CDK_DEFAULT_ACCOUNT"
	RegionEnvVar  = "CDK_DEFAULT_REGION"

	projectFile = "cdk.json"
	cachedFile  = "cdk.context.json"
)

// Context is a flat set of CDK context values.
type Context map[string]any

// LoadOptions selects the context sources. Later sources win.
type LoadOptions struct {
	Dir       string   // directory containing cdk.json and cdk.context.json
	Files     []string // extra YAML or JSON context files
	Overrides []string // key=value pairs
	Getenv    func(string) string
}

// Load merges, in increasing precedence: the "context" block of cdk.json,
// cdk.context.json, CDK_CONTEXT_JSON, extra files and key=value overrides.
func Load(opts LoadOptions) (Context, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	ctx := Context{}

	project, err := readProjectContext(filepath.Join(opts.Dir, projectFile))
	if err != nil {
		return nil, err
	}
	ctx = ctx.Merge(project)

	cached, err := readJSONFile(filepath.Join(opts.Dir, cachedFile))
	if err != nil {
		return nil, err
	}
	ctx = ctx.Merge(cached)

	if raw := getenv(ContextEnvVar); raw != "" {
		var fromEnv Context
		if err := json.Unmarshal([]byte(raw), &fromEnv); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", ContextEnvVar, err)
		}
		ctx = ctx.Merge(fromEnv)
	}

	for _, f := range opts.Files {
		fileCtx, err := ReadFile(f)
		if err != nil {
			return nil, err
		}
		ctx = ctx.Merge(fileCtx)
	}

	for _, o := range opts.Overrides {
		key, val, err := ParseOverride(o)
		if err != nil {
			return nil, err
		}
		ctx[key] = val
	}

	return ctx, nil
}

// ReadFile reads a YAML or JSON context file. The format is chosen by extension.
func ReadFile(path string) (Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read context file %s: %w", path, err)
	}

	ctx := Context{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &ctx); err != nil {
			return nil, fmt.Errorf("failed to parse context file %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &ctx); err != nil {
			return nil, fmt.Errorf("failed to parse context file %s: %w", path, err)
		}
	}
	return ctx, nil
}

// ParseOverride splits a key=value override. Values that look like JSON
// arrays, objects or booleans are decoded; everything else stays a string.
func ParseOverride(s string) (string, any, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("invalid context override %q: expected key=value", s)
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "true" || trimmed == "false" ||
		strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return key, decoded, nil
		}
	}
	return key, value, nil
}

// Merge returns a new context with the keys of other layered over c.
func (c Context) Merge(other Context) Context {
	out := make(Context, len(c)+len(other))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// String returns the value of key formatted as a string, or "" when absent.
func (c Context) String(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Keys returns the context keys in sorted order.
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns the context as a plain map, as awscdk.AppProps expects.
func (c Context) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Decode fills out from the context using `context` struct tags. Scalars
// are converted weakly so "3306" decodes into an int field, and
// comma-separated strings decode into string slices.
func (c Context) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "context",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return fmt.Errorf("failed to create context decoder: %w", err)
	}
	if err := decoder.Decode(map[string]any(c)); err != nil {
		return fmt.Errorf("failed to decode context: %w", err)
	}
	return nil
}

// Required returns an error naming key when value is empty.
func Required(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required context key %q", key)
	}
	return nil
}

// OneOf returns an error when value is set but not one of allowed.
func OneOf(key, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("context key %q must be one of %s, got %q", key, strings.Join(allowed, "|"), value)
}

func readProjectContext(path string) (Context, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Context{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var project struct {
		Context Context `json:"context"`
	}
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if project.Context == nil {
		return Context{}, nil
	}
	return project.Context, nil
}

func readJSONFile(path string) (Context, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Context{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	ctx := Context{}
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return ctx, nil
}
