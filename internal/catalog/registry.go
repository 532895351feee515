// Package catalog holds the named apps this binary can synthesize. Each app
// declares the stacks of one data project and the preflight checks for the
// resources it expects to exist already.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/internal/config"
	"github.com/picklr-io/datastacks/internal/preflight"
)

// BuildContext carries what an app needs to declare its stacks.
type BuildContext struct {
	Scope       constructs.Construct
	Context     config.Context
	Environment config.Environment
}

// StackEnv returns the stack environment, or nil for environment-agnostic
// stacks when account or region is unknown.
func (b *BuildContext) StackEnv() *awscdk.Environment {
	if !b.Environment.Complete() {
		return nil
	}
	return &awscdk.Environment{
		Account: jsii.String(b.Environment.Account),
		Region:  jsii.String(b.Environment.Region),
	}
}

// RequireEnv fails when a context lookup is configured but the stack
// environment is incomplete.
func (b *BuildContext) RequireEnv(what string) error {
	if err := b.Environment.RequireComplete(); err != nil {
		return fmt.Errorf("%s needs a context lookup: %w", what, err)
	}
	return nil
}

// Definition describes one app.
type Definition struct {
	Name        string
	Description string
	// Build declares the app's stacks in bc.Scope and returns them in
	// declaration order.
	Build func(bc *BuildContext) ([]awscdk.Stack, error)
	// Checks returns the preflight checks for the app's external
	// prerequisites.
	Checks func(ctx config.Context) ([]preflight.Check, error)
}

// Registry manages the known apps.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]*Definition),
	}
}

// Register adds an app. Names must be unique.
func (r *Registry) Register(def *Definition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("app definition must have a name")
	}
	if def.Build == nil {
		return fmt.Errorf("app %s has no build function", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("app already registered: %s", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Get returns a registered app.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("unknown app %q (known: %s)", name, strings.Join(r.namesLocked(), ", "))
	}
	return def, nil
}

// Names returns the registered app names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// Select resolves names to definitions in the given order; no names selects
// every app in sorted order.
func (r *Registry) Select(names []string) ([]*Definition, error) {
	if len(names) == 0 {
		names = r.Names()
	}
	defs := make([]*Definition, 0, len(names))
	for _, name := range names {
		def, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
