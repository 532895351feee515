// Package synth builds the selected apps into one CDK app and writes the
// cloud assembly.
package synth

import (
	"fmt"
	"os"
	"sort"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"

	"github.com/picklr-io/datastacks/internal/catalog"
	"github.com/picklr-io/datastacks/internal/config"
	"github.com/picklr-io/datastacks/internal/ir"
	"github.com/picklr-io/datastacks/internal/logging"
)

const (
	// OutDirEnvVar is set by the cdk CLI to the assembly directory.
	OutDirEnvVar  = "CDK_OUTDIR"
	DefaultOutDir = "cdk.out"
)

type Options struct {
	Registry    *catalog.Registry // nil uses catalog.Default()
	Apps        []string          // empty selects every app
	Context     config.Context
	Environment config.Environment
	OutDir      string // empty uses CDK_OUTDIR, then cdk.out
	Getenv      func(string) string
}

type Result struct {
	OutDir string
	Stacks []*ir.StackInfo
	// Missing lists context lookups the assembly still needs; the cdk CLI
	// resolves them and runs the app again.
	Missing []string
}

// Synthesize builds and synthesizes the selected apps. Stacks are returned
// in app order, then declaration order.
func Synthesize(opts Options) (*Result, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	registry := opts.Registry
	if registry == nil {
		registry = catalog.Default()
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = getenv(OutDirEnvVar)
	}
	if outDir == "" {
		outDir = DefaultOutDir
	}

	defs, err := registry.Select(opts.Apps)
	if err != nil {
		return nil, err
	}

	ctx := opts.Context.Map()
	app := awscdk.NewApp(&awscdk.AppProps{
		Context: &ctx,
		Outdir:  jsii.String(outDir),
	})

	bc := &catalog.BuildContext{Scope: app, Context: opts.Context, Environment: opts.Environment}
	type declared struct {
		app   string
		stack awscdk.Stack
	}
	var order []declared
	for _, def := range defs {
		log := logging.With("app", def.Name)
		log.Debug("building app", "env", opts.Environment.String())

		stacks, err := def.Build(bc)
		if err != nil {
			return nil, fmt.Errorf("failed to build app %s: %w", def.Name, err)
		}
		for _, s := range stacks {
			order = append(order, declared{app: def.Name, stack: s})
		}
		log.Debug("app built", "stacks", len(stacks))
	}

	assembly := app.Synth(nil)

	artifacts := make(map[string]*ir.StackInfo)
	idToName := make(map[string]string)
	for _, artifact := range *assembly.Stacks() {
		info := &ir.StackInfo{
			ID:           *artifact.Id(),
			Name:         *artifact.StackName(),
			TemplateFile: *artifact.TemplateFile(),
		}
		if env := artifact.Environment(); env != nil {
			info.Account = *env.Account
			info.Region = *env.Region
		}
		artifacts[info.Name] = info
		idToName[info.ID] = info.Name
	}
	for _, artifact := range *assembly.Stacks() {
		info := artifacts[*artifact.StackName()]
		info.Dependencies = []string{}
		for _, dep := range *artifact.Dependencies() {
			// asset manifests are artifacts too; keep only stacks
			if name, ok := idToName[*dep.Id()]; ok {
				info.Dependencies = append(info.Dependencies, name)
			}
		}
		sort.Strings(info.Dependencies)
	}

	result := &Result{OutDir: *assembly.Directory()}
	for _, d := range order {
		info, ok := artifacts[*d.stack.StackName()]
		if !ok {
			return nil, fmt.Errorf("stack %s missing from cloud assembly", *d.stack.StackName())
		}
		info.App = d.app
		result.Stacks = append(result.Stacks, info)
	}

	if manifest := assembly.Manifest(); manifest != nil && manifest.Missing != nil {
		for _, m := range *manifest.Missing {
			result.Missing = append(result.Missing, *m.Key)
		}
		sort.Strings(result.Missing)
	}
	if len(result.Missing) > 0 {
		logging.Warn("cloud assembly has unresolved context lookups; run through the cdk CLI to resolve them",
			"missing", len(result.Missing))
	}

	logging.Info("synthesized cloud assembly", "dir", result.OutDir, "stacks", len(result.Stacks))
	return result, nil
}
