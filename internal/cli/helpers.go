package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/picklr-io/datastacks/internal/config"
	"github.com/picklr-io/datastacks/internal/engine"
	"github.com/picklr-io/datastacks/internal/ir"
	"github.com/picklr-io/datastacks/internal/state"
	"github.com/picklr-io/datastacks/internal/synth"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	bold   = color.New(color.Bold)
)

func loadContext() (config.Context, error) {
	return config.Load(config.LoadOptions{
		Dir:       ".",
		Files:     contextFiles,
		Overrides: contextOverrides,
	})
}

// synthesize builds the selected apps and loads the generated templates.
func synthesize() (*synth.Result, map[string]*ir.Template, error) {
	ctx, err := loadContext()
	if err != nil {
		return nil, nil, err
	}
	res, err := synth.Synthesize(synth.Options{
		Apps:        selectedApps,
		Context:     ctx,
		Environment: config.EnvironmentFromEnv(os.Getenv),
		OutDir:      outDir,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("synthesis failed: %w", err)
	}
	templates, err := engine.LoadTemplates(res.OutDir, res.Stacks)
	if err != nil {
		return nil, nil, err
	}
	return res, templates, nil
}

func loadBackendConfig(path string) (*state.BackendConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend config %s: %w", path, err)
	}
	var cfg state.BackendConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse backend config %s: %w", path, err)
	}
	return &cfg, nil
}

func openBackend(ctx context.Context) (state.Backend, error) {
	cipher, err := state.CipherFromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}
	if backendConfigFile == "" {
		return state.NewManager(state.DefaultPath, cipher), nil
	}
	cfg, err := loadBackendConfig(backendConfigFile)
	if err != nil {
		return nil, err
	}
	return state.NewBackend(ctx, cfg, cipher)
}

// priorTemplates returns the recorded templates of the selected apps, or of
// every app when none is selected.
func priorTemplates(snap *ir.Snapshot, apps []string) map[string]*ir.Template {
	if len(apps) == 0 {
		return snap.Templates()
	}
	keep := make(map[string]bool, len(apps))
	for _, a := range apps {
		keep[a] = true
	}
	out := make(map[string]*ir.Template)
	for _, st := range snap.Stacks {
		if keep[st.App] {
			out[st.Name] = st.Template
		}
	}
	return out
}

// carryOver keeps the recorded stacks of apps that were not synthesized
// this time.
func carryOver(prior, next *ir.Snapshot, apps []string) {
	if len(apps) == 0 || prior == nil {
		return
	}
	selected := make(map[string]bool, len(apps))
	for _, a := range apps {
		selected[a] = true
	}
	for _, st := range prior.Stacks {
		if !selected[st.App] && next.Stack(st.Name) == nil {
			next.Stacks = append(next.Stacks, st)
		}
	}
}

func actionStyle(action string) (string, *color.Color) {
	switch action {
	case ir.ActionCreate:
		return "+", green
	case ir.ActionDelete:
		return "-", red
	case ir.ActionReplace:
		return "-/+", yellow
	default:
		return "~", yellow
	}
}

// renderPlanChanges prints the detailed change list for a plan.
func renderPlanChanges(w io.Writer, plan *ir.Plan) {
	if md := plan.Metadata; md != nil {
		for _, s := range md.StacksAdded {
			fmt.Fprintln(w, green.Sprintf("+ stack %s", s))
		}
		for _, s := range md.StacksRemoved {
			fmt.Fprintln(w, red.Sprintf("- stack %s", s))
		}
	}

	for _, change := range plan.Changes {
		symbol, c := actionStyle(change.Action)
		fmt.Fprintf(w, "\n%s\n", c.Sprintf("  # %s will be %s", change.Address, change.Action))
		fmt.Fprintf(w, "%s\n", c.Sprintf("  %s %s {", symbol, change.ResourceType()))

		keys := make([]string, 0, len(change.Diff))
		for k := range change.Diff {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			d := change.Diff[key]
			switch d.Action {
			case "create":
				fmt.Fprintln(w, green.Sprintf("      + %s = %s", key, formatValue(d.After)))
			case "delete":
				fmt.Fprintln(w, red.Sprintf("      - %s = %s", key, formatValue(d.Before)))
			default:
				fmt.Fprintln(w, yellow.Sprintf("      ~ %s = %s -> %s", key, formatValue(d.Before), formatValue(d.After)))
			}
		}
		fmt.Fprintln(w, c.Sprint("    }"))
	}

	for _, change := range plan.SectionChanges {
		symbol, c := actionStyle(change.Action)
		fmt.Fprintf(w, "\n%s\n", c.Sprintf("  # %s will be %s", change.Address, change.Action))
		switch change.Action {
		case ir.ActionCreate:
			fmt.Fprintln(w, c.Sprintf("  %s %s", symbol, formatValue(change.After)))
		case ir.ActionDelete:
			fmt.Fprintln(w, c.Sprintf("  %s %s", symbol, formatValue(change.Before)))
		default:
			fmt.Fprintln(w, c.Sprintf("  %s %s -> %s", symbol, formatValue(change.Before), formatValue(change.After)))
		}
	}
}

// formatValue returns a human-readable representation of a value.
func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case map[string]any, []any, *ir.TemplateOutput:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// renderPlanSummary prints the plan summary counts.
func renderPlanSummary(w io.Writer, plan *ir.Plan) {
	fmt.Fprintln(w, bold.Sprint("\nPlan Summary:"))
	fmt.Fprintf(w, "  Create:  %d\n", plan.Summary.Create)
	fmt.Fprintf(w, "  Update:  %d\n", plan.Summary.Update)
	fmt.Fprintf(w, "  Delete:  %d\n", plan.Summary.Delete)
	fmt.Fprintf(w, "  Replace: %d\n", plan.Summary.Replace)
	fmt.Fprintf(w, "  NoOp:    %d\n", plan.Summary.NoOp)
	if n := len(plan.SectionChanges); n > 0 {
		fmt.Fprintf(w, "  Outputs, parameters or conditions changed: %d\n", n)
	}
}
