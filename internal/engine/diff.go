package engine

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/r3labs/diff"

	"github.com/picklr-io/datastacks/internal/ir"
	"github.com/picklr-io/datastacks/internal/logging"
)

// Diff compares two template sets keyed by stack name and returns a plan
// ordered by stack, then logical id. A changed resource type is a replace.
// Outputs, parameters and conditions are compared per entry.
func Diff(prior, desired map[string]*ir.Template) (*ir.Plan, error) {
	plan := &ir.Plan{
		Metadata: &ir.PlanMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Changes: []*ir.ResourceChange{},
		Summary: &ir.PlanSummary{},
	}

	for _, stack := range unionKeys(prior, desired) {
		before, after := prior[stack], desired[stack]
		switch {
		case before == nil:
			plan.Metadata.StacksAdded = append(plan.Metadata.StacksAdded, stack)
		case after == nil:
			plan.Metadata.StacksRemoved = append(plan.Metadata.StacksRemoved, stack)
		case Equal(before, after):
			plan.Summary.NoOp += len(before.Resources)
			continue
		}

		beforeRes, afterRes := resources(before), resources(after)
		for _, id := range unionKeys(beforeRes, afterRes) {
			change, err := diffResource(stack, id, beforeRes[id], afterRes[id])
			if err != nil {
				return nil, err
			}
			count(plan.Summary, change.Action)
			if change.Action != ir.ActionNoop {
				plan.Changes = append(plan.Changes, change)
			}
		}

		plan.SectionChanges = appendSection(plan.SectionChanges, stack, ir.SectionParameters, parameters(before), parameters(after))
		plan.SectionChanges = appendSection(plan.SectionChanges, stack, ir.SectionConditions, conditions(before), conditions(after))
		plan.SectionChanges = appendSection(plan.SectionChanges, stack, ir.SectionOutputs, outputs(before), outputs(after))
	}

	logging.Debug("template diff computed",
		"create", plan.Summary.Create,
		"update", plan.Summary.Update,
		"replace", plan.Summary.Replace,
		"delete", plan.Summary.Delete,
		"sections", len(plan.SectionChanges))
	return plan, nil
}

func diffResource(stack, id string, prior, desired *ir.TemplateResource) (*ir.ResourceChange, error) {
	change := &ir.ResourceChange{
		Address: stack + "/" + id,
		Stack:   stack,
		Desired: desired,
		Prior:   prior,
	}

	switch {
	case prior == nil:
		change.Action = ir.ActionCreate
		change.Diff = wholeDiff(desired.Properties, "create")
		return change, nil
	case desired == nil:
		change.Action = ir.ActionDelete
		change.Diff = wholeDiff(prior.Properties, "delete")
		return change, nil
	}

	// a Differ accumulates its changelog across calls, so each resource
	// gets its own
	differ, err := diff.NewDiffer(diff.SliceOrdering(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create differ: %w", err)
	}

	before, after := diffable(prior), diffable(desired)
	changelog, err := differ.Diff(before, after)
	if err != nil {
		// values changing shape, such as a literal becoming an intrinsic
		// function, are a type mismatch for the differ
		logging.Debug("falling back to map diff", "address", change.Address, "error", err)
		change.Diff = mapDiff(before, after)
	} else {
		change.Diff = make(map[string]*ir.PropertyDiff, len(changelog))
		for _, c := range changelog {
			change.Diff[strings.Join(c.Path, ".")] = &ir.PropertyDiff{
				Before: c.From,
				After:  c.To,
				Action: c.Type,
			}
		}
	}

	switch {
	case len(change.Diff) == 0:
		change.Action = ir.ActionNoop
		change.Diff = nil
	case prior.Type != desired.Type:
		change.Action = ir.ActionReplace
	default:
		change.Action = ir.ActionUpdate
	}
	return change, nil
}

// appendSection adds one SectionChange per entry that differs between two
// versions of a template section.
func appendSection[V any](out []*ir.SectionChange, stack, section string, prior, desired map[string]V) []*ir.SectionChange {
	for _, name := range unionKeys(prior, desired) {
		before, inPrior := prior[name]
		after, inDesired := desired[name]
		change := &ir.SectionChange{
			Address: fmt.Sprintf("%s/%s.%s", stack, section, name),
			Stack:   stack,
			Section: section,
			Name:    name,
		}
		switch {
		case !inPrior:
			change.Action = ir.ActionCreate
			change.After = after
		case !inDesired:
			change.Action = ir.ActionDelete
			change.Before = before
		case reflect.DeepEqual(before, after):
			continue
		default:
			change.Action = ir.ActionUpdate
			change.Before, change.After = before, after
		}
		out = append(out, change)
	}
	return out
}

// mapDiff compares two maps key by key, descending into nested maps and
// keying each difference by its dotted path.
func mapDiff(prior, desired map[string]any) map[string]*ir.PropertyDiff {
	out := make(map[string]*ir.PropertyDiff)
	walkDiff(out, "", prior, desired)
	return out
}

func walkDiff(out map[string]*ir.PropertyDiff, prefix string, prior, desired map[string]any) {
	for _, k := range unionKeys(prior, desired) {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		before, inPrior := prior[k]
		after, inDesired := desired[k]
		switch {
		case !inPrior:
			out[path] = &ir.PropertyDiff{After: after, Action: "create"}
		case !inDesired:
			out[path] = &ir.PropertyDiff{Before: before, Action: "delete"}
		case reflect.DeepEqual(before, after):
		default:
			bm, bok := before.(map[string]any)
			am, aok := after.(map[string]any)
			if bok && aok {
				walkDiff(out, path, bm, am)
				continue
			}
			out[path] = &ir.PropertyDiff{Before: before, After: after, Action: "update"}
		}
	}
}

// diffable flattens the parts of a resource that affect deployment into
// a plain map so the differ sees a uniform structure.
func diffable(r *ir.TemplateResource) map[string]any {
	m := map[string]any{"Type": r.Type}
	if len(r.Properties) > 0 {
		m["Properties"] = r.Properties
	}
	if r.DependsOn != nil {
		m["DependsOn"] = r.DependsOn
	}
	if r.Condition != "" {
		m["Condition"] = r.Condition
	}
	if r.DeletionPolicy != "" {
		m["DeletionPolicy"] = r.DeletionPolicy
	}
	return m
}

func wholeDiff(props map[string]any, action string) map[string]*ir.PropertyDiff {
	out := make(map[string]*ir.PropertyDiff, len(props))
	for k, v := range props {
		d := &ir.PropertyDiff{Action: action}
		if action == "delete" {
			d.Before = v
		} else {
			d.After = v
		}
		out["Properties."+k] = d
	}
	return out
}

func count(s *ir.PlanSummary, action string) {
	switch action {
	case ir.ActionCreate:
		s.Create++
	case ir.ActionUpdate:
		s.Update++
	case ir.ActionReplace:
		s.Replace++
	case ir.ActionDelete:
		s.Delete++
	default:
		s.NoOp++
	}
}

func resources(t *ir.Template) map[string]*ir.TemplateResource {
	if t == nil {
		return nil
	}
	return t.Resources
}

func unionKeys[V any](a, b map[string]V) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether two templates declare the same resources,
// outputs, parameters and conditions.
func Equal(a, b *ir.Template) bool {
	return reflect.DeepEqual(resources(a), resources(b)) &&
		reflect.DeepEqual(outputs(a), outputs(b)) &&
		reflect.DeepEqual(parameters(a), parameters(b)) &&
		reflect.DeepEqual(conditions(a), conditions(b))
}

func outputs(t *ir.Template) map[string]*ir.TemplateOutput {
	if t == nil {
		return nil
	}
	return t.Outputs
}

func parameters(t *ir.Template) map[string]map[string]any {
	if t == nil {
		return nil
	}
	return t.Parameters
}

func conditions(t *ir.Template) map[string]any {
	if t == nil {
		return nil
	}
	return t.Conditions
}
