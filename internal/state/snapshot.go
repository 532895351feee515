package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/picklr-io/datastacks/internal/ir"
)

// NewSnapshot builds the stack list of a snapshot from synthesized stacks
// and their templates. Serial and lineage are carried over from prior.
func NewSnapshot(prior *ir.Snapshot, stacks []*ir.StackInfo, templates map[string]*ir.Template) (*ir.Snapshot, error) {
	snap := &ir.Snapshot{Version: SnapshotVersion, Stacks: make([]*ir.StackSnapshot, 0, len(stacks))}
	if prior != nil {
		snap.Serial = prior.Serial
		snap.Lineage = prior.Lineage
	}

	for _, st := range stacks {
		tmpl, ok := templates[st.Name]
		if !ok {
			return nil, fmt.Errorf("no template for stack %s", st.Name)
		}
		hash, err := TemplateHash(tmpl)
		if err != nil {
			return nil, fmt.Errorf("failed to hash template of stack %s: %w", st.Name, err)
		}
		deps := append([]string{}, st.Dependencies...)
		snap.Stacks = append(snap.Stacks, &ir.StackSnapshot{
			App:          st.App,
			Name:         st.Name,
			TemplateHash: hash,
			Dependencies: deps,
			Template:     tmpl,
		})
	}
	return snap, nil
}

// TemplateHash is the hex sha256 of the template's JSON encoding. Map keys
// are sorted by encoding/json so equal templates hash equally.
func TemplateHash(t *ir.Template) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
