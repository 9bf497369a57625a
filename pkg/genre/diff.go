package genre

import (
	"slices"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/surface"
)

var equateEmpty = cmpopts.EquateEmpty()

// CompareSettings reports whether the desired and previous spec of m hold
// equal values in every field.
func CompareSettings(m *Match) bool {
	return len(ChangedProperties(m)) == 0
}

// ChangedProperties returns the sorted names of the fields whose values
// differ between the desired and the previous spec of m. A field present on
// only one side counts as changed.
func ChangedProperties(m *Match) []layer.Field {
	cur, prev := layer.Values(m.Spec), layer.Values(m.Previous)
	var changed []layer.Field
	for f, v := range cur {
		if pv, ok := prev[f]; !ok || !cmp.Equal(v, pv, equateEmpty) {
			changed = append(changed, f)
		}
	}
	for f := range prev {
		if _, ok := cur[f]; !ok {
			changed = append(changed, f)
		}
	}
	slices.Sort(changed)
	return changed
}

// SyncCommon updates the nodes of m. If no field changed, the nodes are
// reused. If a field in triggers changed, new nodes are created through h
// and SyncCommon returns true. Otherwise changed cosmetic fields are applied
// to the existing nodes, which are reused. Fields that are neither cosmetic
// nor triggers do not touch the nodes.
func SyncCommon(h Handler, env *Env, target *surface.Collection, m *Match, triggers ...layer.Field) (bool, error) {
	changed := ChangedProperties(m)
	for _, f := range changed {
		if slices.Contains(triggers, f) {
			return true, h.CreateNodes(env, target, m.Spec)
		}
	}
	attrs := m.Spec.Common()
	for _, f := range changed {
		if !layer.IsCosmetic(f) {
			continue
		}
		for _, n := range m.Nodes {
			n.Apply(f, attrs)
		}
	}
	m.Retag()
	target.Append(m.Nodes...)
	return false, nil
}

// Recreate always builds new nodes, the update strategy of handlers
// that cannot patch anything.
func Recreate(h Handler, env *Env, target *surface.Collection, m *Match) (bool, error) {
	return true, h.CreateNodes(env, target, m.Spec)
}
