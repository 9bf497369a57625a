package layer

import "slices"

// Overlays is an ordered map of overlay specs keyed by id. The order is
// declaration order: the first spec set is the first declared.
//
// A nil *Overlays behaves as an empty map for all read methods.
type Overlays struct {
	order []ID
	specs map[ID]Spec
}

// NewOverlays creates an ordered map holding specs in the given order.
func NewOverlays(specs ...Spec) *Overlays {
	o := &Overlays{specs: make(map[ID]Spec, len(specs))}
	for _, s := range specs {
		o.Set(s)
	}
	return o
}

// Set stores s under its id. A new id is appended at the end; an existing
// id keeps its position and has its spec replaced.
func (o *Overlays) Set(s Spec) {
	if o.specs == nil {
		o.specs = make(map[ID]Spec)
	}
	id := IDOf(s)
	if _, ok := o.specs[id]; !ok {
		o.order = append(o.order, id)
	}
	o.specs[id] = s
}

// Insert stores s at position i of the declaration order, moving it there if
// the id is already present. Out of range positions are clamped.
func (o *Overlays) Insert(i int, s Spec) {
	id := IDOf(s)
	if _, ok := o.specs[id]; ok {
		o.order = slices.DeleteFunc(o.order, func(x ID) bool { return x == id })
	}
	if o.specs == nil {
		o.specs = make(map[ID]Spec)
	}
	i = max(0, min(i, len(o.order)))
	o.order = slices.Insert(o.order, i, id)
	o.specs[id] = s
}

// Get returns the spec stored under id.
func (o *Overlays) Get(id ID) (Spec, bool) {
	if o == nil {
		return nil, false
	}
	s, ok := o.specs[id]
	return s, ok
}

// Has reports whether id is present.
func (o *Overlays) Has(id ID) bool {
	_, ok := o.Get(id)
	return ok
}

// Delete removes id and reports whether it was present.
func (o *Overlays) Delete(id ID) bool {
	if o == nil {
		return false
	}
	if _, ok := o.specs[id]; !ok {
		return false
	}
	delete(o.specs, id)
	o.order = slices.DeleteFunc(o.order, func(x ID) bool { return x == id })
	return true
}

// Len returns the number of specs.
func (o *Overlays) Len() int {
	if o == nil {
		return 0
	}
	return len(o.order)
}

// IDs returns the ids in declaration order.
func (o *Overlays) IDs() []ID {
	if o == nil {
		return nil
	}
	return slices.Clone(o.order)
}

// Specs returns the specs in declaration order.
func (o *Overlays) Specs() []Spec {
	if o == nil {
		return nil
	}
	out := make([]Spec, len(o.order))
	for i, id := range o.order {
		out[i] = o.specs[id]
	}
	return out
}

// Clone returns a copy sharing the spec pointers.
func (o *Overlays) Clone() *Overlays {
	c := &Overlays{specs: make(map[ID]Spec, o.Len())}
	if o == nil {
		return c
	}
	c.order = slices.Clone(o.order)
	for k, v := range o.specs {
		c.specs[k] = v
	}
	return c
}
