package tree

import (
	"maps"
	"slices"

	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/layer"
)

// State is the desired layer state of one map.
//
// The zero value is not usable; use [New].
type State struct {
	bases     map[layer.ID]layer.Spec
	baseOrder []layer.ID
	active    layer.ID

	overlays      map[layer.ID]layer.Spec
	parents       map[layer.ID]layer.ID   // overlay -> parent or RootID
	children      map[layer.ID][]layer.ID // parent -> ordered children
	activeOverlay layer.ID
}

// New creates an empty state.
func New() *State {
	return &State{
		bases:    make(map[layer.ID]layer.Spec),
		overlays: make(map[layer.ID]layer.Spec),
		parents:  make(map[layer.ID]layer.ID),
		children: make(map[layer.ID][]layer.ID),
	}
}

// Clone returns a copy that shares the spec values.
func (s *State) Clone() *State {
	c := &State{
		bases:         maps.Clone(s.bases),
		baseOrder:     slices.Clone(s.baseOrder),
		active:        s.active,
		overlays:      maps.Clone(s.overlays),
		parents:       maps.Clone(s.parents),
		children:      make(map[layer.ID][]layer.ID, len(s.children)),
		activeOverlay: s.activeOverlay,
	}
	for k, v := range s.children {
		c.children[k] = slices.Clone(v)
	}
	return c
}

func checkID(spec layer.Spec) (layer.ID, error) {
	if spec == nil {
		return "", errors.Configuration("layer spec is nil")
	}
	id := layer.IDOf(spec)
	if err := errors.ValidateLayerID(string(id)); err != nil {
		return "", err
	}
	if id == layer.RootID {
		return "", errors.New(errors.ErrCodeReservedID, "layer id %q is reserved", id)
	}
	return id, nil
}

func notFound(kind string, id layer.ID) error {
	return errors.New(errors.ErrCodeLayerNotFound, "unknown %s layer %q", kind, id)
}

// AddBase adds a base layer and makes it the active one if activate is set.
func (s *State) AddBase(spec layer.Spec, activate bool) error {
	id, err := checkID(spec)
	if err != nil {
		return err
	}
	if layer.IsGroup(spec) {
		return errors.Configuration("base layer %q cannot be a group", id)
	}
	if _, ok := s.bases[id]; ok {
		return errors.New(errors.ErrCodeDuplicateLayer, "base layer %q already exists", id)
	}
	s.bases[id] = spec
	s.baseOrder = append(s.baseOrder, id)
	if activate {
		s.active = id
	}
	return nil
}

// EditBase replaces the spec of an existing base layer.
func (s *State) EditBase(spec layer.Spec, activate bool) error {
	id, err := checkID(spec)
	if err != nil {
		return err
	}
	if _, ok := s.bases[id]; !ok {
		return notFound("base", id)
	}
	if layer.IsGroup(spec) {
		return errors.Configuration("base layer %q cannot be a group", id)
	}
	s.bases[id] = spec
	if activate {
		s.active = id
	}
	return nil
}

// RemoveBase removes a base layer. An empty id removes all of them.
func (s *State) RemoveBase(id layer.ID) error {
	if id == "" {
		clear(s.bases)
		s.baseOrder = nil
		s.active = ""
		return nil
	}
	if _, ok := s.bases[id]; !ok {
		return notFound("base", id)
	}
	delete(s.bases, id)
	s.baseOrder = slices.DeleteFunc(s.baseOrder, func(x layer.ID) bool { return x == id })
	if s.active == id {
		s.active = ""
	}
	return nil
}

// SetActiveBase selects the base layer to render. An empty id selects none.
func (s *State) SetActiveBase(id layer.ID) error {
	if id != "" {
		if _, ok := s.bases[id]; !ok {
			return notFound("base", id)
		}
	}
	s.active = id
	return nil
}

// ActiveBase returns the spec of the active base layer, or nil.
func (s *State) ActiveBase() layer.Spec {
	if s.active == "" {
		return nil
	}
	return s.bases[s.active]
}

// ActiveBaseID returns the id of the active base layer.
func (s *State) ActiveBaseID() layer.ID { return s.active }

// Base returns the base layer with the given id.
func (s *State) Base(id layer.ID) (layer.Spec, bool) {
	spec, ok := s.bases[id]
	return spec, ok
}

// Bases returns the base layers in the order they were added.
func (s *State) Bases() []layer.Spec {
	out := make([]layer.Spec, len(s.baseOrder))
	for i, id := range s.baseOrder {
		out[i] = s.bases[id]
	}
	return out
}

// AddOverlay adds an overlay as the last child of its parent. The parent
// must already be an overlay, or empty for the root.
func (s *State) AddOverlay(spec layer.Spec, activate bool) error {
	id, err := checkID(spec)
	if err != nil {
		return err
	}
	if _, ok := s.overlays[id]; ok {
		return errors.New(errors.ErrCodeDuplicateLayer, "overlay layer %q already exists", id)
	}
	parent := spec.Common().ParentOrRoot()
	if err := s.checkParent(parent); err != nil {
		return err
	}
	s.overlays[id] = spec
	s.attach(id, parent, -1)
	if activate {
		s.activeOverlay = id
	}
	return nil
}

// EditOverlay replaces the spec of an existing overlay. A changed parent
// moves the overlay to the end of the new parent's children.
func (s *State) EditOverlay(spec layer.Spec, activate bool) error {
	id, err := checkID(spec)
	if err != nil {
		return err
	}
	if _, ok := s.overlays[id]; !ok {
		return notFound("overlay", id)
	}
	if parent := spec.Common().ParentOrRoot(); parent != s.parents[id] {
		if err := s.move(id, parent, -1); err != nil {
			return err
		}
	}
	s.overlays[id] = spec
	if activate {
		s.activeOverlay = id
	}
	return nil
}

// RemoveOverlay removes an overlay and, recursively, all its children. An
// empty id removes every overlay.
func (s *State) RemoveOverlay(id layer.ID) error {
	if id == "" {
		clear(s.overlays)
		clear(s.parents)
		clear(s.children)
		s.activeOverlay = ""
		return nil
	}
	if _, ok := s.overlays[id]; !ok {
		return notFound("overlay", id)
	}
	s.detach(id)
	s.remove(id)
	return nil
}

func (s *State) remove(id layer.ID) {
	for _, child := range s.children[id] {
		s.remove(child)
	}
	delete(s.children, id)
	delete(s.overlays, id)
	delete(s.parents, id)
	if s.activeOverlay == id {
		s.activeOverlay = ""
	}
}

// ReorderOverlay moves an overlay to position index among the children of
// parent. An empty parent is the root; index is clamped to the valid range.
func (s *State) ReorderOverlay(id, parent layer.ID, index int) error {
	if _, ok := s.overlays[id]; !ok {
		return notFound("overlay", id)
	}
	if parent == "" {
		parent = layer.RootID
	}
	return s.move(id, parent, index)
}

// SetActiveOverlay selects the active overlay. An empty id selects none.
func (s *State) SetActiveOverlay(id layer.ID) error {
	if id != "" {
		if _, ok := s.overlays[id]; !ok {
			return notFound("overlay", id)
		}
	}
	s.activeOverlay = id
	return nil
}

// ActiveOverlayID returns the id of the active overlay.
func (s *State) ActiveOverlayID() layer.ID { return s.activeOverlay }

// Overlay returns the overlay with the given id.
func (s *State) Overlay(id layer.ID) (layer.Spec, bool) {
	spec, ok := s.overlays[id]
	return spec, ok
}

// Parent returns the parent of an overlay, [layer.RootID] for top level
// overlays.
func (s *State) Parent(id layer.ID) (layer.ID, bool) {
	p, ok := s.parents[id]
	return p, ok
}

// Children returns the ordered children of parent. An empty parent is the
// root.
func (s *State) Children(parent layer.ID) []layer.ID {
	if parent == "" {
		parent = layer.RootID
	}
	return slices.Clone(s.children[parent])
}

// Overlays returns the overlays in tree order: parents before children,
// siblings in order.
func (s *State) Overlays() *layer.Overlays {
	out := layer.NewOverlays()
	var walk func(parent layer.ID)
	walk = func(parent layer.ID) {
		for _, id := range s.children[parent] {
			out.Set(s.overlays[id])
			walk(id)
		}
	}
	walk(layer.RootID)
	return out
}

// Len returns the number of base layers and overlays.
func (s *State) Len() (bases, overlays int) {
	return len(s.bases), len(s.overlays)
}

func (s *State) checkParent(parent layer.ID) error {
	if parent == layer.RootID {
		return nil
	}
	if _, ok := s.overlays[parent]; !ok {
		return notFound("parent", parent)
	}
	return nil
}

// move reattaches id under parent at index, refusing to create a cycle.
func (s *State) move(id, parent layer.ID, index int) error {
	if err := s.checkParent(parent); err != nil {
		return err
	}
	for p := parent; p != layer.RootID; p = s.parents[p] {
		if p == id {
			return errors.New(errors.ErrCodeInvalidInput, "cannot move %q below itself", id)
		}
	}
	s.detach(id)
	s.attach(id, parent, index)
	return nil
}

func (s *State) attach(id, parent layer.ID, index int) {
	lst := s.children[parent]
	if index < 0 || index > len(lst) {
		index = len(lst)
	}
	s.children[parent] = slices.Insert(lst, index, id)
	s.parents[id] = parent
}

func (s *State) detach(id layer.ID) {
	parent := s.parents[id]
	s.children[parent] = slices.DeleteFunc(s.children[parent], func(x layer.ID) bool { return x == id })
	if len(s.children[parent]) == 0 {
		delete(s.children, parent)
	}
}
