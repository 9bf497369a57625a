package layer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testSpec struct {
	Attrs
	URL   string
	Title string // shadows Attrs.Title
}

func (*testSpec) Genre() GenreID { return "test" }

func TestValues(t *testing.T) {
	s := &testSpec{Attrs: DefaultAttrs("a"), URL: "http://x", Title: "outer"}
	s.Attrs.Title = "inner"

	got := Values(s)
	if got[FieldID] != ID("a") {
		t.Errorf("Values()[ID] = %v, want a", got[FieldID])
	}
	if got["URL"] != "http://x" {
		t.Errorf("Values()[URL] = %v, want http://x", got["URL"])
	}
	if got[FieldTitle] != "outer" {
		t.Errorf("Values()[Title] = %v, want outer field to shadow promoted one", got[FieldTitle])
	}
	if _, ok := got["Attrs"]; ok {
		t.Error("embedded struct should be flattened, not reported as a field")
	}
	if !HasField(s, FieldExtent) {
		t.Error("HasField(Extent) = false, want true")
	}
	if HasField(s, "Nope") {
		t.Error("HasField(Nope) = true, want false")
	}
}

func TestValuesNil(t *testing.T) {
	if n := len(Values(nil)); n != 0 {
		t.Errorf("Values(nil) has %d entries, want 0", n)
	}
	var s *testSpec
	if n := len(Values(s)); n != 0 {
		t.Errorf("Values(typed nil) has %d entries, want 0", n)
	}
}

func TestGroup(t *testing.T) {
	g := NewGroup("roads", "Roads")
	if !IsGroup(g) {
		t.Error("IsGroup(group) = false")
	}
	if IsGroup(&testSpec{}) {
		t.Error("IsGroup(testSpec) = true")
	}
	if g.ParentOrRoot() != RootID {
		t.Errorf("ParentOrRoot() = %q, want %q", g.ParentOrRoot(), RootID)
	}
	if !g.Visible || g.Opacity != 1 {
		t.Errorf("NewGroup defaults = visible %v opacity %v", g.Visible, g.Opacity)
	}
}

func TestOverlaysOrder(t *testing.T) {
	a, b, c := NewGroup("a", ""), NewGroup("b", ""), NewGroup("c", "")
	o := NewOverlays(a, b, c)

	if diff := cmp.Diff([]ID{"a", "b", "c"}, o.IDs()); diff != "" {
		t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
	}

	// Replacing keeps the position.
	b2 := NewGroup("b", "second")
	o.Set(b2)
	if diff := cmp.Diff([]ID{"a", "b", "c"}, o.IDs()); diff != "" {
		t.Errorf("IDs() after replace mismatch (-want +got):\n%s", diff)
	}
	if got, _ := o.Get("b"); got != Spec(b2) {
		t.Error("Get(b) did not return the replacement")
	}

	o.Insert(0, c)
	if diff := cmp.Diff([]ID{"c", "a", "b"}, o.IDs()); diff != "" {
		t.Errorf("IDs() after insert mismatch (-want +got):\n%s", diff)
	}

	if !o.Delete("a") || o.Delete("a") {
		t.Error("Delete(a) should succeed once")
	}
	if o.Len() != 2 || o.Has("a") {
		t.Errorf("after delete Len() = %d, Has(a) = %v", o.Len(), o.Has("a"))
	}

	clone := o.Clone()
	clone.Delete("c")
	if !o.Has("c") {
		t.Error("Clone shares order with the original")
	}
}

func TestOverlaysNil(t *testing.T) {
	var o *Overlays
	if o.Len() != 0 || o.Specs() != nil || o.Has("x") {
		t.Error("nil Overlays should behave as empty")
	}
	if o.Clone().Len() != 0 {
		t.Error("Clone of nil should be empty")
	}
}

func TestExtent(t *testing.T) {
	e := NewExtent(10, 20, 0, 5)
	if e != (Extent{0, 5, 10, 20}) {
		t.Errorf("NewExtent normalized = %v", e)
	}
	if e.Width() != 10 || e.Height() != 15 {
		t.Errorf("size = %vx%v", e.Width(), e.Height())
	}
	if e.SwapAxes() != (Extent{5, 0, 20, 10}) {
		t.Errorf("SwapAxes = %v", e.SwapAxes())
	}
	if !EmptyExtent().IsEmpty() {
		t.Error("EmptyExtent should be empty")
	}
	grown := EmptyExtent().Extend(1, 2).Extend(-1, 4)
	if grown != (Extent{-1, 2, 1, 4}) {
		t.Errorf("Extend = %v", grown)
	}
	if !e.Intersects(Extent{9, 19, 30, 30}) || e.Intersects(Extent{11, 0, 12, 1}) {
		t.Error("Intersects gave the wrong answer")
	}
}
