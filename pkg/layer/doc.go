// Package layer defines the declarative description of map layers.
//
// # Overview
//
// A [Spec] describes one desired layer or one structural group. Every spec
// embeds [Attrs], the attributes shared by all genres (id, parent, title,
// visibility, opacity, z-order, zoom thresholds and extent), and adds the
// fields its genre needs: a tile URL template, a capabilities URL, a
// feature type name and so on. The genre id returned by [Spec.Genre]
// selects the handler that turns the spec into render nodes.
//
// # Identity
//
// Specs are passed around as pointers and are immutable by convention. The
// reconciler treats the same pointer as "unchanged" and never looks inside
// it. Editing a layer means building a new spec with the same id and
// handing that to the desired state:
//
//	next := *prev           // shallow copy
//	next.Opacity = 0.5
//	overlays.Set(&next)
//
// # Fields
//
// [Values] flattens a spec into a map keyed by [Field], the Go field name,
// with promoted fields of embedded structs included. Handlers use field
// names to declare which changes need a full rebuild; see the genre package.
//
// # Groups
//
// [Group] specs use the reserved [GroupGenre] id. They take part in tree
// bookkeeping but never produce render nodes.
package layer
