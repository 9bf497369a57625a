// Package tree holds the desired layer state of a map and turns edits of
// that state into reconciles.
//
// # State
//
// [State] keeps the base layers, of which at most one is active, and the
// overlays. Overlays form a tree: every overlay has a parent, either
// another overlay (typically a group) or the reserved root [layer.RootID].
// Each parent keeps the order of its children.
//
// The overlays handed to a reconcile are the depth first traversal of the
// tree, parents before their children and siblings in order, so moving a
// layer in the tree moves it on the surface.
//
// State is not safe for concurrent use.
//
// # Controller
//
// [Controller] guards a State and a [genre.Reconciler]. Register,
// unregister and replace edits take the layer kind of the declarative
// adapter (base, overlay, group) and reconcile the surface once the state
// was changed successfully:
//
//	ctl := tree.NewController(rec, logger)
//	res, err := ctl.Register(ctx, tree.KindBase, tile.NewOSMSpec("osm"))
package tree
