// Package genre implements layer genres and the reconciliation of desired
// layer specs against a rendering surface.
//
// # Handlers
//
// A genre is a kind of layer: a templated tile source, a vector document,
// a map service discovered through its capabilities. Each genre has one
// [Handler] that creates render nodes for a spec and decides, when a spec
// is replaced, whether its existing nodes can be patched in place or must
// be rebuilt. Handlers are registered in a [Registry]:
//
//	reg := genre.NewRegistry()
//	if err := reg.Register(tile.NewXYZ()); err != nil {
//	    return err
//	}
//
// [SyncCommon] implements the usual update strategy: nothing changed means
// reuse, a change to one of the handler's trigger fields means rebuild, and
// anything else is applied to the nodes directly.
//
// # Reconciling
//
// A [Reconciler] is bound to one surface. Each call to
// [Reconciler.Reconcile] takes the desired base layer and the ordered
// overlays and brings the surface in line:
//
//	rec := genre.NewReconciler(reg, surf, logger)
//	res, err := rec.Reconcile(ctx, base, overlays)
//
// Nodes are matched to specs through the spec they are tagged with. A spec
// that is the same value as the one its nodes were made from is reused
// untouched. When no spec needed creating or rebuilding and the order is
// unchanged, orphaned nodes are removed in place and nothing else on the
// surface moves. Otherwise the whole collection is replaced, dropping any
// node the reconciler did not put there.
//
// Overlays are resolved in reverse declaration order on top of the base.
//
// # Asynchronous creation
//
// Handlers that must fetch something before they can build nodes schedule
// the work with [Env.Go]. The reconciler tracks one job per spec id. A job
// only appends its nodes if its spec is still the desired one and the
// surface still shows the collection the job was scheduled against;
// removing or replacing the spec cancels the job. [Reconciler.Wait] blocks
// until no job is pending.
package genre
