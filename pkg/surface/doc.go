// Package surface defines the rendering surface the reconciler drives.
//
// A surface owns an ordered [Collection] of render [Node]s, drawn in
// collection order unless their ZIndex says otherwise. Nodes created by
// genre handlers carry the spec they were built from; nodes without a spec
// are foreign and belong to whoever attached them.
//
// The reconciler only ever uses the [Surface] contract: read the live
// collection, replace it wholesale, remove a single node, and read the
// projection and viewport. [Memory] implements it in process and is what
// the command line tools and the HTTP API render into.
package surface
