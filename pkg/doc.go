// Package pkg provides the core libraries for mapstack.
//
// # Overview
//
// Mapstack keeps a rendering surface in sync with a declarative description
// of map layers: one active base layer below an ordered tree of overlays.
// Every layer names a genre, and the genre's handler knows how to turn the
// layer's settings into render nodes, how to patch existing nodes when only
// cosmetic settings change, and when nodes must be recreated.
//
// # Architecture
//
//	project file (TOML / YAML / JSON)
//	         ↓
//	    [project] package (decode specs by genre)
//	         ↓
//	    [tree] package (bases, overlay tree, active layers)
//	         ↓
//	    [genre] package (plan, reconcile, async creations)
//	         ↓
//	    [surface] package (ordered render nodes)
//
// Capability-driven genres in [genres/ogc] fetch WMS, WFS and WMTS
// documents through [fetch], which caches them with [cache] and parses
// them with [capab]; extents are reprojected with [proj].
//
// # Quick Start
//
//	reg := genres.NewRegistry(fetch.NewClient(fetch.Options{}))
//	p, _ := project.Load("city.toml", reg)
//	st, _ := p.State()
//
//	rec := genre.NewReconciler(reg, p.Surface(), nil)
//	defer rec.Close()
//	ctl := tree.NewControllerWithState(st, rec, nil)
//
//	res, _ := ctl.Sync(ctx)  // resolve every layer
//	_ = rec.Wait(ctx)        // wait for capability-driven layers
//
//	faded := tile.NewOSMSpec("osm")
//	faded.Opacity = 0.5
//	res, _ = ctl.Replace(ctx, faded) // patched in place, no rebuild
//
// # Main Packages
//
// [layer] - Layer specs, common attributes, extents and the ordered
// overlay map.
//
// [genre] - Genre handler contract, registry and the reconciler.
//
// [genres] - Built-in genres: OSM and XYZ tiles, GeoJSON vectors, and the
// WMS, WFS and WMTS capability-driven genres.
//
// [tree] - Desired layer state and the controller applying edits to it.
//
// [project] - Project files.
//
// [api] - HTTP API over a controller.
//
// [render] - Layer tree diagrams.
//
// [observability] - Reconcile and fetch hooks with a Prometheus
// implementation.
package pkg
