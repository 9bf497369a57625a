// Package render draws the layer tree of a map as a Graphviz diagram.
//
// [ToDOT] turns a [tree.State] into DOT source: a map root with the base
// layers on one side and the overlay tree on the other. The active base and
// the active overlay are drawn bold, hidden layers greyed out. With
// [Options.Nodes] set, layers that have no render node on the surface yet
// (pending or failed creations) get a dashed outline.
//
//	dot := render.ToDOT(state, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// SVG rendering runs Graphviz in process through
// [github.com/goccy/go-graphviz]. PDF and PNG conversion of the SVG shell
// out to rsvg-convert from librsvg.
package render
