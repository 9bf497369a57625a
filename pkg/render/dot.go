package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/surface"
	"github.com/matzehuels/mapstack/pkg/tree"
)

// Options configures layer tree diagrams.
type Options struct {
	// Detailed adds the genre and common attributes to node labels.
	Detailed bool

	// Nodes, if set, is the live collection of the surface. Layers with
	// no node in it are drawn dashed.
	Nodes *surface.Collection
}

const (
	rootID  = "map"
	basesID = "bases"
)

// ToDOT converts the layer tree of s to Graphviz DOT.
func ToDOT(s *tree.State, opts Options) string {
	rendered := map[layer.ID]int{}
	if opts.Nodes != nil {
		for _, n := range opts.Nodes.Nodes() {
			if !n.Foreign() {
				rendered[n.ID()]++
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.2;\n")
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "  %q [shape=ellipse, label=%q];\n", rootID, "map")

	bases := s.Bases()
	if len(bases) > 0 {
		fmt.Fprintf(&buf, "  %q [shape=folder, label=%q];\n", basesID, "bases")
		fmt.Fprintf(&buf, "  %q -> %q;\n", rootID, basesID)
		for _, spec := range bases {
			id := layer.IDOf(spec)
			writeNode(&buf, "base:"+string(id), spec, id == s.ActiveBaseID(), rendered, opts)
			fmt.Fprintf(&buf, "  %q -> %q;\n", basesID, "base:"+string(id))
		}
	}

	var walk func(parent layer.ID, from string)
	walk = func(parent layer.ID, from string) {
		for _, id := range s.Children(parent) {
			spec, _ := s.Overlay(id)
			name := "overlay:" + string(id)
			writeNode(&buf, name, spec, id == s.ActiveOverlayID(), rendered, opts)
			fmt.Fprintf(&buf, "  %q -> %q;\n", from, name)
			walk(id, name)
		}
	}
	walk(layer.RootID, rootID)

	buf.WriteString("}\n")
	return buf.String()
}

func writeNode(buf *bytes.Buffer, name string, spec layer.Spec, active bool, rendered map[layer.ID]int, opts Options) {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(spec, rendered, opts))}
	attrs = append(attrs, fmtAttrs(spec, active, rendered, opts)...)
	fmt.Fprintf(buf, "  %q [%s];\n", name, strings.Join(attrs, ", "))
}

func fmtLabel(spec layer.Spec, rendered map[layer.ID]int, opts Options) string {
	a := spec.Common()
	title := string(a.ID)
	if a.Title != "" {
		title = a.Title + " (" + string(a.ID) + ")"
	}
	if !opts.Detailed {
		return title
	}

	parts := []string{"genre: " + string(spec.Genre())}
	if a.Opacity != 1 {
		parts = append(parts, "opacity: "+strconv.FormatFloat(a.Opacity, 'g', -1, 64))
	}
	if a.ZIndex != 0 {
		parts = append(parts, fmt.Sprintf("z-index: %d", a.ZIndex))
	}
	if a.Extent != nil {
		parts = append(parts, "extent: "+a.Extent.String())
	}
	if opts.Nodes != nil && !layer.IsGroup(spec) {
		parts = append(parts, fmt.Sprintf("nodes: %d", rendered[a.ID]))
	}
	return title + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(spec layer.Spec, active bool, rendered map[layer.ID]int, opts Options) []string {
	a := spec.Common()
	style := []string{"rounded", "filled"}
	var attrs []string
	if layer.IsGroup(spec) {
		attrs = append(attrs, "shape=folder")
	}
	if active {
		style = append(style, "bold")
		attrs = append(attrs, "penwidth=2")
	}
	if opts.Nodes != nil && !layer.IsGroup(spec) && rendered[a.ID] == 0 {
		style = append(style, "dashed")
	}
	if !a.Visible {
		attrs = append(attrs, "fillcolor=lightgrey", "fontcolor=grey40")
	}
	return append([]string{fmt.Sprintf("style=%q", strings.Join(style, ","))}, attrs...)
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz svg element, whose size is in
// points, with one sized in pixels.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
