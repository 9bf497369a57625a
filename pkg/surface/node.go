package surface

import (
	"fmt"
	"maps"

	"github.com/matzehuels/mapstack/pkg/layer"
)

// Kind is the primitive type of a render node.
type Kind string

const (
	KindTile   Kind = "tile"   // Tiled raster source
	KindImage  Kind = "image"  // Single image per viewport
	KindVector Kind = "vector" // Feature geometries
)

// Source describes where a node gets its data.
type Source struct {
	Type         string            `json:"type"` // e.g. "xyz", "wms", "wmts", "wfs", "geojson"
	URL          string            `json:"url,omitempty"`
	Params       map[string]string `json:"params,omitempty"`
	Format       string            `json:"format,omitempty"`
	Projection   string            `json:"projection,omitempty"`
	Version      string            `json:"version,omitempty"`
	Attributions []string          `json:"attributions,omitempty"`
}

// Node is one primitive attached to a surface.
type Node struct {
	Kind   Kind   `json:"kind"`
	Source Source `json:"source"`

	Title   string        `json:"title,omitempty"`
	Visible bool          `json:"visible"`
	Opacity float64       `json:"opacity"`
	ZIndex  int           `json:"z_index"`
	MinZoom float64       `json:"min_zoom,omitempty"`
	MaxZoom float64       `json:"max_zoom,omitempty"`
	Extent  *layer.Extent `json:"extent,omitempty"`

	spec layer.Spec
}

// NewNode creates a node tagged with spec, taking its common attributes.
func NewNode(spec layer.Spec, kind Kind, src Source) *Node {
	n := &Node{Kind: kind, Source: src, spec: spec}
	if spec != nil {
		a := spec.Common()
		for _, f := range layer.Cosmetic {
			n.Apply(f, a)
		}
	}
	return n
}

// NewForeign creates an untagged node.
func NewForeign(kind Kind, src Source) *Node {
	return &Node{Kind: kind, Source: src, Visible: true, Opacity: 1}
}

// Spec returns the spec the node was created from, nil for foreign nodes.
func (n *Node) Spec() layer.Spec { return n.spec }

// SetSpec retags the node.
func (n *Node) SetSpec(s layer.Spec) { n.spec = s }

// ID returns the id of the node's spec, "" for foreign nodes.
func (n *Node) ID() layer.ID { return layer.IDOf(n.spec) }

// Foreign reports whether the node carries no spec.
func (n *Node) Foreign() bool { return n.spec == nil }

// Apply copies the cosmetic field f from a onto the node. It reports false
// for fields a node cannot take in place.
func (n *Node) Apply(f layer.Field, a *layer.Attrs) bool {
	switch f {
	case layer.FieldTitle:
		n.Title = a.Title
	case layer.FieldVisible:
		n.Visible = a.Visible
	case layer.FieldOpacity:
		n.Opacity = a.Opacity
	case layer.FieldZIndex:
		n.ZIndex = a.ZIndex
	case layer.FieldMinZoom:
		n.MinZoom = a.MinZoom
	case layer.FieldMaxZoom:
		n.MaxZoom = a.MaxZoom
	case layer.FieldExtent:
		if a.Extent == nil {
			n.Extent = nil
		} else {
			n.Extent = a.Extent.Ptr()
		}
	default:
		return false
	}
	return true
}

// Clone returns a copy of n with the same tag.
func (n *Node) Clone() *Node {
	c := *n
	c.Source.Params = maps.Clone(n.Source.Params)
	if n.Extent != nil {
		c.Extent = n.Extent.Ptr()
	}
	return &c
}

func (n *Node) String() string {
	id := n.ID()
	if id == "" {
		id = "<foreign>"
	}
	return fmt.Sprintf("%s %s(%s)", id, n.Kind, n.Source.Type)
}
