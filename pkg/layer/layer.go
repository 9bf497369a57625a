package layer

// ID is the unique identifier of a map layer.
type ID string

// GenreID is the unique identifier of a layer genre.
type GenreID string

// GroupGenre is the genre of pure grouping specs. It must never be
// registered as a handler.
const GroupGenre GenreID = "group"

// RootID is the reserved parent id of top level layers in the tree.
const RootID ID = "_ro_ot_"

// Spec is the declarative description of one desired layer or group.
//
// Implementations are pointer types that embed [Attrs].
type Spec interface {
	// Common returns the attributes shared by all genres.
	Common() *Attrs

	// Genre returns the id of the genre that renders this spec.
	Genre() GenreID
}

// Attrs holds the rendering attributes every genre understands.
//
// Attrs is meant to be embedded; the promoted [Attrs.Common] method makes the
// embedding type satisfy half of [Spec].
type Attrs struct {
	ID     ID     `toml:"id" yaml:"id" json:"id"`
	Parent ID     `toml:"parent,omitempty" yaml:"parent,omitempty" json:"parent,omitempty"`
	Title  string `toml:"title,omitempty" yaml:"title,omitempty" json:"title,omitempty"`

	Visible bool    `toml:"visible" yaml:"visible" json:"visible"`
	Opacity float64 `toml:"opacity" yaml:"opacity" json:"opacity"`
	ZIndex  int     `toml:"z_index,omitempty" yaml:"z_index,omitempty" json:"z_index,omitempty"`

	// MinZoom and MaxZoom bound the zoom levels the layer is shown at.
	// A zero MaxZoom means no upper bound.
	MinZoom float64 `toml:"min_zoom,omitempty" yaml:"min_zoom,omitempty" json:"min_zoom,omitempty"`
	MaxZoom float64 `toml:"max_zoom,omitempty" yaml:"max_zoom,omitempty" json:"max_zoom,omitempty"`

	// Extent limits rendering to a rectangle in surface coordinates. Nil
	// means unbounded.
	Extent *Extent `toml:"extent,omitempty" yaml:"extent,omitempty" json:"extent,omitempty"`
}

// DefaultAttrs returns visible, fully opaque attributes for id.
func DefaultAttrs(id ID) Attrs {
	return Attrs{ID: id, Visible: true, Opacity: 1}
}

// Common returns a.
func (a *Attrs) Common() *Attrs { return a }

// ParentOrRoot returns the parent id, or [RootID] for top level layers.
func (a *Attrs) ParentOrRoot() ID {
	if a.Parent == "" {
		return RootID
	}
	return a.Parent
}

// Group is a structural node of the layer tree with no render output.
type Group struct {
	Attrs `yaml:",inline"`
}

// NewGroup creates a visible group.
func NewGroup(id ID, title string) *Group {
	g := &Group{Attrs: DefaultAttrs(id)}
	g.Title = title
	return g
}

// Genre returns [GroupGenre].
func (*Group) Genre() GenreID { return GroupGenre }

// IDOf returns the id of s, or "" for a nil spec.
func IDOf(s Spec) ID {
	if s == nil {
		return ""
	}
	return s.Common().ID
}

// IsGroup reports whether s is a grouping spec.
func IsGroup(s Spec) bool {
	return s != nil && s.Genre() == GroupGenre
}
