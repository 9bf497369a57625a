// Package project reads map projects: the projection and viewport of a
// surface together with its declared base layers and overlays.
//
// Projects are written in TOML or YAML, or as JSON documents. Every layer
// entry names its genre; the rest of the entry is decoded into the spec the
// genre's factory returns, so genre defaults apply to omitted keys:
//
//	projection = "EPSG:3857"
//	viewport = [1024, 768]
//	active_base = "osm"
//
//	[[bases]]
//	id = "osm"
//	genre = "osm-tile-raster"
//
//	[[overlays]]
//	id = "roads"
//	genre = "wms-from-capab"
//	service_url = "https://maps.example.org/wms"
//	layer_name = "roads"
//
// Overlays are added in file order, so a parent must precede its children.
package project

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/proj"
	"github.com/matzehuels/mapstack/pkg/surface"
	"github.com/matzehuels/mapstack/pkg/tree"
)

// Default viewport size in pixels.
const (
	DefaultWidth  = 1024
	DefaultHeight = 768
)

// Format is the encoding of a project file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported project file %q (want .toml, .yaml or .json)", path)
}

// Specs creates empty specs by genre. *genre.Registry implements it.
type Specs interface {
	NewSpec(id layer.GenreID) (layer.Spec, error)
}

// Project is a decoded project file.
type Project struct {
	Projection    proj.Projection
	Width, Height int
	ActiveBase    layer.ID
	ActiveOverlay layer.ID
	Bases         []layer.Spec
	Overlays      []layer.Spec

	// Undecoded lists keys of the file no spec field took, TOML only.
	Undecoded []string
}

// Load reads and decodes the project at path.
func Load(path string, specs Specs) (*Project, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "read project")
	}
	p, err := Decode(data, format, specs)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return p, nil
}

// Decode decodes a project in the given format.
func Decode(data []byte, format Format, specs Specs) (*Project, error) {
	switch format {
	case FormatTOML:
		return decodeTOML(data, specs)
	case FormatYAML:
		return decodeYAML(data, specs)
	case FormatJSON:
		return decodeJSON(data, specs)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown project format %q", format)
}

// header holds the keys outside the layer lists.
type header struct {
	Projection    string   `toml:"projection" yaml:"projection" json:"projection"`
	Viewport      []int    `toml:"viewport" yaml:"viewport" json:"viewport"`
	ActiveBase    layer.ID `toml:"active_base" yaml:"active_base" json:"active_base"`
	ActiveOverlay layer.ID `toml:"active_overlay" yaml:"active_overlay" json:"active_overlay"`
}

// document is a project file whose layer entries are kept undecoded as T
// until their genre is known.
type document[T any] struct {
	header   `yaml:",inline"`
	Bases    []T `toml:"bases" yaml:"bases" json:"bases"`
	Overlays []T `toml:"overlays" yaml:"overlays" json:"overlays"`
}

// decodeFunc decodes one undecoded layer entry into v.
type decodeFunc[T any] func(raw T, v any) error

func build[T any](doc *document[T], decode decodeFunc[T], specs Specs) (*Project, error) {
	p := &Project{
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		ActiveBase:    doc.ActiveBase,
		ActiveOverlay: doc.ActiveOverlay,
	}

	code := doc.Projection
	if code == "" {
		code = proj.EPSG3857.Code
	}
	pr, ok := proj.Get(code)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unsupported projection %q", code)
	}
	p.Projection = pr

	switch len(doc.Viewport) {
	case 0:
	case 2:
		if doc.Viewport[0] <= 0 || doc.Viewport[1] <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "viewport %v must be positive", doc.Viewport)
		}
		p.Width, p.Height = doc.Viewport[0], doc.Viewport[1]
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "viewport must be [width, height], got %v", doc.Viewport)
	}

	for i, raw := range doc.Bases {
		spec, err := decodeSpec(raw, decode, specs)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "bases[%d]", i)
		}
		p.Bases = append(p.Bases, spec)
	}
	for i, raw := range doc.Overlays {
		spec, err := decodeSpec(raw, decode, specs)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "overlays[%d]", i)
		}
		p.Overlays = append(p.Overlays, spec)
	}
	return p, nil
}

func decodeSpec[T any](raw T, decode decodeFunc[T], specs Specs) (layer.Spec, error) {
	var g struct {
		Genre layer.GenreID `toml:"genre" yaml:"genre" json:"genre"`
	}
	if err := decode(raw, &g); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode layer")
	}
	if g.Genre == "" {
		return nil, errors.Configuration("layer has no genre")
	}
	spec, err := specs.NewSpec(g.Genre)
	if err != nil {
		return nil, err
	}
	if err := decode(raw, spec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s layer", g.Genre)
	}
	if layer.IDOf(spec) == "" {
		return nil, errors.Configuration("%s layer has no id", g.Genre)
	}
	return spec, nil
}

// State builds the desired layer state. The first base is made active when
// the project names none.
func (p *Project) State() (*tree.State, error) {
	s := tree.New()
	for i, spec := range p.Bases {
		activate := layer.IDOf(spec) == p.ActiveBase || (p.ActiveBase == "" && i == 0)
		if err := s.AddBase(spec, activate); err != nil {
			return nil, err
		}
	}
	if p.ActiveBase != "" {
		if err := s.SetActiveBase(p.ActiveBase); err != nil {
			return nil, err
		}
	}
	for _, spec := range p.Overlays {
		if err := s.AddOverlay(spec, false); err != nil {
			return nil, err
		}
	}
	if err := s.SetActiveOverlay(p.ActiveOverlay); err != nil {
		return nil, err
	}
	return s, nil
}

// Surface returns an empty in-memory surface with the project projection
// and viewport.
func (p *Project) Surface() *surface.Memory {
	return surface.NewMemory(p.Projection, p.Width, p.Height)
}
