// Package ogc implements the genres that create layers from the
// capabilities document of an OGC web service: WMS (single image and
// tiled), WFS and WMTS.
//
// Creation is asynchronous. The handler schedules a job that fetches and
// parses the capabilities, derives the layer extent in the surface
// projection and builds the node. A job whose spec was replaced or removed
// meanwhile is discarded by the reconciler.
package ogc

import (
	"context"
	stderrors "errors"

	"github.com/matzehuels/mapstack/pkg/capab"
	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/fetch"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/proj"
)

// Fetcher retrieves documents. *fetch.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Fields shared by the OGC specs.
const (
	FieldServiceURL   layer.Field = "ServiceURL"
	FieldLayerName    layer.Field = "LayerName"
	FieldFormat       layer.Field = "Format"
	FieldServerType   layer.Field = "ServerType"
	FieldVersion      layer.Field = "Version"
	FieldOutputFormat layer.Field = "OutputFormat"
	FieldMatrixSet    layer.Field = "MatrixSet"
	FieldStyle        layer.Field = "Style"
)

// extentStops is the number of samples per edge when reprojecting extents.
const extentStops = 8

// Service is the part every OGC spec shares.
type Service struct {
	ServiceURL string `toml:"service_url" yaml:"service_url" json:"service_url"`
	LayerName  string `toml:"layer_name" yaml:"layer_name" json:"layer_name"`
}

func validate(a *layer.Attrs, s Service) error {
	if err := genre.ValidateAttrs(a); err != nil {
		return err
	}
	if err := genre.Require(FieldServiceURL, s.ServiceURL); err != nil {
		return err
	}
	if err := errors.ValidateURL(s.ServiceURL); err != nil {
		return err
	}
	return genre.Require(FieldLayerName, s.LayerName)
}

// CapabilitiesURL returns the GetCapabilities request for a service URL.
// Extra parameters are added to the query.
func CapabilitiesURL(serviceURL, service string, extra map[string]string) string {
	params := map[string]string{"SERVICE": service, "REQUEST": "GetCapabilities"}
	for k, v := range extra {
		params[k] = v
	}
	return fetch.WithQuery(serviceURL, params)
}

// capabilities fetches and parses the capabilities of service at url.
func capabilities(ctx context.Context, f Fetcher, service, url string) (capab.Document, error) {
	data, err := f.Get(ctx, url)
	if err != nil {
		code := errors.ErrCodeFetchFailed
		switch {
		case stderrors.Is(err, fetch.ErrNotFound):
			code = errors.ErrCodeNotFound
		case stderrors.Is(err, fetch.ErrTooLarge):
			code = errors.ErrCodeInvalidFormat
		}
		return nil, errors.Wrap(code, err, "%s capabilities of %s", service, url)
	}
	doc, err := capab.Parse(service, data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "%s capabilities of %s", service, url)
	}
	return doc, nil
}

// layerError maps a capabilities lookup failure to an error code.
func layerError(err error) error {
	var nf *capab.ErrLayerNotFound
	if stderrors.As(err, &nf) {
		return errors.Wrap(errors.ErrCodeLayerNotFound, err, "layer %q", nf.Name)
	}
	return err
}

// project reprojects e from the code it was given in to the target. When
// swap is set e is in north-east order and is turned around first.
func project(e layer.Extent, code string, swap bool, target proj.Projection) (layer.Extent, error) {
	from, ok := proj.Get(code)
	if !ok {
		return layer.Extent{}, errors.New(errors.ErrCodeInvalidInput, "unknown projection %q", code)
	}
	if swap && from.NorthEast() {
		e = e.SwapAxes()
	}
	return proj.TransformExtent(e, from, target, extentStops)
}

// geographic reprojects a lon/lat extent.
func geographic(e layer.Extent, target proj.Projection) (layer.Extent, error) {
	return proj.TransformExtent(e, proj.CRS84, target, extentStops)
}

// explicitOr returns the spec extent if set, otherwise computed.
func explicitOr(a *layer.Attrs, computed *layer.Extent) *layer.Extent {
	if a.Extent != nil {
		return a.Extent.Ptr()
	}
	return computed
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
