package genre

import (
	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/layer"
)

// ValidateAttrs checks the common attributes of a spec.
func ValidateAttrs(a *layer.Attrs) error {
	if err := errors.ValidateLayerID(string(a.ID)); err != nil {
		return err
	}
	if a.ID == layer.RootID {
		return errors.New(errors.ErrCodeReservedID, "layer id %q is reserved", a.ID)
	}
	if err := errors.ValidateOpacity(a.Opacity); err != nil {
		return err
	}
	if err := errors.ValidateZoomRange(a.MinZoom, a.MaxZoom); err != nil {
		return err
	}
	if a.Extent != nil && a.Extent.IsEmpty() {
		return errors.New(errors.ErrCodeInvalidInput, "extent %v is empty", *a.Extent)
	}
	return nil
}

// SpecAs asserts that spec is of type T, for handler implementations.
func SpecAs[T layer.Spec](spec layer.Spec) (T, error) {
	t, ok := spec.(T)
	if !ok {
		var zero T
		return zero, errors.Configuration("genre %q expects %T, got %T", spec.Genre(), zero, spec)
	}
	return t, nil
}

// Require returns a configuration error naming field if value is empty.
func Require(field layer.Field, value string) error {
	if value == "" {
		return errors.Configuration("field %s is required", field)
	}
	return nil
}
