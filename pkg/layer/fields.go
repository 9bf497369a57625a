package layer

import (
	"reflect"
)

// Field names one settings field of a spec. It is the Go field name, and
// fields of embedded structs are promoted under their own name.
type Field string

// Fields of [Attrs].
const (
	FieldID      Field = "ID"
	FieldParent  Field = "Parent"
	FieldTitle   Field = "Title"
	FieldVisible Field = "Visible"
	FieldOpacity Field = "Opacity"
	FieldZIndex  Field = "ZIndex"
	FieldMinZoom Field = "MinZoom"
	FieldMaxZoom Field = "MaxZoom"
	FieldExtent  Field = "Extent"
)

// Cosmetic lists the fields a render node can take in place without being
// rebuilt.
var Cosmetic = []Field{
	FieldTitle,
	FieldVisible,
	FieldOpacity,
	FieldZIndex,
	FieldMinZoom,
	FieldMaxZoom,
	FieldExtent,
}

// IsCosmetic reports whether f is one of [Cosmetic].
func IsCosmetic(f Field) bool {
	for _, c := range Cosmetic {
		if c == f {
			return true
		}
	}
	return false
}

// Values returns every exported field of s keyed by name. Embedded structs
// are flattened. A nil spec yields an empty map.
func Values(s Spec) map[Field]any {
	out := make(map[Field]any)
	if s == nil {
		return out
	}
	v := reflect.ValueOf(s)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return out
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Struct {
		collect(v, out)
	}
	return out
}

// collect visits direct fields before embedded ones so that outer fields
// shadow promoted fields of the same name.
func collect(v reflect.Value, out map[Field]any) {
	t := v.Type()
	var embedded []reflect.Value
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			embedded = append(embedded, v.Field(i))
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if _, taken := out[Field(sf.Name)]; !taken {
			out[Field(sf.Name)] = v.Field(i).Interface()
		}
	}
	for _, ev := range embedded {
		collect(ev, out)
	}
}

// HasField reports whether s has a field called f.
func HasField(s Spec, f Field) bool {
	_, ok := Values(s)[f]
	return ok
}
