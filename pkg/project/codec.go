package project

import (
	"bytes"
	"encoding/json"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/layer"
)

func decodeTOML(data []byte, specs Specs) (*Project, error) {
	var doc document[toml.Primitive]
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse TOML")
	}
	p, err := build(&doc, func(raw toml.Primitive, v any) error {
		return md.PrimitiveDecode(raw, v)
	}, specs)
	if err != nil {
		return nil, err
	}
	for _, k := range md.Undecoded() {
		p.Undecoded = append(p.Undecoded, k.String())
	}
	return p, nil
}

func decodeYAML(data []byte, specs Specs) (*Project, error) {
	var doc document[yaml.Node]
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse YAML")
	}
	return build(&doc, func(raw yaml.Node, v any) error {
		return raw.Decode(v)
	}, specs)
}

func decodeJSON(data []byte, specs Specs) (*Project, error) {
	var doc document[json.RawMessage]
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse JSON")
	}
	return build(&doc, func(raw json.RawMessage, v any) error {
		return json.Unmarshal(raw, v)
	}, specs)
}

// DecodeSpec decodes a single JSON layer document carrying a "genre" key.
func DecodeSpec(data []byte, specs Specs) (layer.Spec, error) {
	return decodeSpec(json.RawMessage(data), func(raw json.RawMessage, v any) error {
		return json.Unmarshal(raw, v)
	}, specs)
}

// EncodeSpec encodes spec as a JSON layer document with its genre.
func EncodeSpec(spec layer.Spec) ([]byte, error) {
	fields, err := specMap(spec)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

func specMap(spec layer.Spec) (map[string]any, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode layer %q", layer.IDOf(spec))
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode layer %q", layer.IDOf(spec))
	}
	fields["genre"] = spec.Genre()
	return fields, nil
}
