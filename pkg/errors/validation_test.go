package errors

import (
	"testing"
)

func TestValidateLayerID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "osm", false},
		{"valid with dash", "roads-2024", false},
		{"valid with colon", "pg:schema.table", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLayerID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLayerID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeConfiguration) {
				t.Errorf("ValidateLayerID(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeConfiguration)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid https", "https://example.com/ows", false},
		{"valid http", "http://localhost:8080/wms?MAP=x", false},

		{"empty", "", true},
		{"ftp scheme", "ftp://example.com", true},
		{"no scheme", "example.com/ows", true},
		{"javascript", "javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOpacity(t *testing.T) {
	for _, v := range []float64{0, 0.5, 1} {
		if err := ValidateOpacity(v); err != nil {
			t.Errorf("ValidateOpacity(%v) = %v, want nil", v, err)
		}
	}
	for _, v := range []float64{-0.1, 1.01} {
		if err := ValidateOpacity(v); err == nil {
			t.Errorf("ValidateOpacity(%v) = nil, want error", v)
		}
	}
}

func TestValidateZoomRange(t *testing.T) {
	tests := []struct {
		min, max float64
		wantErr  bool
	}{
		{0, 0, false},
		{3, 0, false},
		{3, 18, false},
		{18, 3, true},
		{-1, 5, true},
	}

	for _, tt := range tests {
		err := ValidateZoomRange(tt.min, tt.max)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateZoomRange(%v, %v) error = %v, wantErr %v", tt.min, tt.max, err, tt.wantErr)
		}
	}
}
