package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ToPDF converts an SVG diagram to PDF with rsvg-convert.
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	return convert(ctx, svg, "pdf")
}

// ToPNG converts an SVG diagram to PNG with rsvg-convert, scaled by zoom.
func ToPNG(ctx context.Context, svg []byte, zoom float64) ([]byte, error) {
	return convert(ctx, svg, "png", "-z", strconv.FormatFloat(zoom, 'f', 2, 64))
}

// Convert renders svg in the format named by the extension of path: .svg
// returns it as is, .pdf and .png go through rsvg-convert.
func Convert(ctx context.Context, svg []byte, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg", "":
		return svg, nil
	case ".pdf":
		return ToPDF(ctx, svg)
	case ".png":
		return ToPNG(ctx, svg, 2)
	}
	return nil, fmt.Errorf("unsupported diagram format %q", filepath.Ext(path))
}

func convert(ctx context.Context, svg []byte, format string, extraArgs ...string) ([]byte, error) {
	if _, err := exec.LookPath("rsvg-convert"); err != nil {
		return nil, fmt.Errorf("%s output needs rsvg-convert (librsvg2-bin on Debian, librsvg on Homebrew)", format)
	}

	args := append([]string{"-f", format}, extraArgs...)
	cmd := exec.CommandContext(ctx, "rsvg-convert", args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rsvg-convert: %v: %s", err, errBuf.String())
	}
	return out.Bytes(), nil
}
