package errors

import (
	"strings"
	"unicode"
)

// ValidateLayerID validates a layer id for use as a reconciliation key.
//
// The rules are intentionally small:
//   - No empty ids
//   - No control characters
//   - No slashes, since ids appear in API paths
//   - Maximum length of 256 characters
func ValidateLayerID(id string) error {
	if id == "" {
		return New(ErrCodeConfiguration, "layer id cannot be empty")
	}
	if len(id) > 256 {
		return New(ErrCodeConfiguration, "layer id too long (max 256 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeConfiguration, "layer id %q contains control characters", id)
		}
	}
	if strings.ContainsAny(id, "/\\") {
		return New(ErrCodeConfiguration, "layer id %q cannot contain slashes", id)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidateOpacity checks that opacity lies in [0, 1].
func ValidateOpacity(v float64) error {
	if v < 0 || v > 1 {
		return New(ErrCodeInvalidInput, "opacity %v out of range [0, 1]", v)
	}
	return nil
}

// ValidateZoomRange checks min/max zoom thresholds. A zero max means unbounded.
func ValidateZoomRange(min, max float64) error {
	if min < 0 || max < 0 {
		return New(ErrCodeInvalidInput, "zoom thresholds cannot be negative")
	}
	if max > 0 && min > max {
		return New(ErrCodeInvalidInput, "min zoom %v greater than max zoom %v", min, max)
	}
	return nil
}
