package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryUnknownNameIsIdentity(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, "value", r.Apply("does_not_exist", "value", TransformParams{}))
	assert.Equal(t, 42, r.Apply("", 42, TransformParams{}))
	assert.Nil(t, r.Apply("nope", nil, TransformParams{}))
}

func TestMapSeverity(t *testing.T) {
	r := NewRegistry()
	params := TransformParams{Mappings: map[string]string{
		"none":    "None",
		"note":    "Low",
		"warning": "Medium",
		"error":   "High",
	}}

	tests := []struct {
		in   any
		want any
	}{
		{"error", "High"},
		{"ERROR", "High"},
		{"Warning", "Medium"},
		{"note", "Low"},
		{"none", "None"},
		{"bogus", "Medium"},
		{"", "Medium"},
		{nil, "Medium"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Apply(TransformMapSeverity, tt.in, params),
			"input %v", tt.in)
	}
}

func TestMapSeverityEmptyMappings(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "Medium", r.Apply(TransformMapSeverity, "error", TransformParams{}))
}

func TestCleanFixedVersion(t *testing.T) {
	r := NewRegistry()
	params := TransformParams{ReturnsEmptyIf: "no fix available"}

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"real version passes", "1.2.3", "1.2.3"},
		{"placeholder blanked", "no fix available", ""},
		{"placeholder case-insensitive", "No Fix Available", ""},
		{"empty stays empty", "", ""},
		{"nil becomes empty", nil, ""},
		{"non-string passes through", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Apply(TransformCleanFixedVersion, tt.in, params))
		})
	}
}

func TestCleanFixedVersionDefaultMarker(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "", r.Apply(TransformCleanFixedVersion, "NO FIX AVAILABLE", TransformParams{}))
	assert.Equal(t, "2.0.0", r.Apply(TransformCleanFixedVersion, "2.0.0", TransformParams{}))
}

func TestFormatRemediation(t *testing.T) {
	r := NewRegistry()

	got := r.Apply(TransformFormatRemediation, "1.2.3",
		TransformParams{Template: "Upgrade the package to {value}"})
	assert.Equal(t, "Upgrade the package to 1.2.3", got)

	// Default template when none configured.
	got = r.Apply(TransformFormatRemediation, "4.5.6", TransformParams{})
	assert.Equal(t, "Update to version: 4.5.6", got)

	// Empty input never renders a message.
	assert.Equal(t, "", r.Apply(TransformFormatRemediation, "", TransformParams{}))
	assert.Equal(t, "", r.Apply(TransformFormatRemediation, nil, TransformParams{}))
}
