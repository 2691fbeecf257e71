package mapping

import (
	"fmt"
	"strings"
)

// Built-in transformation names.
const (
	TransformMapSeverity       = "map_severity"
	TransformCleanFixedVersion = "clean_fixed_version"
	TransformFormatRemediation = "format_remediation"
)

// TransformParams configures a named transformation. Which fields are
// meaningful depends on the transform: map_severity uses Mappings,
// clean_fixed_version uses ReturnsEmptyIf, format_remediation uses Template.
type TransformParams struct {
	Mappings       map[string]string `json:"mappings,omitempty" yaml:"mappings,omitempty"`
	ReturnsEmptyIf string            `json:"returns_empty_if,omitempty" yaml:"returns_empty_if,omitempty"`
	Template       string            `json:"template,omitempty" yaml:"template,omitempty"`
}

// TransformFunc is a pure value transformation.
type TransformFunc func(value any, params TransformParams) any

// Registry holds the named transformations available to mapping rules.
type Registry struct {
	funcs map[string]TransformFunc
}

// NewRegistry returns a Registry with the built-in transforms registered.
func NewRegistry() *Registry {
	return &Registry{
		funcs: map[string]TransformFunc{
			TransformMapSeverity:       transformMapSeverity,
			TransformCleanFixedVersion: transformCleanFixedVersion,
			TransformFormatRemediation: transformFormatRemediation,
		},
	}
}

// Apply runs the named transform over value. An unknown name is the identity
// transform; lookups never fail so partially specified configurations keep
// flowing through the pipeline.
func (r *Registry) Apply(name string, value any, params TransformParams) any {
	fn, ok := r.funcs[name]
	if !ok {
		return value
	}
	return fn(value, params)
}

// transformMapSeverity lower-cases the value and looks it up in the
// configured severity mappings, defaulting to Medium.
func transformMapSeverity(value any, params TransformParams) any {
	key := strings.ToLower(stringify(value))
	if mapped, ok := params.Mappings[key]; ok {
		return mapped
	}
	return "Medium"
}

// transformCleanFixedVersion blanks out placeholder fixed-version strings
// such as "no fix available".
func transformCleanFixedVersion(value any, params TransformParams) any {
	if isEmpty(value) {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		return value
	}
	marker := params.ReturnsEmptyIf
	if marker == "" {
		marker = "no fix available"
	}
	if strings.EqualFold(s, marker) {
		return ""
	}
	return s
}

// transformFormatRemediation renders the fixed version into a remediation
// message template. The template refers to the value as {value}.
func transformFormatRemediation(value any, params TransformParams) any {
	if isEmpty(value) {
		return ""
	}
	template := params.Template
	if template == "" {
		template = "Update to version: {value}"
	}
	return strings.ReplaceAll(template, "{value}", stringify(value))
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}
