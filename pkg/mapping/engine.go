package mapping

import "strings"

// Engine applies configured mapping rules to source records and writes the
// results into nested output structures. An Engine is cheap to construct;
// all state lives in the Config it wraps.
type Engine struct {
	cfg        *Config
	transforms *Registry
}

// NewEngine creates an Engine over a loaded configuration.
func NewEngine(cfg *Config) *Engine {
	return &Engine{
		cfg:        cfg,
		transforms: NewRegistry(),
	}
}

// Config returns the mapping configuration backing this engine.
func (e *Engine) Config() *Config {
	return e.cfg
}

// ApplyRule evaluates one rule against a source record and returns the
// output field path with the produced value.
//
// Constant rules short-circuit: no extraction, no transform. Extracted rules
// resolve the source path, fall back to the rule default when the path does
// not resolve, and only then run the named transform (never over an absent
// value). The value may legitimately end up nil.
func (e *Engine) ApplyRule(record map[string]any, rule Rule) (string, any) {
	if rule.Source == SourceConstant {
		return rule.WizField, rule.Value
	}

	if rule.Source != SourceSARIFResult {
		return rule.WizField, nil
	}

	value := Extract(record, rule.SARIFPath)
	if value == nil {
		value = rule.Default
	}

	if rule.Transform != "" && value != nil {
		value = e.transforms.Apply(rule.Transform, value, e.cfg.TransformParams(rule.Transform))
	}

	return rule.WizField, value
}

// ApplySection runs every enabled rule of a section over the record and
// assembles the results into a fresh nested map. Rules that produce nil are
// skipped so downstream JSON stays free of explicit nulls.
func (e *Engine) ApplySection(section string, record map[string]any) map[string]any {
	out := make(map[string]any)
	e.ApplySectionInto(out, section, record)
	return out
}

// ApplySectionInto is ApplySection writing into an existing output map, so
// several sections can contribute to one document.
func (e *Engine) ApplySectionInto(out map[string]any, section string, record map[string]any) {
	for _, rule := range e.cfg.Rules(section) {
		path, value := e.ApplyRule(record, rule)
		if value == nil {
			continue
		}
		WriteNested(out, path, value)
	}
}

// WriteNested assigns value at a dot-separated path inside out, creating
// intermediate objects as needed. The final segment overwrites any previous
// value, so re-applying a rule is idempotent. Target paths carry no index
// syntax; brackets in a write path are treated as part of the key.
func WriteNested(out map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := out

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}

	current[parts[len(parts)-1]] = value
}
