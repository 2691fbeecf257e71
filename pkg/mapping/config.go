package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	ErrConfigNotFound = errors.New("mapping configuration not found")
	ErrInvalidConfig  = errors.New("invalid mapping configuration")
)

// Source kinds for mapping rules.
const (
	SourceConstant    = "constant"
	SourceSARIFResult = "sarif_result"
)

// Rule is a single declarative field mapping: take a value from the source
// record (or a constant) and write it at WizField in the output.
type Rule struct {
	WizField    string `json:"wiz_field" yaml:"wiz_field" validate:"required"`
	Source      string `json:"source" yaml:"source" validate:"required,oneof=constant sarif_result"`
	SARIFPath   string `json:"sarif_path,omitempty" yaml:"sarif_path,omitempty"`
	Value       any    `json:"value,omitempty" yaml:"value,omitempty"`
	Transform   string `json:"transform,omitempty" yaml:"transform,omitempty"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// UnmarshalJSON decodes a rule with enabled defaulting to true when omitted.
func (r *Rule) UnmarshalJSON(data []byte) error {
	type alias Rule
	a := alias{Enabled: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = Rule(a)
	return nil
}

// UnmarshalYAML decodes a rule with enabled defaulting to true when omitted.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	type alias Rule
	a := alias{Enabled: true}
	if err := node.Decode(&a); err != nil {
		return err
	}
	*r = Rule(a)
	return nil
}

// Section is a named, ordered group of rules sharing a target context
// (finding-level fields, target-component fields, ...). A disabled section
// suppresses all its rules regardless of their individual flags.
type Section struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Mappings    []Rule `json:"mappings" yaml:"mappings" validate:"dive"`
}

// UnmarshalJSON decodes a section with enabled defaulting to true when omitted.
func (s *Section) UnmarshalJSON(data []byte) error {
	type alias Section
	a := alias{Enabled: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = Section(a)
	return nil
}

// UnmarshalYAML decodes a section with enabled defaulting to true when omitted.
func (s *Section) UnmarshalYAML(node *yaml.Node) error {
	type alias Section
	a := alias{Enabled: true}
	if err := node.Decode(&a); err != nil {
		return err
	}
	*s = Section(a)
	return nil
}

// Config is the in-memory mapping configuration: named sections of rules
// plus the parameter records for named transformations. Section order
// follows the configuration document.
type Config struct {
	Version         string
	Description     string
	Transformations map[string]TransformParams

	sectionOrder []string
	sections     map[string]*Section
}

// Load reads a mapping configuration from a JSON or YAML file (decided by
// extension; everything that is not .yaml/.yml is treated as JSON). A
// missing or malformed configuration is a fatal startup condition, so errors
// are returned rather than defaulted away.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read mapping configuration: %w", err)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = parseYAML(data)
	default:
		cfg, err = parseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// configDocument is the wire shape shared by JSON and YAML, minus the
// sections map which needs order-preserving decoding.
type configDocument struct {
	Version         string                     `json:"version" yaml:"version"`
	Description     string                     `json:"description" yaml:"description"`
	Transformations map[string]TransformParams `json:"transformations" yaml:"transformations"`
}

func parseJSON(data []byte) (*Config, error) {
	var doc configDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var raw struct {
		Sections json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw.Sections) == 0 {
		return nil, errors.New("missing sections")
	}

	cfg := newConfig(doc)

	// Objects decoded into Go maps lose key order, so walk the token
	// stream to keep sections in document order.
	dec := json.NewDecoder(strings.NewReader(string(raw.Sections)))
	if _, err := dec.Token(); err != nil { // opening brace
		return nil, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in sections", tok)
		}
		var section Section
		if err := dec.Decode(&section); err != nil {
			return nil, fmt.Errorf("section %q: %w", name, err)
		}
		cfg.addSection(name, &section)
	}

	return cfg, nil
}

func parseYAML(data []byte) (*Config, error) {
	var doc configDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var root struct {
		Sections yaml.Node `yaml:"sections"`
	}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Sections.Kind != yaml.MappingNode {
		return nil, errors.New("missing sections")
	}

	cfg := newConfig(doc)

	// yaml.Node keeps mapping entries as alternating key/value children.
	content := root.Sections.Content
	for i := 0; i+1 < len(content); i += 2 {
		name := content[i].Value
		var section Section
		if err := content[i+1].Decode(&section); err != nil {
			return nil, fmt.Errorf("section %q: %w", name, err)
		}
		cfg.addSection(name, &section)
	}

	return cfg, nil
}

func newConfig(doc configDocument) *Config {
	transformations := doc.Transformations
	if transformations == nil {
		transformations = make(map[string]TransformParams)
	}
	return &Config{
		Version:         doc.Version,
		Description:     doc.Description,
		Transformations: transformations,
		sections:        make(map[string]*Section),
	}
}

func (c *Config) addSection(name string, section *Section) {
	if _, exists := c.sections[name]; !exists {
		c.sectionOrder = append(c.sectionOrder, name)
	}
	c.sections[name] = section
}

// validate checks the structural shape of every rule.
func (c *Config) validate() error {
	if len(c.sections) == 0 {
		return errors.New("configuration has no sections")
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	for _, name := range c.sectionOrder {
		section := c.sections[name]
		for i := range section.Mappings {
			rule := &section.Mappings[i]
			if err := v.Struct(rule); err != nil {
				return fmt.Errorf("section %q mapping %d: %w", name, i, err)
			}
			if rule.Source == SourceSARIFResult && rule.SARIFPath == "" {
				return fmt.Errorf("section %q mapping %d (%s): sarif_result source requires sarif_path", name, i, rule.WizField)
			}
		}
	}

	return nil
}

// Sections returns section names in document order.
func (c *Config) Sections() []string {
	out := make([]string, len(c.sectionOrder))
	copy(out, c.sectionOrder)
	return out
}

// Rules returns the enabled rules of a section in document order. A
// disabled or unknown section yields no rules.
func (c *Config) Rules(section string) []Rule {
	s, ok := c.sections[section]
	if !ok || !s.Enabled {
		return nil
	}

	rules := make([]Rule, 0, len(s.Mappings))
	for _, r := range s.Mappings {
		if r.Enabled {
			rules = append(rules, r)
		}
	}
	return rules
}

// SetEnabled flips the enabled flag of the first rule in section whose
// WizField matches. Unknown sections and fields are a no-op. Not safe for
// use concurrently with conversions.
func (c *Config) SetEnabled(section, wizField string, enabled bool) {
	s, ok := c.sections[section]
	if !ok {
		return
	}
	for i := range s.Mappings {
		if s.Mappings[i].WizField == wizField {
			s.Mappings[i].Enabled = enabled
			return
		}
	}
}

// TransformParams returns the configured parameters for a named transform.
// Missing names yield zero parameters, which every transform treats as its
// documented defaults.
func (c *Config) TransformParams(name string) TransformParams {
	return c.Transformations[name]
}

// Summary renders a human-readable listing of every enabled rule.
func (c *Config) Summary() string {
	var sb strings.Builder

	for _, name := range c.sectionOrder {
		rules := c.Rules(name)
		if len(rules) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n[%s]\n", name)
		for _, rule := range rules {
			fmt.Fprintf(&sb, "  %s\n", rule.WizField)
			if rule.Source == SourceConstant {
				fmt.Fprintf(&sb, "    <- constant: %v\n", rule.Value)
			} else {
				fmt.Fprintf(&sb, "    <- %s: %s\n", rule.Source, rule.SARIFPath)
			}
			if rule.Description != "" {
				fmt.Fprintf(&sb, "    # %s\n", rule.Description)
			}
		}
	}

	return sb.String()
}
