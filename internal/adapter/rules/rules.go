package rules

import (
	"fmt"

	"github.com/relscope/relscope/internal/core/association"
	"gopkg.in/yaml.v3"
)

// Rules holds operator-controlled configuration loaded from a YAML file:
// naming conventions, inference tuning and documentation context.
type Rules struct {
	Naming    NamingConfig    `yaml:"naming"`
	Inference InferenceConfig `yaml:"inference"`
	Context   ContextConfig   `yaml:"context"`
}

type NamingConfig struct {
	IDSuffixes    []string          `yaml:"id_suffixes"`
	Irregular     map[string]string `yaml:"irregular"`
	Abbreviations map[string]string `yaml:"abbreviations"`
}

type InferenceConfig struct {
	// Disable lists strategy names that never propose.
	Disable             []string `yaml:"disable"`
	ExcludeColumns      []string `yaml:"exclude_columns"`
	ExtensionGroupLimit int      `yaml:"extension_group_limit"`
	TypeCheck           bool     `yaml:"type_check"`
}

// ContextConfig maps fully-qualified table names (schema.table) to
// business descriptions that are merged into the catalog.
type ContextConfig struct {
	Tables map[string]TableContext `yaml:"tables"`
}

type TableContext struct {
	Description string                   `yaml:"description"`
	Columns     map[string]ColumnContext `yaml:"columns"`
}

type ColumnContext struct {
	Description string `yaml:"description"`
}

// UnmarshalYAML accepts a column description either as a plain string or as
// a mapping with a description key.
//
//	columns:
//	  email: "Login address"
//	  customer_id:
//	    description: "Buyer reference"
func (cc *ColumnContext) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		cc.Description = value.Value
		return nil
	}
	type alias ColumnContext
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding column context: %w", err)
	}
	*cc = ColumnContext(a)
	return nil
}

func (r *Rules) namingRules() association.NamingRules {
	return association.NamingRules{
		IDSuffixes:    r.Naming.IDSuffixes,
		Irregular:     r.Naming.Irregular,
		Abbreviations: r.Naming.Abbreviations,
	}
}

// Options converts the naming and inference sections into analyzer options.
// typesCompatible is only installed when type_check is enabled.
func (r *Rules) Options(typesCompatible func(a, b string) bool) (association.Options, error) {
	opts := association.Options{
		Naming:              r.namingRules(),
		ExcludeColumns:      r.Inference.ExcludeColumns,
		ExtensionGroupLimit: r.Inference.ExtensionGroupLimit,
	}
	for _, name := range r.Inference.Disable {
		k, err := association.ParseKind(name)
		if err != nil {
			return association.Options{}, fmt.Errorf("inference.disable: %w", err)
		}
		opts.Disabled = append(opts.Disabled, k)
	}
	if r.Inference.TypeCheck {
		opts.TypesCompatible = typesCompatible
	}
	return opts, nil
}
