package rules

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/relscope/relscope/internal/core/association"
	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a YAML rules file and returns validated Rules.
func LoadFromFile(filePath string) (*Rules, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing rules YAML: %w", err)
	}

	if err := validate(&r); err != nil {
		return nil, fmt.Errorf("validating rules: %w", err)
	}

	return &r, nil
}

func validate(r *Rules) error {
	for i, s := range r.Naming.IDSuffixes {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("naming.id_suffixes[%d] is empty", i)
		}
	}
	for plural, single := range r.Naming.Irregular {
		if plural == "" || single == "" {
			return fmt.Errorf("naming.irregular contains an empty entry (%q: %q)", plural, single)
		}
	}
	for abbr, full := range r.Naming.Abbreviations {
		if abbr == "" || full == "" {
			return fmt.Errorf("naming.abbreviations contains an empty entry (%q: %q)", abbr, full)
		}
	}

	if _, err := association.NewNormalizer(r.namingRules()); err != nil {
		return fmt.Errorf("naming: %w", err)
	}

	for _, name := range r.Inference.Disable {
		if _, err := association.ParseKind(name); err != nil {
			return fmt.Errorf("inference.disable: %w", err)
		}
	}
	for _, pattern := range r.Inference.ExcludeColumns {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("inference.exclude_columns: invalid pattern %q: %w", pattern, err)
		}
	}
	if r.Inference.ExtensionGroupLimit < 0 {
		return fmt.Errorf("inference.extension_group_limit must not be negative, got %d", r.Inference.ExtensionGroupLimit)
	}

	for key, tc := range r.Context.Tables {
		if key == "" {
			return fmt.Errorf("context.tables contains an empty key")
		}
		for col := range tc.Columns {
			if col == "" {
				return fmt.Errorf("context.tables[%q].columns contains an empty key", key)
			}
		}
	}
	return nil
}
