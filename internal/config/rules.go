package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// LoadRules reads feed rules from path, or the built-in rules when path is empty.
func LoadRules(path string) (domain.Rules, error) {
	if path == "" {
		return ParseRules(defaultRules)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Rules{}, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rules document. Unknown keys are
// rejected so a typo cannot silently disable an exclusion.
func ParseRules(data []byte) (domain.Rules, error) {
	var rules domain.Rules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil {
		return domain.Rules{}, fmt.Errorf("parse rules: %w", err)
	}

	if rules.State.Nation == "" {
		rules.State.Nation = domain.DefaultNation
	}
	for _, set := range [][]domain.ExclusionRule{rules.District.Exclude, rules.State.Exclude} {
		for _, r := range set {
			if len(r.When) == 0 {
				return domain.Rules{}, fmt.Errorf("rule %q has no conditions", r.Name)
			}
			for _, c := range r.When {
				if c.Column < 0 {
					return domain.Rules{}, fmt.Errorf("rule %q: negative column %d", r.Name, c.Column)
				}
			}
		}
	}
	return rules, nil
}
