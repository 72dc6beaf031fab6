package domain

// Condition matches a row whose cell at Column equals Equals exactly.
// A column past the end of the row reads as "".
type Condition struct {
	Column int    `yaml:"column" json:"column"`
	Equals string `yaml:"equals" json:"equals"`
}

// ExclusionRule removes rows that satisfy every condition.
type ExclusionRule struct {
	Name string      `yaml:"name" json:"name"`
	When []Condition `yaml:"when" json:"when"`
}

// Matches reports whether row satisfies all conditions of the rule.
// A rule with no conditions matches nothing.
func (r ExclusionRule) Matches(row RawRow) bool {
	if len(r.When) == 0 {
		return false
	}
	for _, c := range r.When {
		if cell(row, c.Column) != c.Equals {
			return false
		}
	}
	return true
}

// DistrictRules configures the district feed.
type DistrictRules struct {
	Exclude []ExclusionRule `yaml:"exclude" json:"exclude"`
}

// StateRules configures the state feed.
type StateRules struct {
	Exclude []ExclusionRule `yaml:"exclude" json:"exclude"`
	// Nation is the State value of the whole-country rows.
	Nation string `yaml:"nation" json:"nation"`
	// KnownStates, when non-empty, restricts state series to these names.
	KnownStates []string `yaml:"known_states" json:"known_states"`
}

// Rules is the per-feed configuration of the core transformation.
type Rules struct {
	District DistrictRules `yaml:"district" json:"district"`
	State    StateRules    `yaml:"state" json:"state"`
}

// DefaultNation is the whole-country sentinel of the state feed.
const DefaultNation = "India"

func cell(row RawRow, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
