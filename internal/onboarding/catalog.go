package onboarding

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// PlanCatalog supplies the ordered question set for a plan. Implementations
// must be deterministic.
type PlanCatalog interface {
	QuestionsFor(plan Plan) ([]Question, error)
}

// CatalogDefinition is the on-disk shape of a catalog. Free uses Base,
// Basic uses Base followed by Additional, Premium uses its own list.
type CatalogDefinition struct {
	Base       []Question `yaml:"base"`
	Additional []Question `yaml:"additional"`
	Premium    []Question `yaml:"premium"`
}

type StaticCatalog struct {
	sets map[Plan][]Question
}

func NewStaticCatalog(def CatalogDefinition) (*StaticCatalog, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &StaticCatalog{sets: def.sets()}, nil
}

func (c *StaticCatalog) QuestionsFor(plan Plan) ([]Question, error) {
	set, ok := c.sets[plan]
	if !ok {
		return nil, fmt.Errorf("unknown plan %q", plan)
	}
	out := make([]Question, len(set))
	for i, q := range set {
		out[i] = q.clone()
	}
	return out, nil
}

func (d CatalogDefinition) sets() map[Plan][]Question {
	basic := make([]Question, 0, len(d.Base)+len(d.Additional))
	basic = append(basic, d.Base...)
	basic = append(basic, d.Additional...)
	return map[Plan][]Question{
		PlanFree:    d.Base,
		PlanBasic:   basic,
		PlanPremium: d.Premium,
	}
}

// Validate checks every plan's question set for structural problems.
func (d CatalogDefinition) Validate() error {
	var errs []error
	sets := d.sets()
	for _, plan := range Plans {
		set := sets[plan]
		if len(set) == 0 {
			errs = append(errs, fmt.Errorf("%s: no questions", plan))
			continue
		}
		seen := make(map[string]bool, len(set))
		for i, q := range set {
			if err := validateQuestion(q, seen); err != nil {
				errs = append(errs, fmt.Errorf("%s: question %d: %w", plan, i, err))
			}
			seen[q.ID] = true
		}
	}
	return errors.Join(errs...)
}

// validateQuestion checks q given the ids that precede it in the same set.
func validateQuestion(q Question, before map[string]bool) error {
	if q.ID == "" {
		return errors.New("missing id")
	}
	if before[q.ID] {
		return fmt.Errorf("duplicate id %q", q.ID)
	}
	if !q.Kind.Valid() {
		return fmt.Errorf("%s: unknown kind %q", q.ID, q.Kind)
	}
	switch q.Kind {
	case KindSingleSelect, KindMultiSelect:
		if len(q.Options) == 0 {
			return fmt.Errorf("%s: %s question needs options", q.ID, q.Kind)
		}
	case KindConditional:
		if q.Prerequisite == "" {
			return fmt.Errorf("%s: conditional question needs a prerequisite", q.ID)
		}
		if !before[q.Prerequisite] {
			return fmt.Errorf("%s: prerequisite %q must come earlier", q.ID, q.Prerequisite)
		}
	case KindText:
		if q.Pattern != "" {
			if _, err := regexp.Compile(q.Pattern); err != nil {
				return fmt.Errorf("%s: bad pattern: %w", q.ID, err)
			}
		}
	}
	return nil
}

// LoadCatalogFile reads a YAML catalog definition from path.
func LoadCatalogFile(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var def CatalogDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	cat, err := NewStaticCatalog(def)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}
