package onboarding

import (
	"regexp"
	"slices"
	"strings"
)

type QuestionKind string

const (
	KindSingleSelect QuestionKind = "single-select"
	KindMultiSelect  QuestionKind = "multi-select"
	// KindConditional questions only become answerable once the field named
	// by Prerequisite holds a non-empty answer.
	KindConditional QuestionKind = "conditional"
	// KindText is a single free-form value, optionally constrained by Pattern.
	KindText QuestionKind = "text"
)

func (k QuestionKind) Valid() bool {
	switch k {
	case KindSingleSelect, KindMultiSelect, KindConditional, KindText:
		return true
	}
	return false
}

type Question struct {
	ID           string       `bson:"id" json:"id" yaml:"id"`
	Prompt       string       `bson:"prompt" json:"prompt" yaml:"prompt"`
	Kind         QuestionKind `bson:"kind" json:"kind" yaml:"kind"`
	Options      []string     `bson:"options,omitempty" json:"options,omitempty" yaml:"options,omitempty"`
	Prerequisite string       `bson:"prerequisite,omitempty" json:"prerequisite,omitempty" yaml:"prerequisite,omitempty"`
	Pattern      string       `bson:"pattern,omitempty" json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Answer holds the selected (or entered) values for one question.
type Answer []string

func (a Answer) Empty() bool {
	for _, v := range a {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (q Question) clone() Question {
	q.Options = slices.Clone(q.Options)
	return q
}

func (q Question) hasOption(v string) bool {
	return slices.Contains(q.Options, v)
}

// Validate checks answer against the question's kind. answers is the map
// collected so far and is only consulted for conditional prerequisites.
func (q Question) Validate(answer Answer, answers map[string]Answer) error {
	switch q.Kind {
	case KindSingleSelect:
		if answer.Empty() {
			return invalidAnswer(q, RuleRequired, "a selection is required")
		}
		if len(answer) != 1 {
			return invalidAnswer(q, RuleSingle, "exactly one option must be selected, got %d", len(answer))
		}
		return q.checkOptions(answer)

	case KindMultiSelect:
		if answer.Empty() {
			return invalidAnswer(q, RuleRequired, "select at least one option")
		}
		return q.checkOptions(answer)

	case KindConditional:
		if answers[q.Prerequisite].Empty() {
			return invalidAnswer(q, RulePrerequisite, "%s must be answered first", q.Prerequisite)
		}
		if answer.Empty() {
			return invalidAnswer(q, RuleRequired, "a selection is required")
		}
		// Options may be resolved at runtime from the prerequisite, in
		// which case the catalog leaves them empty.
		if len(q.Options) > 0 {
			return q.checkOptions(answer)
		}
		return q.checkValues(answer)

	case KindText:
		if answer.Empty() {
			return invalidAnswer(q, RuleRequired, "a value is required")
		}
		if len(answer) != 1 {
			return invalidAnswer(q, RuleSingle, "exactly one value expected, got %d", len(answer))
		}
		if q.Pattern != "" {
			re, err := regexp.Compile(q.Pattern)
			if err != nil {
				return invalidAnswer(q, RulePattern, "question pattern is invalid: %v", err)
			}
			if !re.MatchString(strings.TrimSpace(answer[0])) {
				return invalidAnswer(q, RulePattern, "%q is not a valid value", answer[0])
			}
		}
		return nil
	}
	return invalidAnswer(q, RuleOption, "unsupported question kind %q", q.Kind)
}

func (q Question) checkOptions(answer Answer) error {
	seen := make(map[string]struct{}, len(answer))
	for _, v := range answer {
		if !q.hasOption(v) {
			return invalidAnswer(q, RuleOption, "%q is not one of the offered options", v)
		}
		if _, dup := seen[v]; dup {
			return invalidAnswer(q, RuleOption, "%q selected more than once", v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// checkValues rejects blank or repeated free-form values.
func (q Question) checkValues(answer Answer) error {
	seen := make(map[string]struct{}, len(answer))
	for _, v := range answer {
		if strings.TrimSpace(v) == "" {
			return invalidAnswer(q, RuleRequired, "blank values are not allowed")
		}
		if _, dup := seen[v]; dup {
			return invalidAnswer(q, RuleOption, "%q selected more than once", v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// normalize trims whitespace so stored answers compare equal across retries.
func (a Answer) normalize() Answer {
	out := make(Answer, 0, len(a))
	for _, v := range a {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
