package onboarding

import (
	"fmt"
	"strings"
)

// Plan is the onboarding tier chosen by the user.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

// Plans lists every tier in ascending order.
var Plans = []Plan{PlanFree, PlanBasic, PlanPremium}

func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPremium:
		return true
	}
	return false
}

func (p Plan) String() string { return string(p) }

// ParsePlan normalizes user input ("  Premium ") into a Plan.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown plan %q", s)
	}
	return p, nil
}
