package onboarding

import (
	"context"
	"fmt"
	"time"
)

// Machine applies onboarding transitions. Every operation works on a clone
// of the given session: on error the caller's value is left untouched, on
// success the updated clone is returned.
type Machine struct {
	catalog PlanCatalog
	now     func() time.Time
}

func NewMachine(catalog PlanCatalog) *Machine {
	return &Machine{catalog: catalog, now: time.Now}
}

// ChoosePlan selects the plan and loads its question set. Plans can only be
// chosen once per session; changing plans requires a fresh session.
func (m *Machine) ChoosePlan(s *Session, plan Plan) (*Session, error) {
	if s.Status != StatusNotStarted || !canTransition(s.Status, StatusPlanChosen) {
		return nil, invalid("choose plan", s.Status)
	}
	if !plan.Valid() {
		return nil, &ValidationError{QuestionID: "plan", Rule: RuleOption, Detail: fmt.Sprintf("unknown plan %q", plan)}
	}
	questions, err := m.catalog.QuestionsFor(plan)
	if err != nil {
		return nil, fmt.Errorf("load questions for %s: %w", plan, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("plan %s has no questions", plan)
	}

	next := s.Clone()
	next.Plan = plan
	next.Questions = questions
	next.CurrentIndex = 0
	next.Answers = map[string]Answer{}
	next.ReadyToComplete = false
	next.Status = StatusPlanChosen

	// PlanChosen is transient: answering question 0 starts immediately.
	if !canTransition(next.Status, StatusInProgress) {
		return nil, invalid("start questions", next.Status)
	}
	next.Status = StatusInProgress
	next.UpdatedAt = m.now()
	return next, nil
}

// AnswerCurrentQuestion validates and records the answer to the current
// question. It auto-advances except on the last question, where the session
// moves to ReadyToComplete and waits for an explicit CompleteOnboarding.
func (m *Machine) AnswerCurrentQuestion(s *Session, answer Answer) (*Session, error) {
	if s.Status != StatusInProgress {
		return nil, invalid("answer question", s.Status)
	}
	q, ok := s.CurrentQuestion()
	if !ok {
		return nil, fmt.Errorf("session %s: current index %d out of range", s.ID, s.CurrentIndex)
	}
	answer = answer.normalize()
	if err := q.Validate(answer, s.Answers); err != nil {
		return nil, err
	}

	next := s.Clone()
	next.Answers[q.ID] = answer
	if next.CurrentIndex < next.lastIndex() {
		next.CurrentIndex++
	} else {
		next.ReadyToComplete = true
		next.Status = StatusReadyToComplete
	}
	next.UpdatedAt = m.now()
	return next, nil
}

// BeginCompletion moves a ReadyToComplete (or Failed, via the retry edge)
// session to Completing and returns the payload to submit.
func (m *Machine) BeginCompletion(s *Session) (*Session, map[string]Answer, error) {
	next := s.Clone()
	if next.Status == StatusFailed {
		next.Status = StatusReadyToComplete
		next.ReadyToComplete = true
	}
	if next.Status != StatusReadyToComplete || !canTransition(next.Status, StatusCompleting) {
		return nil, nil, invalid("complete onboarding", s.Status)
	}
	next.Status = StatusCompleting
	next.Completing = true
	next.Attempts++
	next.UpdatedAt = m.now()
	return next, cloneAnswers(next.Answers), nil
}

// FinishCompletion settles a Completing session with the finalizer result.
// A non-nil err leaves the session Failed and retryable; the returned error
// is a *FinalizeError.
func (m *Machine) FinishCompletion(s *Session, err error) (*Session, error) {
	if s.Status != StatusCompleting {
		return nil, invalid("finish completion", s.Status)
	}
	next := s.Clone()
	next.Completing = false
	next.UpdatedAt = m.now()
	if err != nil {
		next.Status = StatusFailed
		next.LastError = err.Error()
		return next, &FinalizeError{Err: err}
	}
	now := next.UpdatedAt
	next.Status = StatusCompleted
	next.LastError = ""
	next.CompletedAt = &now
	return next, nil
}

// Abandon archives an unfinished session. Completing sessions must settle
// first and completed ones are immutable.
func (m *Machine) Abandon(s *Session) (*Session, error) {
	if !canTransition(s.Status, StatusAbandoned) {
		return nil, invalid("abandon", s.Status)
	}
	next := s.Clone()
	next.Status = StatusAbandoned
	next.ReadyToComplete = false
	next.UpdatedAt = m.now()
	return next, nil
}

// CompleteOnboarding submits the full answer map through f and settles the
// session. The returned session is non-nil whenever the completion was
// attempted, including when the finalizer failed.
func (m *Machine) CompleteOnboarding(ctx context.Context, s *Session, f Finalizer) (*Session, error) {
	completing, payload, err := m.BeginCompletion(s)
	if err != nil {
		return nil, err
	}
	submitErr := f.Submit(ctx, completing.OwnerID, payload)
	if submitErr == nil && ctx.Err() != nil {
		submitErr = ctx.Err()
	}
	return m.FinishCompletion(completing, submitErr)
}
