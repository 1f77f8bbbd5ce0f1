package onboarding

import (
	"slices"
	"time"
)

type Status string

const (
	StatusNotStarted      Status = "not_started"
	StatusPlanChosen      Status = "plan_chosen"
	StatusInProgress      Status = "in_progress"
	StatusReadyToComplete Status = "ready_to_complete"
	StatusCompleting      Status = "completing"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	// StatusAbandoned archives a session the user walked away from, e.g. to
	// pick a different plan in a fresh session.
	StatusAbandoned Status = "abandoned"
)

// transitions lists every status change the machine is allowed to make.
var transitions = map[Status][]Status{
	StatusNotStarted:      {StatusPlanChosen, StatusAbandoned},
	StatusPlanChosen:      {StatusInProgress},
	StatusInProgress:      {StatusReadyToComplete, StatusAbandoned},
	StatusReadyToComplete: {StatusCompleting, StatusAbandoned},
	StatusCompleting:      {StatusCompleted, StatusFailed},
	StatusFailed:          {StatusReadyToComplete, StatusAbandoned},
}

func canTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Current reports whether a session in this status still counts as the
// owner's onboarding. Only an abandoned session is superseded; a completed
// one stays current so the owner cannot onboard twice.
func (s Status) Current() bool {
	return s != StatusAbandoned
}

// Session is the onboarding progress of one newly registered user.
type Session struct {
	ID              string            `bson:"_id" json:"id"`
	OwnerID         string            `bson:"owner_id" json:"owner_id"`
	Plan            Plan              `bson:"plan,omitempty" json:"plan,omitempty"`
	Questions       []Question        `bson:"questions" json:"questions"`
	CurrentIndex    int               `bson:"current_index" json:"current_index"`
	Answers         map[string]Answer `bson:"answers" json:"answers"`
	ReadyToComplete bool              `bson:"ready_to_complete" json:"ready_to_complete"`
	Completing      bool              `bson:"completing" json:"completing"`
	Status          Status            `bson:"status" json:"status"`
	Attempts        int               `bson:"attempts" json:"attempts"`
	LastError       string            `bson:"last_error,omitempty" json:"last_error,omitempty"`
	CreatedAt       time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `bson:"updated_at" json:"updated_at"`
	CompletedAt     *time.Time        `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	Version         int64             `bson:"version" json:"version"`
}

func NewSession(id, ownerID string, now time.Time) *Session {
	return &Session{
		ID:        id,
		OwnerID:   ownerID,
		Questions: []Question{},
		Answers:   map[string]Answer{},
		Status:    StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy; machine operations mutate clones only.
func (s *Session) Clone() *Session {
	c := *s
	c.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		c.Questions[i] = q.clone()
	}
	c.Answers = cloneAnswers(s.Answers)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneAnswers(in map[string]Answer) map[string]Answer {
	out := make(map[string]Answer, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}

// CurrentQuestion returns the question awaiting an answer, if any.
func (s *Session) CurrentQuestion() (Question, bool) {
	if s.Status != StatusInProgress || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

func (s *Session) lastIndex() int { return len(s.Questions) - 1 }

type Progress struct {
	Current  int     `json:"current"`
	Total    int     `json:"total"`
	Answered int     `json:"answered"`
	Percent  float64 `json:"percent"`
}

func (s *Session) Progress() Progress {
	p := Progress{Current: s.CurrentIndex, Total: len(s.Questions)}
	for _, q := range s.Questions {
		if _, ok := s.Answers[q.ID]; ok {
			p.Answered++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Answered) / float64(p.Total) * 100
	}
	return p
}
