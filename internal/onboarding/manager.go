package onboarding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const settleTimeout = 5 * time.Second

var errInterrupted = errors.New("completion interrupted before the finalizer reported back")

// Manager serializes operations per session and persists every transition.
// Different sessions are processed in parallel.
type Manager struct {
	store           Store
	machine         *Machine
	finalizer       Finalizer
	log             *zap.Logger
	finalizeTimeout time.Duration
	completingGrace time.Duration
	newID           func() string
	now             func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sem  *semaphore.Weighted
	refs int
}

type Option func(*Manager)

// WithFinalizeTimeout bounds each finalizer call. Zero means no bound
// beyond the caller's context.
func WithFinalizeTimeout(d time.Duration) Option {
	return func(m *Manager) { m.finalizeTimeout = d }
}

// WithCompletingGrace sets how long a session persisted as Completing is
// presumed to have a finalizer running elsewhere. Older Completing sessions
// are settled to Failed on load; younger ones are returned unchanged.
func WithCompletingGrace(d time.Duration) Option {
	return func(m *Manager) { m.completingGrace = d }
}

func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
		m.machine.now = now
	}
}

func NewManager(store Store, catalog PlanCatalog, finalizer Finalizer, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		store:     store,
		machine:   NewMachine(catalog),
		finalizer: finalizer,
		log:       log,
		newID:     uuid.NewString,
		now:       time.Now,
		locks:     make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire takes the exclusive lock for key. The returned func releases it.
func (m *Manager) acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &sessionLock{sem: semaphore.NewWeighted(1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		m.drop(key, l)
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.sem.Release(1)
			m.drop(key, l)
		})
	}, nil
}

func (m *Manager) drop(key string, l *sessionLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// load fetches a session the caller owns. It must be called with the
// session lock held. A session that has been Completing for longer than the
// grace period has no finalizer in flight and is settled to Failed.
func (m *Manager) load(ctx context.Context, ownerID, id string) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}
	if s.Status == StatusCompleting && m.now().Sub(s.UpdatedAt) >= m.completingGrace {
		settled, _ := m.machine.FinishCompletion(s, errInterrupted)
		if err := m.store.Save(ctx, settled); err != nil {
			return nil, fmt.Errorf("settle interrupted session: %w", err)
		}
		m.log.Warn("Settled interrupted completion",
			zap.String("session_id", id),
			zap.Int("attempts", settled.Attempts))
		return settled, nil
	}
	return s, nil
}

// Start returns the owner's current session, or creates a new one when the
// owner has none. A completed session is returned as is.
func (m *Manager) Start(ctx context.Context, ownerID string) (*Session, error) {
	release, err := m.acquire(ctx, "owner:"+ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := m.store.FindCurrentByOwner(ctx, ownerID)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, ErrSessionNotFound):
		return nil, fmt.Errorf("find current session: %w", err)
	}

	s := NewSession(m.newID(), ownerID, m.now())
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	m.log.Info("Onboarding session started", zap.String("session_id", s.ID), zap.String("owner_id", ownerID))
	return s, nil
}

func (m *Manager) Get(ctx context.Context, ownerID, id string) (*Session, error) {
	release, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	return m.load(ctx, ownerID, id)
}

func (m *Manager) ChoosePlan(ctx context.Context, ownerID, id string, plan Plan) (*Session, error) {
	return m.mutate(ctx, ownerID, id, func(s *Session) (*Session, error) {
		return m.machine.ChoosePlan(s, plan)
	})
}

func (m *Manager) Abandon(ctx context.Context, ownerID, id string) (*Session, error) {
	return m.mutate(ctx, ownerID, id, m.machine.Abandon)
}

// Answer records the answer to the current question. When questionID is
// non-empty it must name the current question, which rejects answers
// posted from a stale client view.
func (m *Manager) Answer(ctx context.Context, ownerID, id, questionID string, answer Answer) (*Session, error) {
	return m.mutate(ctx, ownerID, id, func(s *Session) (*Session, error) {
		if q, ok := s.CurrentQuestion(); ok && questionID != "" && q.ID != questionID {
			return nil, &ValidationError{
				QuestionID: questionID,
				Rule:       RuleStaleQuestion,
				Detail:     fmt.Sprintf("current question is %q", q.ID),
			}
		}
		return m.machine.AnswerCurrentQuestion(s, answer)
	})
}

func (m *Manager) mutate(ctx context.Context, ownerID, id string, op func(*Session) (*Session, error)) (*Session, error) {
	release, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := m.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	next, err := op(s)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return next, nil
}

// Complete submits the session's answers through the finalizer. If ctx is
// cancelled or the finalize timeout expires first, the session is settled
// to Failed right away; the session lock stays held until the abandoned
// finalizer call returns so a retry never overlaps it.
func (m *Manager) Complete(ctx context.Context, ownerID, id string) (*Session, error) {
	release, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	handedOff := false
	defer func() {
		if !handedOff {
			release()
		}
	}()

	s, err := m.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	completing, payload, err := m.machine.BeginCompletion(s)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, completing); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if m.finalizeTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, m.finalizeTimeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	done := make(chan error, 1)
	go func() {
		done <- m.finalizer.Submit(callCtx, ownerID, payload)
	}()

	var submitErr error
	abandoned := false
	select {
	case submitErr = <-done:
	case <-callCtx.Done():
		submitErr = callCtx.Err()
		abandoned = true
	}

	settled, finalizeErr := m.machine.FinishCompletion(completing, submitErr)
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer saveCancel()
	saveErr := m.store.Save(saveCtx, settled)

	// The settled state is stored before the lock can be released.
	if abandoned {
		handedOff = true
		go func() {
			<-done
			cancel()
			release()
		}()
	} else {
		cancel()
	}

	if saveErr != nil {
		m.log.Error("Failed to persist completion result",
			zap.String("session_id", id),
			zap.String("status", string(settled.Status)),
			zap.Error(saveErr))
		return nil, fmt.Errorf("save session: %w", saveErr)
	}

	if finalizeErr != nil {
		m.log.Warn("Onboarding completion failed",
			zap.String("session_id", id),
			zap.Int("attempts", settled.Attempts),
			zap.Error(submitErr))
		return settled, finalizeErr
	}
	m.log.Info("Onboarding completed",
		zap.String("session_id", id),
		zap.String("plan", string(settled.Plan)),
		zap.Int("attempts", settled.Attempts))
	return settled, nil
}
