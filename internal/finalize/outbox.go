package finalize

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ezeatin-backend/internal/onboarding"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const outboxSchema = `
CREATE TABLE IF NOT EXISTS outbox (
	owner_id   TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	attempts   INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Outbox is a local sqlite cache of answer payloads whose profile save
// failed. It keeps at most one payload per owner, always the latest.
type Outbox struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

type OutboxEntry struct {
	OwnerID   string
	Answers   map[string]onboarding.Answer
	Attempts  int
	LastError string
	UpdatedAt int64
}

func OpenOutbox(path string, log *zap.Logger) (*Outbox, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(outboxSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create outbox schema: %w", err)
	}
	return &Outbox{db: db, log: log, now: time.Now}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Put stores answers for owner, replacing any pending payload.
func (o *Outbox) Put(ctx context.Context, ownerID string, answers map[string]onboarding.Answer) error {
	payload, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	now := o.now().UnixNano()
	_, err = o.db.ExecContext(ctx, `
		INSERT INTO outbox (owner_id, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		ownerID, string(payload), now, now)
	if err != nil {
		return fmt.Errorf("store payload: %w", err)
	}
	return nil
}

// Remove drops owner's pending payload, if any.
func (o *Outbox) Remove(ctx context.Context, ownerID string) error {
	if _, err := o.db.ExecContext(ctx, `DELETE FROM outbox WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("remove payload: %w", err)
	}
	return nil
}

func (o *Outbox) Pending(ctx context.Context) ([]OutboxEntry, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT owner_id, payload, attempts, last_error, updated_at
		FROM outbox ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var (
			e       OutboxEntry
			payload string
		)
		if err := rows.Scan(&e.OwnerID, &payload, &e.Attempts, &e.LastError, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Answers); err != nil {
			return nil, fmt.Errorf("decode payload for %s: %w", e.OwnerID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Replay re-submits every pending payload through f. Entries are removed
// only if they were not replaced while the submit was running.
func (o *Outbox) Replay(ctx context.Context, f onboarding.Finalizer) (int, error) {
	entries, err := o.Pending(ctx)
	if err != nil {
		return 0, err
	}

	replayed := 0
	var errs []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return replayed, errors.Join(append(errs, err)...)
		}
		if err := f.Submit(ctx, e.OwnerID, e.Answers); err != nil {
			errs = append(errs, fmt.Errorf("replay %s: %w", e.OwnerID, err))
			if _, uerr := o.db.ExecContext(ctx,
				`UPDATE outbox SET attempts = attempts + 1, last_error = ? WHERE owner_id = ?`,
				err.Error(), e.OwnerID); uerr != nil {
				errs = append(errs, uerr)
			}
			continue
		}
		if _, err := o.db.ExecContext(ctx,
			`DELETE FROM outbox WHERE owner_id = ? AND updated_at = ?`,
			e.OwnerID, e.UpdatedAt); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", e.OwnerID, err))
			continue
		}
		replayed++
		o.log.Info("Replayed queued profile", zap.String("owner_id", e.OwnerID), zap.Int("attempts", e.Attempts+1))
	}
	return replayed, errors.Join(errs...)
}

// FallbackFinalizer queues the payload in the outbox when the primary
// finalizer fails, and reports success so the user is not blocked.
// Cancellations and invalid owners are still returned as failures. A
// successful primary save supersedes anything queued for the owner.
type FallbackFinalizer struct {
	primary onboarding.Finalizer
	outbox  *Outbox
	log     *zap.Logger
}

var _ onboarding.Finalizer = (*FallbackFinalizer)(nil)

func NewFallbackFinalizer(primary onboarding.Finalizer, outbox *Outbox, log *zap.Logger) *FallbackFinalizer {
	return &FallbackFinalizer{primary: primary, outbox: outbox, log: log}
}

func (f *FallbackFinalizer) Submit(ctx context.Context, ownerID string, answers map[string]onboarding.Answer) error {
	err := f.primary.Submit(ctx, ownerID, answers)
	if err == nil {
		if rerr := f.outbox.Remove(context.WithoutCancel(ctx), ownerID); rerr != nil {
			f.log.Error("Failed to drop superseded queued profile",
				zap.String("owner_id", ownerID),
				zap.Error(rerr))
			return rerr
		}
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrInvalidOwner) {
		return err
	}
	if qerr := f.outbox.Put(ctx, ownerID, answers); qerr != nil {
		return errors.Join(err, qerr)
	}
	f.log.Warn("Profile save failed, queued locally",
		zap.String("owner_id", ownerID),
		zap.Error(err))
	return nil
}
