// Package ingestlock serializes graph rebuilds and ingestion batches across
// processes through a Postgres lease. The server and the worker both mutate
// the graph snapshot; the lease guarantees only one of them rebuilds at a
// time even across restarts.
package ingestlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	// ErrBusy is returned when the lease is held by another process.
	ErrBusy = errors.New("ingest lock busy")
	// ErrLost signals that a held lease expired and was taken over.
	ErrLost = errors.New("ingest lock lost")
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgxv5.Row
}

// Guard hands out leases on named locks.
type Guard struct {
	db dbConn
}

// Options tunes a lease. TTL defaults to 5 minutes, renewal to half the
// TTL. Without Wait, a busy lock returns ErrBusy immediately.
type Options struct {
	TTL          time.Duration
	RenewEvery   time.Duration
	Wait         bool
	WaitInterval time.Duration
}

// New creates a Guard over an existing connection pool and ensures the lock
// table exists.
func New(ctx context.Context, db dbConn) (*Guard, error) {
	g := &Guard{db: db}
	_, err := g.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ingest_locks (
			lock_key TEXT PRIMARY KEY,
			locked_by TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing lock table: %w", err)
	}
	return g, nil
}

// WithLock runs fn while holding the named lease. The context passed to fn
// is canceled if the lease is lost mid-run, so long operations can abort
// instead of racing the new holder.
func (g *Guard) WithLock(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := g.acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer lease.release()
	return fn(lease.ctx)
}

type lease struct {
	guard *Guard
	key   string
	token string
	ttlMs int64

	ctx    context.Context
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

func (g *Guard) acquire(ctx context.Context, key string, opts Options) (*lease, error) {
	if key == "" {
		return nil, errors.New("ingest lock key is empty")
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.RenewEvery <= 0 || opts.RenewEvery >= opts.TTL {
		opts.RenewEvery = max(opts.TTL/2, time.Second)
	}
	if opts.WaitInterval <= 0 {
		opts.WaitInterval = 250 * time.Millisecond
	}

	token, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	ttlMs := opts.TTL.Milliseconds()

	for {
		ok, err := g.tryAcquire(ctx, key, token, ttlMs)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		timer := time.NewTimer(opts.WaitInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &lease{
		guard:  g,
		key:    key,
		token:  token,
		ttlMs:  ttlMs,
		ctx:    leaseCtx,
		cancel: cancel,
		stopCh: make(chan struct{}),
	}
	go l.renewLoop(opts.RenewEvery)
	return l, nil
}

func (g *Guard) tryAcquire(ctx context.Context, key, token string, ttlMs int64) (bool, error) {
	var returnedKey string
	err := g.db.QueryRow(ctx, `
		INSERT INTO ingest_locks (lock_key, locked_by, expires_at)
		VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
		ON CONFLICT (lock_key) DO UPDATE
		SET locked_by = EXCLUDED.locked_by,
		    expires_at = EXCLUDED.expires_at
		WHERE ingest_locks.expires_at < now()
		   OR ingest_locks.locked_by = EXCLUDED.locked_by
		RETURNING lock_key
	`, key, token, ttlMs).Scan(&returnedKey)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *lease) release() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.cancel(context.Canceled)
	})
	_, _ = l.guard.db.Exec(context.Background(), `
		DELETE FROM ingest_locks WHERE lock_key = $1 AND locked_by = $2
	`, l.key, l.token)
}

func (l *lease) renewLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-l.ctx.Done():
			return
		case <-t.C:
			if err := l.renewOnce(); err != nil {
				l.cancel(err)
				return
			}
		}
	}
}

func (l *lease) renewOnce() error {
	renewCtx, cancel := context.WithTimeout(l.ctx, 15*time.Second)
	defer cancel()

	var returnedKey string
	err := l.guard.db.QueryRow(renewCtx, `
		UPDATE ingest_locks
		SET expires_at = now() + ($3::bigint * interval '1 millisecond')
		WHERE lock_key = $1 AND locked_by = $2
		RETURNING lock_key
	`, l.key, l.token, l.ttlMs).Scan(&returnedKey)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return ErrLost
	}
	return err
}
