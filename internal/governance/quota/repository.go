package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists quota pools in the assistant_quota_pools table.
// Atomicity of CheckAndConsume comes from SELECT ... FOR UPDATE inside a
// transaction: the row lock serializes concurrent consumes per (owner, kind).
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) CheckAndConsume(ctx context.Context, ownerID string, kind PoolKind, limit int, window time.Duration) (Decision, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("beginning quota tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	_, err = tx.Exec(ctx,
		`INSERT INTO assistant_quota_pools (owner_id, pool_kind, pool_limit, used, window_start, window_end)
		 VALUES ($1, $2, $3, 0, $4, $5)
		 ON CONFLICT (owner_id, pool_kind) DO NOTHING`,
		ownerID, kind, limit, now, now.Add(window))
	if err != nil {
		return Decision{}, fmt.Errorf("ensuring quota pool: %w", err)
	}

	var p Pool
	err = tx.QueryRow(ctx,
		`SELECT pool_limit, used, window_start, window_end
		 FROM assistant_quota_pools
		 WHERE owner_id = $1 AND pool_kind = $2
		 FOR UPDATE`,
		ownerID, kind,
	).Scan(&p.Limit, &p.Used, &p.WindowStart, &p.WindowEnd)
	if err != nil {
		return Decision{}, fmt.Errorf("locking quota pool: %w", err)
	}

	// Lazy window rollover, anchored at this request rather than wall clock.
	if !now.Before(p.WindowEnd) {
		p.Used = 0
		p.WindowStart = now
		p.WindowEnd = now.Add(window)
	}
	p.Limit = limit

	allowed := p.Used < p.Limit
	if allowed {
		p.Used++
	}

	_, err = tx.Exec(ctx,
		`UPDATE assistant_quota_pools
		 SET pool_limit = $3, used = $4, window_start = $5, window_end = $6, updated_at = NOW()
		 WHERE owner_id = $1 AND pool_kind = $2`,
		ownerID, kind, p.Limit, p.Used, p.WindowStart, p.WindowEnd)
	if err != nil {
		return Decision{}, fmt.Errorf("updating quota pool: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Decision{}, fmt.Errorf("committing quota tx: %w", err)
	}

	return Decision{Allowed: allowed, View: viewOf(p.Limit, p.Used, p.WindowEnd)}, nil
}

func (r *Repository) View(ctx context.Context, ownerID string, kind PoolKind, limit int, window time.Duration) (PoolView, error) {
	now := time.Now().UTC()

	var p Pool
	err := r.pool.QueryRow(ctx,
		`SELECT pool_limit, used, window_start, window_end
		 FROM assistant_quota_pools
		 WHERE owner_id = $1 AND pool_kind = $2`,
		ownerID, kind,
	).Scan(&p.Limit, &p.Used, &p.WindowStart, &p.WindowEnd)
	if errors.Is(err, pgx.ErrNoRows) {
		return FreshView(limit, window, now), nil
	}
	if err != nil {
		return PoolView{}, fmt.Errorf("fetching quota pool: %w", err)
	}

	// Present rolled-over values without writing; the next consume persists
	// the actual reset.
	if !now.Before(p.WindowEnd) {
		return FreshView(limit, window, now), nil
	}
	return viewOf(limit, p.Used, p.WindowEnd), nil
}
