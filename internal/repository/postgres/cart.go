package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/devmojahid/restu-food/internal/domain"
	"github.com/devmojahid/restu-food/pkg/database"
	apperrors "github.com/devmojahid/restu-food/pkg/errors"
)

// DBTX is the subset of pgxpool.Pool the repository needs. pgxmock pools
// satisfy it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	loadQuery = `
		SELECT payload
		FROM cart_snapshots
		WHERE session_id = $1 AND expires_at > $2`

	saveQuery = `
		INSERT INTO cart_snapshots (session_id, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE
		SET payload = EXCLUDED.payload,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`

	deleteQuery = `DELETE FROM cart_snapshots WHERE session_id = $1`

	purgeQuery = `DELETE FROM cart_snapshots WHERE expires_at <= $1`
)

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	db  DBTX
	ttl time.Duration
	now func() time.Time
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(db DBTX, ttl time.Duration) *CartRepository {
	return &CartRepository{
		db:  db,
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Load retrieves the unexpired snapshot stored for a session.
func (r *CartRepository) Load(ctx context.Context, sessionID string) (snap *domain.Snapshot, err error) {
	ctx, end := database.TraceQuery(ctx, "LoadCart", loadQuery)
	defer func() { end(err) }()

	var payload []byte
	if err := r.db.QueryRow(ctx, loadQuery, sessionID, r.now()).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("cart", sessionID)
		}
		return nil, fmt.Errorf("select cart snapshot: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	return &snapshot, nil
}

// Save upserts the snapshot for a session and pushes its expiry forward.
func (r *CartRepository) Save(ctx context.Context, sessionID string, snapshot *domain.Snapshot) (err error) {
	ctx, end := database.TraceQuery(ctx, "SaveCart", saveQuery)
	defer func() { end(err) }()

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	now := r.now()
	if _, err := r.db.Exec(ctx, saveQuery, sessionID, payload, now.Add(r.ttl), now); err != nil {
		return fmt.Errorf("upsert cart snapshot: %w", err)
	}

	return nil
}

// Delete removes the snapshot for a session.
func (r *CartRepository) Delete(ctx context.Context, sessionID string) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteCart", deleteQuery)
	defer func() { end(err) }()

	if _, err := r.db.Exec(ctx, deleteQuery, sessionID); err != nil {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}

	return nil
}

// PurgeExpired deletes every snapshot past its expiry and returns how many
// rows were removed.
func (r *CartRepository) PurgeExpired(ctx context.Context) (n int64, err error) {
	ctx, end := database.TraceQuery(ctx, "PurgeExpiredCarts", purgeQuery)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, purgeQuery, r.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired carts: %w", err)
	}

	return tag.RowsAffected(), nil
}
