package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/taxtracker/ledger/shared/models"
	sharedredis "github.com/taxtracker/ledger/shared/redis"
)

const initialStateKey = "ledger:view:init"

// LedgerReadRepository serves profile and transaction reads from the store and keeps the
// assembled initial-state view in Redis when a client is configured.
type LedgerReadRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.InitialState]
}

// NewLedgerReadRepository accepts a nil Redis client, which disables the view cache.
func NewLedgerReadRepository(db *sql.DB, redisClient *goredis.Client, ttl time.Duration) *LedgerReadRepository {
	r := &LedgerReadRepository{db: db}
	if redisClient != nil {
		r.cache = sharedredis.NewViewCache[models.InitialState](redisClient, initialStateKey, ttl)
	}
	return r
}

func (r *LedgerReadRepository) ReadProfile(ctx context.Context) (*models.BusinessProfile, error) {
	query := `
		SELECT id, name, rc_number, tin, fiscal_year_start
		FROM business_info
		WHERE id = 1
	`
	var profile models.BusinessProfile
	err := r.db.QueryRowContext(ctx, query).Scan(
		&profile.ID, &profile.Name, &profile.RCNumber, &profile.TIN, &profile.FiscalYearStart,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("business info not initialized")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business info: %w", err)
	}
	return &profile, nil
}

// ListTransactions returns every transaction in insertion order.
func (r *LedgerReadRepository) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	query := `
		SELECT id, type, tx_date, data, created_at
		FROM transactions
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		var data sql.NullString

		if err := rows.Scan(&t.ID, &t.Type, &t.Date, &data, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Data, err = decodePayload(data); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", t.ID, err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// CachedInitialState returns the cached view, if any, and the generation a rebuilt view
// belongs to. Without Redis it always misses with NoGeneration.
func (r *LedgerReadRepository) CachedInitialState(ctx context.Context) (*models.InitialState, sharedredis.Generation, bool) {
	if r.cache == nil {
		return nil, sharedredis.NoGeneration, false
	}
	return r.cache.Get(ctx)
}

func (r *LedgerReadRepository) CacheInitialState(ctx context.Context, gen sharedredis.Generation, state *models.InitialState) {
	if r.cache == nil {
		return
	}
	r.cache.Set(ctx, gen, state)
}

// InvalidateInitialState retires the cached view. Called after every successful write.
func (r *LedgerReadRepository) InvalidateInitialState(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Invalidate(ctx)
}
