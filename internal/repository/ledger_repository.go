package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/taxtracker/ledger/shared/models"
)

// LedgerWriteRepository handles every state-mutating statement against the store.
type LedgerWriteRepository struct {
	db *sql.DB
}

func NewLedgerWriteRepository(db *sql.DB) *LedgerWriteRepository {
	return &LedgerWriteRepository{db: db}
}

// WriteProfile overwrites all four profile fields. Nil fields become NULL.
func (r *LedgerWriteRepository) WriteProfile(ctx context.Context, profile *models.BusinessProfile) error {
	query := `
		UPDATE business_info
		SET name = $1, rc_number = $2, tin = $3, fiscal_year_start = $4
		WHERE id = 1
	`
	_, err := r.db.ExecContext(ctx, query,
		profile.Name, profile.RCNumber, profile.TIN, profile.FiscalYearStart,
	)
	if err != nil {
		return fmt.Errorf("failed to update business info: %w", err)
	}
	return nil
}

// AddTransaction inserts the transaction and returns the store-assigned id.
func (r *LedgerWriteRepository) AddTransaction(ctx context.Context, transaction *models.Transaction) (int64, error) {
	data, err := encodePayload(transaction.Data)
	if err != nil {
		return 0, err
	}
	query := `
		INSERT INTO transactions (type, tx_date, data, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err = r.db.QueryRowContext(ctx, query,
		transaction.Type, transaction.Date, data, transaction.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create transaction: %w", err)
	}
	return id, nil
}

// UpdateTransaction overwrites date and payload. An unknown id is not an error.
func (r *LedgerWriteRepository) UpdateTransaction(ctx context.Context, id int64, date *string, payload models.Payload) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	query := `UPDATE transactions SET tx_date = $1, data = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, date, data, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	logIfUntouched(result, "update", id)
	return nil
}

// DeleteTransaction removes the row. An unknown id is not an error.
func (r *LedgerWriteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	logIfUntouched(result, "delete", id)
	return nil
}

// ClearAll deletes every transaction and blanks the profile in one database transaction.
func (r *LedgerWriteRepository) ClearAll(ctx context.Context, fiscalYearStart string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clear: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}
	query := `
		UPDATE business_info
		SET name = '', rc_number = '', tin = '', fiscal_year_start = $1
		WHERE id = 1
	`
	if _, err := tx.ExecContext(ctx, query, fiscalYearStart); err != nil {
		return fmt.Errorf("failed to reset business info: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

func logIfUntouched(result sql.Result, op string, id int64) {
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		log.Debug().Int64("transactionId", id).Str("op", op).Msg("no transaction matched id")
	}
}
