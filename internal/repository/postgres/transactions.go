package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/walletapi/backend/internal/ledger"
	"github.com/walletapi/backend/internal/models"
)

const selectTransaction = `
		SELECT id, payer_id, payee_id, amount, type, status, reversed_transaction_id, metadata, created_at, updated_at
		FROM transactions`

type transactionLog struct {
	tx  *sql.Tx
	now func() time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		t        models.Transaction
		payerID  sql.NullInt64
		reversed sql.NullInt64
	)
	err := row.Scan(&t.ID, &payerID, &t.PayeeID, &t.Amount, &t.Type, &t.Status, &reversed, &t.Metadata, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if payerID.Valid {
		t.PayerID = &payerID.Int64
	}
	if reversed.Valid {
		t.ReversedTransactionID = &reversed.Int64
	}
	return &t, nil
}

func (l *transactionLog) Create(ctx context.Context, t *models.Transaction) error {
	now := l.now()
	err := l.tx.QueryRowContext(ctx, `
		INSERT INTO transactions (payer_id, payee_id, amount, type, status, reversed_transaction_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id`,
		t.PayerID, t.PayeeID, t.Amount, string(t.Type), string(t.Status), t.ReversedTransactionID, t.Metadata, now).Scan(&t.ID)
	if err != nil {
		return err
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (l *transactionLog) FindByID(ctx context.Context, id int64) (*models.Transaction, error) {
	return l.findOne(ctx, selectTransaction+`
		WHERE id = $1`, id)
}

func (l *transactionLog) FindByIDForUpdate(ctx context.Context, id int64) (*models.Transaction, error) {
	return l.findOne(ctx, selectTransaction+`
		WHERE id = $1
		FOR UPDATE`, id)
}

func (l *transactionLog) findOne(ctx context.Context, query string, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(l.tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	return t, err
}

func (l *transactionLog) FindByAccount(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	rows, err := l.tx.QueryContext(ctx, selectTransaction+`
		WHERE payer_id = $1 OR payee_id = $1
		ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *t)
	}
	return history, rows.Err()
}

func (l *transactionLog) Update(ctx context.Context, t *models.Transaction) error {
	now := l.now()
	result, err := l.tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, metadata = $2, updated_at = $3
		WHERE id = $4`,
		string(t.Status), t.Metadata, now, t.ID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ledger.ErrNotFound
	}
	t.UpdatedAt = now
	return nil
}
