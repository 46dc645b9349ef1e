package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fraudguard/internal/custom_err"
	"fraudguard/internal/models"
	"fraudguard/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	CreateTx(ctx context.Context, tx pgx.Tx, txn *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Transaction, error)

	RecordVerdict(ctx context.Context, id uuid.UUID, to models.TransactionStatus, score *float64, reason *string, resolvedAt *time.Time) error
	RecordVerdictTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, to models.TransactionStatus, score *float64, reason *string, resolvedAt *time.Time) error
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to models.TransactionStatus, resolvedAt *time.Time) error
}
type PgTransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) TransactionRepository {
	return &PgTransactionRepository{db: db}
}

func (r *PgTransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	const op = "storage.Create"

	err := r.db.QueryRow(ctx, storage.CreateTransactionQuery,
		txn.ID, txn.SenderID, txn.ReceiverID, txn.Amount,
		txn.Description, txn.Status, txn.FaceVerified,
		txn.FraudScore, txn.FraudReason, txn.ResolvedAt,
	).Scan(&txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *PgTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	const op = "storage.GetByID"

	txn, err := scanTransaction(r.db.QueryRow(ctx, storage.GetTransactionByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return txn, nil
}

func (r *PgTransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Transaction, error) {
	const op = "storage.ListByAccount"

	rows, err := r.db.Query(ctx, storage.ListTransactionsByAccountQuery, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan error: %w", op, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var txn models.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.SenderID,
		&txn.ReceiverID,
		&txn.Amount,
		&txn.Description,
		&txn.Status,
		&txn.FraudScore,
		&txn.FraudReason,
		&txn.FaceVerified,
		&txn.CreatedAt,
		&txn.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
