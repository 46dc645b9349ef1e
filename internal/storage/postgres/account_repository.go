package postgres

import (
	"context"
	"errors"
	"fmt"

	"fraudguard/internal/custom_err"
	"fraudguard/internal/models"
	"fraudguard/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository interface {
	CreateAccountTx(ctx context.Context, tx pgx.Tx, account *models.Account) error
	GetBalanceForUpdateTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error)
	UpdateBalanceTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, newBalance int64) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error)
}
type PgAccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) AccountRepository {
	return &PgAccountRepository{db: db}
}

func (r *PgAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	const op = "storage.GetByID"
	var account models.Account
	err := r.db.QueryRow(ctx, storage.GetAccountByIDQuery, id).Scan(
		&account.ID,
		&account.UserID,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &account, nil
}

func (r *PgAccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	const op = "storage.GetByUserID"
	var account models.Account
	err := r.db.QueryRow(ctx, storage.GetAccountByUserQuery, userID).Scan(
		&account.ID,
		&account.UserID,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &account, nil
}
