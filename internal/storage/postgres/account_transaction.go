package postgres

import (
	"context"
	"errors"

	"fraudguard/internal/custom_err"
	"fraudguard/internal/models"
	"fraudguard/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func (r *PgAccountRepository) GetBalanceForUpdateTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, storage.GetAccountBalanceForUpdateQuery, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, custom_err.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

func (r *PgAccountRepository) UpdateBalanceTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, newBalance int64) error {
	res, err := tx.Exec(ctx,
		storage.UpdateAccountBalanceQuery,
		newBalance,
		accountID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return custom_err.ErrInsufficientFunds
		}
		return err
	}

	if res.RowsAffected() == 0 {
		return custom_err.ErrNotFound
	}

	return nil
}

func (r *PgAccountRepository) CreateAccountTx(ctx context.Context, tx pgx.Tx, account *models.Account) error {
	return tx.QueryRow(ctx, storage.CreateAccountQuery,
		account.ID, account.UserID, account.Balance,
	).Scan(
		&account.ID,
		&account.UserID,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
}
