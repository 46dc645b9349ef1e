package postgres

import (
	"context"
	"time"

	"fraudguard/internal/custom_err"
	"fraudguard/internal/models"
	"fraudguard/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *PgTransactionRepository) CreateTx(ctx context.Context, tx pgx.Tx, txn *models.Transaction) error {
	return tx.QueryRow(ctx, storage.CreateTransactionQuery,
		txn.ID, txn.SenderID, txn.ReceiverID, txn.Amount,
		txn.Description, txn.Status, txn.FaceVerified,
		txn.FraudScore, txn.FraudReason, txn.ResolvedAt,
	).Scan(&txn.CreatedAt)
}

// RecordVerdict записывает вердикт скоринга и переводит запись из SCORING
// в указанный статус. Оценка записывается только один раз: повторный вызов
// не затирает уже сохраненный вердикт.
func (r *PgTransactionRepository) RecordVerdict(ctx context.Context, id uuid.UUID, to models.TransactionStatus, score *float64, reason *string, resolvedAt *time.Time) error {
	res, err := r.db.Exec(ctx, storage.RecordFraudVerdictQuery,
		to, score, reason, resolvedAt, id, models.StatusScoring)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return custom_err.ErrAlreadyResolved
	}
	return nil
}

func (r *PgTransactionRepository) RecordVerdictTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, to models.TransactionStatus, score *float64, reason *string, resolvedAt *time.Time) error {
	res, err := tx.Exec(ctx, storage.RecordFraudVerdictQuery,
		to, score, reason, resolvedAt, id, models.StatusScoring)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return custom_err.ErrAlreadyResolved
	}
	return nil
}

// UpdateStatusTx выполняет условный переход статуса: запись обновляется
// только если она все еще в ожидаемом статусе, что исключает двойное
// урегулирование при гонке двух обработчиков.
func (r *PgTransactionRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to models.TransactionStatus, resolvedAt *time.Time) error {
	res, err := tx.Exec(ctx, storage.UpdateTransactionStatusQuery,
		to, resolvedAt, id, from)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return custom_err.ErrAlreadyResolved
	}
	return nil
}
