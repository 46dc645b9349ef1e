package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fraudguard/internal/custom_err"
	"fraudguard/internal/kafka"
	"fraudguard/internal/models"
	"fraudguard/internal/scorer"
	"fraudguard/internal/storage/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Transfer interface {
	CreateTransfer(ctx context.Context, senderUserID uuid.UUID, req models.TransferRequest) (*models.TransferResponse, error)
	Approve(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*models.ResolveResponse, error)
	Cancel(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*models.ResolveResponse, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.BalanceResponse, error)
	GetTransaction(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*models.TransactionView, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.TransactionView, error)
	Shutdown(ctx context.Context) error
}

type TransferService struct {
	accountRepo   postgres.AccountRepository
	txnRepo       postgres.TransactionRepository
	userRepo      postgres.UserRepository
	txManager     TxManager
	scorer        scorer.Scorer
	kafkaProducer kafka.Producer

	largeTransactionThreshold float64
	fraudScoreThreshold       float64

	log *slog.Logger

	eventQueue chan models.ReviewAlertEvent
	wg         sync.WaitGroup
	stopCh     chan struct{}
}

func NewTransferService(
	accountRepo postgres.AccountRepository,
	txnRepo postgres.TransactionRepository,
	userRepo postgres.UserRepository,
	txManager TxManager,
	fraudScorer scorer.Scorer,
	kafkaProducer kafka.Producer,
	largeTransactionThreshold float64,
	fraudScoreThreshold float64,
	log *slog.Logger,
) *TransferService {
	svc := &TransferService{
		accountRepo:               accountRepo,
		txnRepo:                   txnRepo,
		userRepo:                  userRepo,
		txManager:                 txManager,
		scorer:                    fraudScorer,
		kafkaProducer:             kafkaProducer,
		largeTransactionThreshold: largeTransactionThreshold,
		fraudScoreThreshold:       fraudScoreThreshold,
		eventQueue:                make(chan models.ReviewAlertEvent, 100),
		stopCh:                    make(chan struct{}),
		log:                       log,
	}

	for i := 0; i < 5; i++ {
		svc.wg.Add(1)
		go svc.kafkaWorker(i)
	}

	return svc
}

func (s *TransferService) kafkaWorker(id int) {
	defer s.wg.Done()
	s.log.Info("kafka worker started", slog.Int("worker_id", id))

	for {
		select {
		case event := <-s.eventQueue:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.kafkaProducer.SendReviewAlert(ctx, event); err != nil {
				s.log.Error("kafka send failed",
					slog.Int("worker_id", id),
					slog.String("tx_id", event.TransactionID.String()),
					slog.String("error", err.Error()))
			} else {
				s.log.Info("review alert sent to kafka",
					slog.Int("worker_id", id),
					slog.String("tx_id", event.TransactionID.String()))
			}
			cancel()

		case <-s.stopCh:
			s.log.Info("kafka worker stopping", slog.Int("worker_id", id))
			return
		}
	}
}

func (s *TransferService) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down transfer service")

	close(s.stopCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("all kafka workers stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("shutdown timeout exceeded")
		return ctx.Err()
	}
}

// CreateTransfer проводит перевод между счетами. Небольшие переводы
// завершаются сразу, крупные уходят на фрод-скоринг и по его результату
// либо завершаются, либо замораживаются до ручного решения отправителя.
func (s *TransferService) CreateTransfer(ctx context.Context, senderUserID uuid.UUID, req models.TransferRequest) (*models.TransferResponse, error) {
	const op = "service.CreateTransfer"

	if req.Amount <= 0 {
		return nil, custom_err.ErrInvalidAmount
	}
	// Суммы меньше минимальной единицы округляются в ноль.
	amountMinor := models.AmountToMinorUnits(req.Amount)
	if amountMinor <= 0 {
		return nil, custom_err.ErrInvalidAmount
	}
	receiverUsername := strings.ToLower(strings.TrimSpace(req.ReceiverUsername))
	if receiverUsername == "" {
		return nil, custom_err.ErrInvalidInput
	}

	sender, err := s.userRepo.GetByID(ctx, senderUserID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get sender: %w", op, err)
	}
	receiver, err := s.userRepo.GetByUsername(ctx, receiverUsername)
	if err != nil {
		return nil, err
	}
	if receiver.ID == sender.ID {
		return nil, custom_err.ErrSelfTransfer
	}

	senderAccount, err := s.accountRepo.GetByUserID(ctx, sender.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get sender account: %w", op, err)
	}
	receiverAccount, err := s.accountRepo.GetByUserID(ctx, receiver.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get receiver account: %w", op, err)
	}

	if amountMinor > senderAccount.Balance {
		return nil, custom_err.ErrInsufficientFunds
	}

	txn := &models.Transaction{
		ID:           uuid.New(),
		SenderID:     senderAccount.ID,
		ReceiverID:   receiverAccount.ID,
		Amount:       amountMinor,
		Description:  req.Description,
		FaceVerified: req.FaceVerified,
	}

	// Доля от баланса отправителя решает, нужен ли скоринг.
	fraction := float64(amountMinor) / float64(senderAccount.Balance)
	if fraction < s.largeTransactionThreshold {
		now := time.Now()
		txn.Status = models.StatusCompleted
		txn.ResolvedAt = &now

		err = s.txManager.WithTx(ctx, func(tx pgx.Tx) error {
			if err := s.moveFunds(ctx, tx, senderAccount.ID, receiverAccount.ID, amountMinor); err != nil {
				return err
			}
			return s.txnRepo.CreateTx(ctx, tx, txn)
		})
		if err != nil {
			if errors.Is(err, custom_err.ErrInsufficientFunds) {
				return nil, err
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		s.log.Info("transfer completed",
			slog.String("tx_id", txn.ID.String()),
			slog.Float64("amount", req.Amount))
		return buildTransferResponse(txn), nil
	}

	txn.Status = models.StatusScoring
	if err := s.txnRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("transfer sent to fraud scoring",
		slog.String("tx_id", txn.ID.String()),
		slog.Float64("amount", req.Amount),
		slog.Float64("balance_fraction", fraction))

	summary := buildTransferSummary(req.Amount, sender.Username, receiver.Username, req.Description, senderAccount.Balance)

	verdict, scoreErr := s.scorer.Analyze(ctx, models.DataTypeTransaction, summary)
	if scoreErr != nil {
		// Скоринг недоступен: перевод не пропускаем, а замораживаем.
		s.log.Error("fraud scoring failed, holding transfer",
			slog.String("tx_id", txn.ID.String()),
			slog.String("error", scoreErr.Error()))
		return s.holdTransfer(ctx, txn, nil, "fraud scoring unavailable, manual review required")
	}

	score := verdict.Score
	if !req.FaceVerified {
		return s.holdTransfer(ctx, txn, &score, "face verification missing for large transfer")
	}
	if score > s.fraudScoreThreshold {
		reason := verdict.Reason
		if reason == "" {
			reason = "fraud score above threshold"
		}
		return s.holdTransfer(ctx, txn, &score, reason)
	}

	now := time.Now()
	reason := verdict.Reason
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	err = s.txManager.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.moveFunds(ctx, tx, senderAccount.ID, receiverAccount.ID, amountMinor); err != nil {
			return err
		}
		return s.txnRepo.RecordVerdictTx(ctx, tx, txn.ID, models.StatusCompleted, &score, reasonPtr, &now)
	})
	if err != nil {
		if errors.Is(err, custom_err.ErrInsufficientFunds) {
			// Баланс изменился, пока шел скоринг. Средства не двигаем.
			return s.holdTransfer(ctx, txn, &score, "insufficient funds at settlement time")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	txn.Status = models.StatusCompleted
	txn.FraudScore = &score
	txn.FraudReason = reasonPtr
	txn.ResolvedAt = &now

	s.log.Info("transfer completed after scoring",
		slog.String("tx_id", txn.ID.String()),
		slog.Float64("fraud_score", score))
	return buildTransferResponse(txn), nil
}

// Approve завершает замороженный перевод: средства списываются и
// зачисляются в момент одобрения, а не в момент создания перевода.
func (s *TransferService) Approve(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*models.ResolveResponse, error) {
	const op = "service.Approve"

	txn, account, err := s.getHeldTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.txManager.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.moveFunds(ctx, tx, txn.SenderID, txn.ReceiverID, txn.Amount); err != nil {
			return err
		}
		return s.txnRepo.UpdateStatusTx(ctx, tx, txn.ID, models.StatusHold, models.StatusCompleted, &now)
	})
	if err != nil {
		if errors.Is(err, custom_err.ErrInsufficientFunds) ||
			errors.Is(err, custom_err.ErrAlreadyResolved) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("held transfer approved",
		slog.String("tx_id", txn.ID.String()),
		slog.String("account_id", account.ID.String()))

	return &models.ResolveResponse{
		TransactionID: txn.ID,
		Status:        models.StatusCompleted,
		Message:       "transfer approved, funds moved",
	}, nil
}

// Cancel отклоняет замороженный перевод. Средства при заморозке не
// двигались, поэтому отмена не трогает балансы.
func (s *TransferService) Cancel(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*models.ResolveResponse, error) {
	const op = "service.Cancel"

	txn, account, err := s.getHeldTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.txManager.WithTx(ctx, func(tx pgx.Tx) error {
		return s.txnRepo.UpdateStatusTx(ctx, tx, txn.ID, models.StatusHold, models.StatusCancelled, &now)
	})
	if err != nil {
		if errors.Is(err, custom_err.ErrAlreadyResolved) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("held transfer cancelled",
		slog.String("tx_id", txn.ID.String()),
		slog.String("account_id", account.ID.String()))

	return &models.ResolveResponse{
		TransactionID: txn.ID,
		Status:        models.StatusCancelled,
		Message:       "transfer cancelled, no funds were moved",
	}, nil
}

func (s *TransferService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.BalanceResponse, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.BalanceResponse{
		AccountID: account.ID,
		Balance:   models.AmountFromMinorUnits(account.Balance),
	}, nil
}

func (s *TransferService) GetTransaction(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*models.TransactionView, error) {
	txn, err := s.txnRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if txn.SenderID != account.ID && txn.ReceiverID != account.ID {
		return nil, custom_err.ErrNotParticipant
	}
	view := txn.View()
	return &view, nil
}

func (s *TransferService) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.TransactionView, error) {
	const op = "service.ListTransactions"

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns, err := s.txnRepo.ListByAccount(ctx, account.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	views := make([]models.TransactionView, 0, len(txns))
	for _, txn := range txns {
		views = append(views, txn.View())
	}
	return views, nil
}

// getHeldTransaction загружает транзакцию и проверяет, что пользователь
// является отправителем и что перевод все еще заморожен.
func (s *TransferService) getHeldTransaction(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*models.Transaction, *models.Account, error) {
	txn, err := s.txnRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, nil, err
	}

	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if txn.SenderID != account.ID {
		return nil, nil, custom_err.ErrNotParticipant
	}

	switch txn.Status {
	case models.StatusHold:
		return txn, account, nil
	case models.StatusCompleted, models.StatusCancelled:
		return nil, nil, custom_err.ErrAlreadyResolved
	default:
		return nil, nil, custom_err.ErrNotOnHold
	}
}

func (s *TransferService) holdTransfer(ctx context.Context, txn *models.Transaction, score *float64, reason string) (*models.TransferResponse, error) {
	const op = "service.holdTransfer"

	// Вердикт должен записаться, даже если клиент уже отключился,
	// иначе транзакция навсегда останется в статусе SCORING.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.txnRepo.RecordVerdict(writeCtx, txn.ID, models.StatusHold, score, &reason, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	txn.Status = models.StatusHold
	txn.FraudScore = score
	txn.FraudReason = &reason

	s.log.Warn("transfer held for review",
		slog.String("tx_id", txn.ID.String()),
		slog.String("reason", reason))

	s.enqueueReviewAlert(models.ReviewAlertEvent{
		TransactionID: txn.ID,
		SenderID:      txn.SenderID,
		ReceiverID:    txn.ReceiverID,
		Amount:        models.AmountFromMinorUnits(txn.Amount),
		FraudScore:    score,
		Reason:        reason,
		Timestamp:     time.Now(),
	})

	return buildTransferResponse(txn), nil
}

func (s *TransferService) enqueueReviewAlert(event models.ReviewAlertEvent) {
	select {
	case s.eventQueue <- event:
	default:
		s.log.Error("review alert queue full, event dropped",
			slog.String("tx_id", event.TransactionID.String()))
	}
}

// moveFunds переводит сумму между счетами в рамках открытой транзакции.
// Счета блокируются в детерминированном порядке, чтобы два встречных
// перевода не взяли блокировки навстречу друг другу.
func (s *TransferService) moveFunds(ctx context.Context, tx pgx.Tx, senderID, receiverID uuid.UUID, amount int64) error {
	first, second := senderID, receiverID
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}

	balances := make(map[uuid.UUID]int64, 2)
	for _, id := range []uuid.UUID{first, second} {
		balance, err := s.accountRepo.GetBalanceForUpdateTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to lock account %s: %w", id, err)
		}
		balances[id] = balance
	}

	newSenderBalance := balances[senderID] - amount
	if newSenderBalance < 0 {
		return custom_err.ErrInsufficientFunds
	}

	if err := s.accountRepo.UpdateBalanceTx(ctx, tx, senderID, newSenderBalance); err != nil {
		return fmt.Errorf("failed to debit sender: %w", err)
	}
	if err := s.accountRepo.UpdateBalanceTx(ctx, tx, receiverID, balances[receiverID]+amount); err != nil {
		return fmt.Errorf("failed to credit receiver: %w", err)
	}
	return nil
}

func buildTransferSummary(amount float64, sender, receiver, description string, senderBalance int64) string {
	return fmt.Sprintf(
		"Amount: %.2f. Sender: %s. Receiver: %s. Description: %s. Sender balance before transfer: %.2f.",
		amount, sender, receiver, description, models.AmountFromMinorUnits(senderBalance))
}

func buildTransferResponse(txn *models.Transaction) *models.TransferResponse {
	var message string
	switch txn.Status {
	case models.StatusCompleted:
		message = "transfer completed"
	case models.StatusHold:
		message = "transfer held for manual review"
	default:
		message = "transfer accepted"
	}
	return &models.TransferResponse{
		TransactionID: txn.ID,
		Status:        txn.Status,
		Amount:        models.AmountFromMinorUnits(txn.Amount),
		FraudScore:    txn.FraudScore,
		FraudReason:   txn.FraudReason,
		Message:       message,
	}
}
