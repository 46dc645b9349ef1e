package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"fraudguard/internal/custom_err"
	"fraudguard/internal/models"
	"fraudguard/internal/scorer"
)

type transferFixture struct {
	service     *TransferService
	accountRepo *MockAccountRepository
	txnRepo     *MockTransactionRepository
	userRepo    *MockUserRepository
	txManager   *MockTxManager
	fraudScorer *MockScorer
	sender      *models.User
	receiver    *models.User
	senderAcc   *models.Account
	receiverAcc *models.Account
}

func setupTransferService() *transferFixture {
	accountRepo := new(MockAccountRepository)
	txnRepo := new(MockTransactionRepository)
	userRepo := new(MockUserRepository)
	txManager := new(MockTxManager)
	fraudScorer := new(MockScorer)

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	service := &TransferService{
		accountRepo:               accountRepo,
		txnRepo:                   txnRepo,
		userRepo:                  userRepo,
		txManager:                 txManager,
		scorer:                    fraudScorer,
		kafkaProducer:             nil,
		largeTransactionThreshold: 0.3,
		fraudScoreThreshold:       0.7,
		eventQueue:                make(chan models.ReviewAlertEvent, 100),
		stopCh:                    make(chan struct{}),
		log:                       log,
	}

	sender := &models.User{ID: uuid.New(), Username: "alice"}
	receiver := &models.User{ID: uuid.New(), Username: "bob"}
	senderAcc := &models.Account{ID: uuid.New(), UserID: sender.ID, Balance: 1000000} // 10000.00
	receiverAcc := &models.Account{ID: uuid.New(), UserID: receiver.ID, Balance: 1000000}

	return &transferFixture{
		service:     service,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		userRepo:    userRepo,
		txManager:   txManager,
		fraudScorer: fraudScorer,
		sender:      sender,
		receiver:    receiver,
		senderAcc:   senderAcc,
		receiverAcc: receiverAcc,
	}
}

func (f *transferFixture) expectLookup() {
	ctx := mock.Anything
	f.userRepo.On("GetByID", ctx, f.sender.ID).Return(f.sender, nil)
	f.userRepo.On("GetByUsername", ctx, f.receiver.Username).Return(f.receiver, nil)
	f.accountRepo.On("GetByUserID", ctx, f.sender.ID).Return(f.senderAcc, nil)
	f.accountRepo.On("GetByUserID", ctx, f.receiver.ID).Return(f.receiverAcc, nil)
}

func (f *transferFixture) expectMoveFunds(amount int64) {
	ctx := mock.Anything
	f.accountRepo.On("GetBalanceForUpdateTx", ctx, mock.Anything, f.senderAcc.ID).
		Return(f.senderAcc.Balance, nil)
	f.accountRepo.On("GetBalanceForUpdateTx", ctx, mock.Anything, f.receiverAcc.ID).
		Return(f.receiverAcc.Balance, nil)
	f.accountRepo.On("UpdateBalanceTx", ctx, mock.Anything, f.senderAcc.ID, f.senderAcc.Balance-amount).
		Return(nil)
	f.accountRepo.On("UpdateBalanceTx", ctx, mock.Anything, f.receiverAcc.ID, f.receiverAcc.Balance+amount).
		Return(nil)
}

func TestCreateTransfer_SmallAmount_CompletesWithoutScoring(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	// 2000 из 10000 это 20% баланса, ниже порога скоринга
	f.expectLookup()
	f.expectMoveFunds(200000)
	f.txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	f.txnRepo.On("CreateTx", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Transaction")).
		Return(nil)

	resp, err := f.service.CreateTransfer(ctx, f.sender.ID, models.TransferRequest{
		ReceiverUsername: "bob",
		Amount:           2000.00,
	})

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, models.StatusCompleted, resp.Status)
	assert.Nil(t, resp.FraudScore)

	f.fraudScorer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
	f.txnRepo.AssertExpectations(t)
	f.accountRepo.AssertExpectations(t)
}

func TestCreateTransfer_LargeAmount_LowScore_Completes(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	f.expectLookup()
	f.txnRepo.On("Create", ctx, mock.AnythingOfType("*models.Transaction")).
		Run(func(args mock.Arguments) {
			txn := args.Get(1).(*models.Transaction)
			assert.Equal(t, models.StatusScoring, txn.Status)
		}).
		Return(nil)
	f.fraudScorer.On("Analyze", ctx, models.DataTypeTransaction, mock.AnythingOfType("string")).
		Return(&scorer.Result{IsFraud: false, Score: 0.2, Reason: "routine transfer"}, nil)
	f.expectMoveFunds(400000)
	f.txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	f.txnRepo.On("RecordVerdictTx", ctx, mock.Anything, mock.AnythingOfType("uuid.UUID"),
		models.StatusCompleted, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	resp, err := f.service.CreateTransfer(ctx, f.sender.ID, models.TransferRequest{
		ReceiverUsername: "bob",
		Amount:           4000.00,
		FaceVerified:     true,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, resp.Status)
	assert.NotNil(t, resp.FraudScore)
	assert.InDelta(t, 0.2, *resp.FraudScore, 0.0001)

	f.txnRepo.AssertExpectations(t)
	f.fraudScorer.AssertExpectations(t)
}

func TestCreateTransfer_HighScore_Held(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	f.expectLookup()
	f.txnRepo.On("Create", ctx, mock.AnythingOfType("*models.Transaction")).Return(nil)
	f.fraudScorer.On("Analyze", ctx, models.DataTypeTransaction, mock.AnythingOfType("string")).
		Return(&scorer.Result{IsFraud: true, Score: 0.95, Reason: "unusual pattern"}, nil)
	f.txnRepo.On("RecordVerdict", mock.Anything, mock.AnythingOfType("uuid.UUID"),
		models.StatusHold, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	resp, err := f.service.CreateTransfer(ctx, f.sender.ID, models.TransferRequest{
		ReceiverUsername: "bob",
		Amount:           4000.00,
		FaceVerified:     true,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusHold, resp.Status)
	assert.NotNil(t, resp.FraudScore)
	assert.InDelta(t, 0.95, *resp.FraudScore, 0.0001)
	assert.Equal(t, 1, len(f.service.eventQueue), "review alert should be queued")

	// средства не двигались
	f.accountRepo.AssertNotCalled(t, "UpdateBalanceTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.txnRepo.AssertExpectations(t)
}

func TestCreateTransfer_NoFaceVerification_HeldDespiteLowScore(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	f.expectLookup()
	f.txnRepo.On("Create", ctx, mock.AnythingOfType("*models.Transaction")).Return(nil)
	f.fraudScorer.On("Analyze", ctx, models.DataTypeTransaction, mock.AnythingOfType("string")).
		Return(&scorer.Result{IsFraud: false, Score: 0.1}, nil)
	f.txnRepo.On("RecordVerdict", mock.Anything, mock.AnythingOfType("uuid.UUID"),
		models.StatusHold, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	resp, err := f.service.CreateTransfer(ctx, f.sender.ID, models.TransferRequest{
		ReceiverUsername: "bob",
		Amount:           4000.00,
		FaceVerified:     false,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusHold, resp.Status)
	// оценка все равно записана
	assert.NotNil(t, resp.FraudScore)
	assert.InDelta(t, 0.1, *resp.FraudScore, 0.0001)

	f.txnRepo.AssertExpectations(t)
}

func TestCreateTransfer_ScorerUnavailable_Held(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	f.expectLookup()
	f.txnRepo.On("Create", ctx, mock.AnythingOfType("*models.Transaction")).Return(nil)
	f.fraudScorer.On("Analyze", ctx, models.DataTypeTransaction, mock.AnythingOfType("string")).
		Return(nil, errors.New("gemini timeout"))
	f.txnRepo.On("RecordVerdict", mock.Anything, mock.AnythingOfType("uuid.UUID"),
		models.StatusHold, (*float64)(nil), mock.Anything, mock.Anything).Return(nil)

	resp, err := f.service.CreateTransfer(ctx, f.sender.ID, models.TransferRequest{
		ReceiverUsername: "bob",
		Amount:           4000.00,
		FaceVerified:     true,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusHold, resp.Status)
	assert.Nil(t, resp.FraudScore)

	f.accountRepo.AssertNotCalled(t, "UpdateBalanceTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.txnRepo.AssertExpectations(t)
}

func TestCreateTransfer_CallerGone_HoldStillRecorded(t *testing.T) {
	f := setupTransferService()

	// клиент отключился после отправки запроса
	ctx, cancel := context.WithCancel(context.Background())

	f.expectLookup()
	f.txnRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Transaction")).Return(nil)
	f.fraudScorer.On("Analyze", mock.Anything, models.DataTypeTransaction, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)
	// вердикт пишется в живом контексте, несмотря на отмену исходного
	f.txnRepo.On("RecordVerdict",
		mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }),
		mock.AnythingOfType("uuid.UUID"),
		models.StatusHold, (*float64)(nil), mock.Anything, mock.Anything).Return(nil)

	resp, err := f.service.CreateTransfer(ctx, f.sender.ID, models.TransferRequest{
		ReceiverUsername: "bob",
		Amount:           4000.00,
		FaceVerified:     true,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusHold, resp.Status)

	f.txnRepo.AssertExpectations(t)
}

func TestCreateTransfer_InsufficientFundsAtSettlement_Held(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	f.expectLookup()
	f.txnRepo.On("Create", ctx, mock.AnythingOfType("*models.Transaction")).Return(nil)
	f.fraudScorer.On("Analyze", ctx, models.DataTypeTransaction, mock.AnythingOfType("string")).
		Return(&scorer.Result{Score: 0.1}, nil)
	// баланс изменился за время скоринга
	f.txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).
		Return(custom_err.ErrInsufficientFunds)
	f.txnRepo.On("RecordVerdict", mock.Anything, mock.AnythingOfType("uuid.UUID"),
		models.StatusHold, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	resp, err := f.service.CreateTransfer(ctx, f.sender.ID, models.TransferRequest{
		ReceiverUsername: "bob",
		Amount:           4000.00,
		FaceVerified:     true,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusHold, resp.Status)
}

func TestCreateTransfer_InsufficientFunds_NothingPersisted(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	f.senderAcc.Balance = 100 // 1.00

	f.expectLookup()

	resp, err := f.service.CreateTransfer(ctx, f.sender.ID, models.TransferRequest{
		ReceiverUsername: "bob",
		Amount:           2000.00,
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrInsufficientFunds)

	f.txnRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.txnRepo.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateTransfer_SelfTransfer(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	f.userRepo.On("GetByID", mock.Anything, f.sender.ID).Return(f.sender, nil)
	f.userRepo.On("GetByUsername", mock.Anything, f.sender.Username).Return(f.sender, nil)

	resp, err := f.service.CreateTransfer(ctx, f.sender.ID, models.TransferRequest{
		ReceiverUsername: "alice",
		Amount:           100.00,
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrSelfTransfer)
}

func TestCreateTransfer_InvalidAmount(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	// 0.004 положительна, но округляется в ноль минорных единиц
	for _, amount := range []float64{0, -50, 0.004} {
		resp, err := f.service.CreateTransfer(ctx, f.sender.ID, models.TransferRequest{
			ReceiverUsername: "bob",
			Amount:           amount,
		})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, custom_err.ErrInvalidAmount)
	}

	f.txnRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.txnRepo.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
	f.txManager.AssertNotCalled(t, "WithTx", mock.Anything, mock.Anything)
}

func TestCreateTransfer_ReceiverNotFound(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	f.userRepo.On("GetByID", mock.Anything, f.sender.ID).Return(f.sender, nil)
	f.userRepo.On("GetByUsername", mock.Anything, "ghost").Return(nil, custom_err.ErrNotFound)

	resp, err := f.service.CreateTransfer(ctx, f.sender.ID, models.TransferRequest{
		ReceiverUsername: "Ghost",
		Amount:           100.00,
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrNotFound)
}

func heldTransaction(f *transferFixture) *models.Transaction {
	score := 0.9
	reason := "unusual pattern"
	return &models.Transaction{
		ID:          uuid.New(),
		SenderID:    f.senderAcc.ID,
		ReceiverID:  f.receiverAcc.ID,
		Amount:      400000,
		Status:      models.StatusHold,
		FraudScore:  &score,
		FraudReason: &reason,
	}
}

func TestApprove_MovesFundsAndCompletes(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	txn := heldTransaction(f)
	f.txnRepo.On("GetByID", ctx, txn.ID).Return(txn, nil)
	f.accountRepo.On("GetByUserID", ctx, f.sender.ID).Return(f.senderAcc, nil)
	f.expectMoveFunds(txn.Amount)
	f.txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	f.txnRepo.On("UpdateStatusTx", ctx, mock.Anything, txn.ID,
		models.StatusHold, models.StatusCompleted, mock.Anything).Return(nil)

	resp, err := f.service.Approve(ctx, f.sender.ID, txn.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, resp.Status)

	f.accountRepo.AssertExpectations(t)
	f.txnRepo.AssertExpectations(t)
}

func TestApprove_NotSender_Forbidden(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	txn := heldTransaction(f)
	f.txnRepo.On("GetByID", ctx, txn.ID).Return(txn, nil)
	// получатель пытается одобрить чужой перевод
	f.accountRepo.On("GetByUserID", ctx, f.receiver.ID).Return(f.receiverAcc, nil)

	resp, err := f.service.Approve(ctx, f.receiver.ID, txn.ID)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrNotParticipant)
}

func TestApprove_AlreadyResolved(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	txn := heldTransaction(f)
	txn.Status = models.StatusCompleted
	f.txnRepo.On("GetByID", ctx, txn.ID).Return(txn, nil)
	f.accountRepo.On("GetByUserID", ctx, f.sender.ID).Return(f.senderAcc, nil)

	resp, err := f.service.Approve(ctx, f.sender.ID, txn.ID)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrAlreadyResolved)
}

func TestApprove_StillScoring_NotOnHold(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	txn := heldTransaction(f)
	txn.Status = models.StatusScoring
	f.txnRepo.On("GetByID", ctx, txn.ID).Return(txn, nil)
	f.accountRepo.On("GetByUserID", ctx, f.sender.ID).Return(f.senderAcc, nil)

	resp, err := f.service.Approve(ctx, f.sender.ID, txn.ID)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrNotOnHold)
}

func TestCancel_NoBalanceChanges(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	txn := heldTransaction(f)
	f.txnRepo.On("GetByID", ctx, txn.ID).Return(txn, nil)
	f.accountRepo.On("GetByUserID", ctx, f.sender.ID).Return(f.senderAcc, nil)
	f.txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	f.txnRepo.On("UpdateStatusTx", ctx, mock.Anything, txn.ID,
		models.StatusHold, models.StatusCancelled, mock.Anything).Return(nil)

	resp, err := f.service.Cancel(ctx, f.sender.ID, txn.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, resp.Status)

	f.accountRepo.AssertNotCalled(t, "UpdateBalanceTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.accountRepo.AssertNotCalled(t, "GetBalanceForUpdateTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetTransaction_NotParticipant(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	txn := heldTransaction(f)
	outsider := &models.Account{ID: uuid.New(), UserID: uuid.New()}

	f.txnRepo.On("GetByID", ctx, txn.ID).Return(txn, nil)
	f.accountRepo.On("GetByUserID", ctx, outsider.UserID).Return(outsider, nil)

	view, err := f.service.GetTransaction(ctx, outsider.UserID, txn.ID)

	assert.Nil(t, view)
	assert.ErrorIs(t, err, custom_err.ErrNotParticipant)
}

func TestListTransactions_ConvertsToViews(t *testing.T) {
	f := setupTransferService()
	ctx := context.Background()

	txn := heldTransaction(f)
	txn.CreatedAt = time.Now()

	f.accountRepo.On("GetByUserID", ctx, f.sender.ID).Return(f.senderAcc, nil)
	f.txnRepo.On("ListByAccount", ctx, f.senderAcc.ID, 50).
		Return([]*models.Transaction{txn}, nil)

	views, err := f.service.ListTransactions(ctx, f.sender.ID, 0)

	assert.NoError(t, err)
	assert.Len(t, views, 1)
	assert.Equal(t, txn.ID, views[0].ID)
	assert.InDelta(t, 4000.00, views[0].Amount, 0.0001)
}
