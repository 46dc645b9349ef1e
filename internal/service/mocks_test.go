package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"fraudguard/internal/models"
	"fraudguard/internal/scorer"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateTx(ctx context.Context, tx pgx.Tx, user *models.User) (*models.User, error) {
	args := m.Called(ctx, tx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateAccountTx(ctx context.Context, tx pgx.Tx, account *models.Account) error {
	args := m.Called(ctx, tx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetBalanceForUpdateTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalanceTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, newBalance int64) error {
	args := m.Called(ctx, tx, accountID, newBalance)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) CreateTx(ctx context.Context, tx pgx.Tx, txn *models.Transaction) error {
	args := m.Called(ctx, tx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) RecordVerdict(ctx context.Context, id uuid.UUID, to models.TransactionStatus, score *float64, reason *string, resolvedAt *time.Time) error {
	args := m.Called(ctx, id, to, score, reason, resolvedAt)
	return args.Error(0)
}

func (m *MockTransactionRepository) RecordVerdictTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, to models.TransactionStatus, score *float64, reason *string, resolvedAt *time.Time) error {
	args := m.Called(ctx, tx, id, to, score, reason, resolvedAt)
	return args.Error(0)
}

func (m *MockTransactionRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to models.TransactionStatus, resolvedAt *time.Time) error {
	args := m.Called(ctx, tx, id, from, to, resolvedAt)
	return args.Error(0)
}

type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Analyze(ctx context.Context, dataType models.DataType, content string) (*scorer.Result, error) {
	args := m.Called(ctx, dataType, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scorer.Result), args.Error(1)
}

type MockKafkaProducer struct {
	mock.Mock
}

func (m *MockKafkaProducer) SendReviewAlert(ctx context.Context, event models.ReviewAlertEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockKafkaProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockScoreCache struct {
	mock.Mock
}

func (m *MockScoreCache) Get(ctx context.Context, dataType models.DataType, content string) (*scorer.Result, bool) {
	args := m.Called(ctx, dataType, content)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*scorer.Result), args.Bool(1)
}

func (m *MockScoreCache) Set(ctx context.Context, dataType models.DataType, content string, result *scorer.Result) {
	m.Called(ctx, dataType, content, result)
}

func (m *MockScoreCache) Close() error {
	args := m.Called()
	return args.Error(0)
}
