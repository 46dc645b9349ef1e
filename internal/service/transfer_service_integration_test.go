//go:build integration
// +build integration

package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudguard/internal/custom_err"
	"fraudguard/internal/models"
	"fraudguard/internal/storage/postgres"
	"fraudguard/internal/testhelpers"
)

// Порог скоринга выше любой возможной доли баланса, чтобы переводы
// завершались сразу и тест проверял только согласованность балансов.
func setupIntegrationService(t *testing.T) (*TransferService, *testhelpers.TestDB) {
	t.Helper()

	testDB := testhelpers.SetupTestDB(t)
	testDB.RunMigrations(t)
	testDB.CleanupDB(t)

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	service := NewTransferService(
		postgres.NewAccountRepository(testDB.Pool),
		postgres.NewTransactionRepository(testDB.Pool),
		postgres.NewUserRepository(testDB.Pool),
		NewPgxTxManager(testDB.Pool),
		nil,
		nil,
		2.0,
		0.7,
		log,
	)

	return service, testDB
}

func TestCreateTransfer_Integration_ConcurrentOverspend_NoOverdraft(t *testing.T) {
	service, testDB := setupIntegrationService(t)
	defer testDB.TeardownTestDB()
	defer service.Shutdown(context.Background())

	sender := testDB.SeedUser(t, "alice")
	receiver := testDB.SeedUser(t, "bob")
	senderAcc := testDB.SeedAccount(t, sender.ID, 1000000) // 10000.00
	receiverAcc := testDB.SeedAccount(t, receiver.ID, 0)

	// 10 переводов по 2000.00, на все хватает только пяти
	numTransfers := 10
	transferAmount := 2000.00

	var wg sync.WaitGroup
	results := make([]error, numTransfers)

	for i := 0; i < numTransfers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			_, err := service.CreateTransfer(context.Background(), sender.ID, models.TransferRequest{
				ReceiverUsername: "bob",
				Amount:           transferAmount,
				FaceVerified:     true,
			})
			results[idx] = err
		}(i)
	}

	wg.Wait()

	succeeded := 0
	for i, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, custom_err.ErrInsufficientFunds, "transfer %d", i)
	}
	assert.Equal(t, 5, succeeded)

	senderBalance, receiverBalance := queryBalances(t, testDB, senderAcc.ID, receiverAcc.ID)
	assert.Equal(t, int64(0), senderBalance)
	assert.Equal(t, int64(1000000), receiverBalance)

	var completed int
	err := testDB.Pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM transactions WHERE sender_id = $1 AND status = $2",
		senderAcc.ID, models.StatusCompleted,
	).Scan(&completed)
	require.NoError(t, err)
	assert.Equal(t, 5, completed)
}

func TestCreateTransfer_Integration_OppositeDirections_NoDeadlock(t *testing.T) {
	service, testDB := setupIntegrationService(t)
	defer testDB.TeardownTestDB()
	defer service.Shutdown(context.Background())

	alice := testDB.SeedUser(t, "alice")
	bob := testDB.SeedUser(t, "bob")
	aliceAcc := testDB.SeedAccount(t, alice.ID, 1000000)
	bobAcc := testDB.SeedAccount(t, bob.ID, 1000000)

	numRounds := 25

	var wg sync.WaitGroup
	errsAB := make([]error, numRounds)
	errsBA := make([]error, numRounds)

	for i := 0; i < numRounds; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			_, errsAB[idx] = service.CreateTransfer(context.Background(), alice.ID, models.TransferRequest{
				ReceiverUsername: "bob",
				Amount:           10.00,
				FaceVerified:     true,
			})
		}(i)
		go func(idx int) {
			defer wg.Done()
			_, errsBA[idx] = service.CreateTransfer(context.Background(), bob.ID, models.TransferRequest{
				ReceiverUsername: "alice",
				Amount:           10.00,
				FaceVerified:     true,
			})
		}(i)
	}

	wg.Wait()

	for i := 0; i < numRounds; i++ {
		assert.NoError(t, errsAB[i], "alice->bob round %d", i)
		assert.NoError(t, errsBA[i], "bob->alice round %d", i)
	}

	// встречные переводы одинаковы, балансы должны вернуться к исходным
	aliceBalance, bobBalance := queryBalances(t, testDB, aliceAcc.ID, bobAcc.ID)
	assert.Equal(t, int64(1000000), aliceBalance)
	assert.Equal(t, int64(1000000), bobBalance)
}

func queryBalances(t *testing.T, testDB *testhelpers.TestDB, first, second uuid.UUID) (int64, int64) {
	t.Helper()

	var firstBalance, secondBalance int64
	err := testDB.Pool.QueryRow(context.Background(),
		"SELECT balance FROM accounts WHERE id = $1", first).Scan(&firstBalance)
	require.NoError(t, err)
	err = testDB.Pool.QueryRow(context.Background(),
		"SELECT balance FROM accounts WHERE id = $1", second).Scan(&secondBalance)
	require.NoError(t, err)

	return firstBalance, secondBalance
}
