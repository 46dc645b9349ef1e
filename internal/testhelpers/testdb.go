package testhelpers

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"fraudguard/internal/db"
	"fraudguard/internal/models"
)

// TestDB оборачивает пул соединений к тестовой базе. База задается
// переменной окружения TEST_DATABASE_URL, без нее тесты пропускаются.
type TestDB struct {
	Pool *pgxpool.Pool
	dsn  string
}

func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL не задан, интеграционный тест пропущен")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(context.Background()))

	return &TestDB{Pool: pool, dsn: dsn}
}

func (d *TestDB) RunMigrations(t *testing.T) {
	t.Helper()
	require.NoError(t, db.RunMigrations(d.dsn, migrationsDir(t)))
}

func (d *TestDB) CleanupDB(t *testing.T) {
	t.Helper()
	_, err := d.Pool.Exec(context.Background(),
		"TRUNCATE transactions, accounts, users CASCADE")
	require.NoError(t, err)
}

func (d *TestDB) TeardownTestDB() {
	d.Pool.Close()
}

func (d *TestDB) SeedUser(t *testing.T, username string) *models.User {
	t.Helper()

	user := &models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
	}
	_, err := d.Pool.Exec(context.Background(),
		"INSERT INTO users (id, username, email, password_hash) VALUES ($1, $2, $3, $4)",
		user.ID, user.Username, user.Email, "not-a-real-hash")
	require.NoError(t, err)

	return user
}

func (d *TestDB) SeedAccount(t *testing.T, userID uuid.UUID, balance int64) *models.Account {
	t.Helper()

	account := &models.Account{
		ID:      uuid.New(),
		UserID:  userID,
		Balance: balance,
	}
	_, err := d.Pool.Exec(context.Background(),
		"INSERT INTO accounts (id, user_id, balance) VALUES ($1, $2, $3)",
		account.ID, account.UserID, account.Balance)
	require.NoError(t, err)

	return account
}

func migrationsDir(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "не удалось определить путь до файлов миграций")
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")
}
