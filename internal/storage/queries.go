package storage

const (
	// Account queries
	GetAccountByIDQuery = `
		SELECT id, user_id, balance, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	// Получить счет пользователя
	GetAccountByUserQuery = `
		SELECT id, user_id, balance, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
	`

	// Создать новый счет
	CreateAccountQuery = `
		INSERT INTO accounts (id, user_id, balance)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, balance, created_at, updated_at
	`

	// Transaction queries (с FOR UPDATE для блокировки строки счета)
	GetAccountBalanceForUpdateQuery = `
		SELECT balance
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	// Обновление баланса
	UpdateAccountBalanceQuery = `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`

	// Transfer queries
	CreateTransactionQuery = `
		INSERT INTO transactions (id, sender_id, receiver_id, amount, description, status, face_verified, fraud_score, fraud_reason, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	GetTransactionByIDQuery = `
		SELECT id, sender_id, receiver_id, amount, description, status,
		       fraud_score, fraud_reason, face_verified, created_at, resolved_at
		FROM transactions
		WHERE id = $1
	`

	ListTransactionsByAccountQuery = `
		SELECT id, sender_id, receiver_id, amount, description, status,
		       fraud_score, fraud_reason, face_verified, created_at, resolved_at
		FROM transactions
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	// Переход статуса только из ожидаемого (условный UPDATE против гонок)
	UpdateTransactionStatusQuery = `
		UPDATE transactions
		SET status = $1, resolved_at = $2
		WHERE id = $3 AND status = $4
	`

	// Запись вердикта скоринга; оценка записывается только один раз
	RecordFraudVerdictQuery = `
		UPDATE transactions
		SET status = $1, fraud_score = $2, fraud_reason = $3, resolved_at = $4
		WHERE id = $5 AND status = $6 AND fraud_score IS NULL
	`

	// User queries
	CreateUserQuery = `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, email, created_at, updated_at
	`

	GetUserByUsernameQuery = `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE username = $1
	`

	GetUserByIDQuery = `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`
)
