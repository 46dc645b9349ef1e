package models

import (
	"time"

	"github.com/google/uuid"
)

// Account представляет денежный счет пользователя (демо-валюта)
type Account struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Balance   int64     `json:"balance" db:"balance"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BalanceResponse ответ с балансом счета
type BalanceResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Balance   float64   `json:"balance"`
}

// AmountToMinorUnits конвертирует сумму в основных единицах в минимальные единицы
func AmountToMinorUnits(amount float64) int64 {
	return int64(amount*100 + 0.5)
}

// AmountFromMinorUnits конвертирует минимальные единицы в основные
func AmountFromMinorUnits(amount int64) float64 {
	return float64(amount) / 100.0
}
