package models

import (
	"time"

	"github.com/google/uuid"
)

// событие о переводе, отправленном на ручную проверку
type ReviewAlertEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"` // ID перевода
	SenderID      uuid.UUID `json:"sender_id"`      // счет отправителя
	ReceiverID    uuid.UUID `json:"receiver_id"`    // счет получателя
	Amount        float64   `json:"amount"`         // сумма перевода
	FraudScore    *float64  `json:"fraud_score"`    // оценка мошенничества, если получена
	Reason        string    `json:"reason"`         // причина удержания
	Timestamp     time.Time `json:"timestamp"`      // время события
}
