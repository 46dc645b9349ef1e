package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus статус денежного перевода
type TransactionStatus string

const (
	StatusSubmitted TransactionStatus = "SUBMITTED"
	StatusScoring   TransactionStatus = "SCORING"
	StatusHold      TransactionStatus = "HOLD"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// допустимые переходы статусов; переходы только вперед
var statusTransitions = map[TransactionStatus][]TransactionStatus{
	StatusSubmitted: {StatusScoring, StatusCompleted},
	StatusScoring:   {StatusHold, StatusCompleted},
	StatusHold:      {StatusCompleted, StatusCancelled},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

func (s TransactionStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// IsResolved сообщает, достигнут ли конечный статус (средства либо
// переведены, либо перевод отменен)
func (s TransactionStatus) IsResolved() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo проверяет допустимость перехода в следующий статус
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transaction представляет денежный перевод между счетами
type Transaction struct {
	ID           uuid.UUID         `json:"id" db:"id"`
	SenderID     uuid.UUID         `json:"sender_id" db:"sender_id"`
	ReceiverID   uuid.UUID         `json:"receiver_id" db:"receiver_id"`
	Amount       int64             `json:"-" db:"amount"`
	Description  string            `json:"description,omitempty" db:"description"`
	Status       TransactionStatus `json:"status" db:"status"`
	FraudScore   *float64          `json:"fraud_score,omitempty" db:"fraud_score"`
	FraudReason  *string           `json:"fraud_reason,omitempty" db:"fraud_reason"`
	FaceVerified bool              `json:"face_verified" db:"face_verified"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	ResolvedAt   *time.Time        `json:"resolved_at,omitempty" db:"resolved_at"`
}

// TransferRequest запрос на перевод средств
type TransferRequest struct {
	ReceiverUsername string  `json:"receiver_username"`
	Amount           float64 `json:"amount"`
	Description      string  `json:"description,omitempty"`
	FaceVerified     bool    `json:"face_verified"`
}

// TransferResponse ответ на запрос перевода
type TransferResponse struct {
	TransactionID uuid.UUID         `json:"transaction_id"`
	Status        TransactionStatus `json:"status"`
	Amount        float64           `json:"amount"`
	FraudScore    *float64          `json:"fraud_score,omitempty"`
	FraudReason   *string           `json:"fraud_reason,omitempty"`
	Message       string            `json:"message"`
}

// ResolveResponse ответ на одобрение или отмену перевода
type ResolveResponse struct {
	TransactionID uuid.UUID         `json:"transaction_id"`
	Status        TransactionStatus `json:"status"`
	Message       string            `json:"message"`
}

// TransactionView представление перевода в истории операций
type TransactionView struct {
	ID           uuid.UUID         `json:"id"`
	SenderID     uuid.UUID         `json:"sender_id"`
	ReceiverID   uuid.UUID         `json:"receiver_id"`
	Amount       float64           `json:"amount"`
	Description  string            `json:"description,omitempty"`
	Status       TransactionStatus `json:"status"`
	FraudScore   *float64          `json:"fraud_score,omitempty"`
	FraudReason  *string           `json:"fraud_reason,omitempty"`
	FaceVerified bool              `json:"face_verified"`
	CreatedAt    time.Time         `json:"created_at"`
	ResolvedAt   *time.Time        `json:"resolved_at,omitempty"`
}

// TransactionListResponse ответ со списком переводов пользователя
type TransactionListResponse struct {
	Transactions []TransactionView `json:"transactions"`
}

// View конвертирует запись перевода в представление для API
func (t *Transaction) View() TransactionView {
	return TransactionView{
		ID:           t.ID,
		SenderID:     t.SenderID,
		ReceiverID:   t.ReceiverID,
		Amount:       AmountFromMinorUnits(t.Amount),
		Description:  t.Description,
		Status:       t.Status,
		FraudScore:   t.FraudScore,
		FraudReason:  t.FraudReason,
		FaceVerified: t.FaceVerified,
		CreatedAt:    t.CreatedAt,
		ResolvedAt:   t.ResolvedAt,
	}
}
