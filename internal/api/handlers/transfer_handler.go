package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"fraudguard/internal/api/middlew"
	"fraudguard/internal/custom_err"
	"fraudguard/internal/models"
	"fraudguard/internal/service"
	"fraudguard/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type TransferHandler struct {
	service service.Transfer
}

func NewTransferHandler(service service.Transfer) *TransferHandler {
	return &TransferHandler{
		service: service,
	}
}

// CreateTransfer godoc
// @Summary      Перевести средства
// @Description  Создает перевод; крупные переводы проходят фрод-скоринг и могут быть заморожены
// @Tags         transfer
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body models.TransferRequest true "Данные перевода"
// @Success      201 {object} models.TransferResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /transfers [post]
func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	const op = "handler.CreateTransfer"
	log := middlew.GetLogger(r.Context())

	defer r.Body.Close()

	userID := middlew.GetUserID(r.Context())

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	log.Info("transfer request",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
		slog.String("receiver", req.ReceiverUsername),
		slog.Float64("amount", req.Amount))

	result, err := h.service.CreateTransfer(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInvalidAmount):
			log.Warn("invalid amount", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_amount", "Amount must be positive")
		case errors.Is(err, custom_err.ErrInvalidInput):
			log.Warn("invalid input", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_input", "receiver_username is required")
		case errors.Is(err, custom_err.ErrSelfTransfer):
			log.Warn("self transfer attempt", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "self_transfer", "Cannot transfer to your own account")
		case errors.Is(err, custom_err.ErrNotFound):
			log.Info("receiver not found", slog.String("op", op), slog.String("receiver", req.ReceiverUsername))
			response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Receiver not found")
		case errors.Is(err, custom_err.ErrInsufficientFunds):
			log.Warn("insufficient funds", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "insufficient_funds", "Insufficient funds")
		default:
			log.Error("failed to create transfer", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusCreated, result)
}

// ApproveTransfer godoc
// @Summary      Одобрить замороженный перевод
// @Description  Завершает перевод в статусе HOLD; средства двигаются в момент одобрения
// @Tags         transfer
// @Security     BearerAuth
// @Produce      json
// @Param        transactionID path string true "ID транзакции"
// @Success      200 {object} models.ResolveResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Router       /transfers/{transactionID}/approve [post]
func (h *TransferHandler) ApproveTransfer(w http.ResponseWriter, r *http.Request) {
	h.resolveTransfer(w, r, "handler.ApproveTransfer", h.service.Approve)
}

// CancelTransfer godoc
// @Summary      Отменить замороженный перевод
// @Description  Отклоняет перевод в статусе HOLD; балансы не меняются
// @Tags         transfer
// @Security     BearerAuth
// @Produce      json
// @Param        transactionID path string true "ID транзакции"
// @Success      200 {object} models.ResolveResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Router       /transfers/{transactionID}/cancel [post]
func (h *TransferHandler) CancelTransfer(w http.ResponseWriter, r *http.Request) {
	h.resolveTransfer(w, r, "handler.CancelTransfer", h.service.Cancel)
}

func (h *TransferHandler) resolveTransfer(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	resolve func(ctx context.Context, userID, transactionID uuid.UUID) (*models.ResolveResponse, error),
) {
	log := middlew.GetLogger(r.Context())

	userID := middlew.GetUserID(r.Context())

	idStr := chi.URLParam(r, "transactionID")
	transactionID, err := uuid.Parse(idStr)
	if err != nil {
		log.Warn("invalid UUID", slog.String("op", op), slog.String("uuid", idStr))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_request", "Invalid transaction ID format")
		return
	}

	result, err := resolve(r.Context(), userID, transactionID)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrNotFound):
			log.Info("transaction not found", slog.String("op", op), slog.String("tx_id", transactionID.String()))
			response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Transaction not found")
		case errors.Is(err, custom_err.ErrNotParticipant):
			log.Warn("not a participant", slog.String("op", op), slog.String("tx_id", transactionID.String()))
			response.WriteJSONError(w, log, http.StatusForbidden, "forbidden", "Only the sender can resolve this transfer")
		case errors.Is(err, custom_err.ErrAlreadyResolved):
			log.Info("transaction already resolved", slog.String("op", op), slog.String("tx_id", transactionID.String()))
			response.WriteJSONError(w, log, http.StatusConflict, "already_resolved", "Transaction is already resolved")
		case errors.Is(err, custom_err.ErrNotOnHold):
			log.Info("transaction not on hold", slog.String("op", op), slog.String("tx_id", transactionID.String()))
			response.WriteJSONError(w, log, http.StatusConflict, "not_on_hold", "Transaction is not on hold")
		case errors.Is(err, custom_err.ErrInsufficientFunds):
			log.Warn("insufficient funds", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "insufficient_funds", "Insufficient funds")
		default:
			log.Error("failed to resolve transfer", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}

// GetBalance godoc
// @Summary      Получить баланс счета
// @Tags         account
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} models.BalanceResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /balance [get]
func (h *TransferHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetBalance"
	log := middlew.GetLogger(r.Context())

	userID := middlew.GetUserID(r.Context())

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		log.Error("failed to get balance", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Failed to retrieve balance")
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, balance)
}

// GetTransaction godoc
// @Summary      Получить перевод по ID
// @Tags         transfer
// @Security     BearerAuth
// @Produce      json
// @Param        transactionID path string true "ID транзакции"
// @Success      200 {object} models.TransactionView
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /transactions/{transactionID} [get]
func (h *TransferHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetTransaction"
	log := middlew.GetLogger(r.Context())

	userID := middlew.GetUserID(r.Context())

	idStr := chi.URLParam(r, "transactionID")
	transactionID, err := uuid.Parse(idStr)
	if err != nil {
		log.Warn("invalid UUID", slog.String("op", op), slog.String("uuid", idStr))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_request", "Invalid transaction ID format")
		return
	}

	txn, err := h.service.GetTransaction(r.Context(), userID, transactionID)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrNotFound):
			log.Info("transaction not found", slog.String("op", op), slog.String("tx_id", transactionID.String()))
			response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Transaction not found")
		case errors.Is(err, custom_err.ErrNotParticipant):
			log.Warn("not a participant", slog.String("op", op), slog.String("tx_id", transactionID.String()))
			response.WriteJSONError(w, log, http.StatusForbidden, "forbidden", "Not a participant of this transaction")
		default:
			log.Error("failed to get transaction", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, txn)
}

// ListTransactions godoc
// @Summary      История переводов
// @Description  Возвращает переводы пользователя, сначала новые
// @Tags         transfer
// @Security     BearerAuth
// @Produce      json
// @Param        limit query int false "Максимум записей (по умолчанию 50)"
// @Success      200 {object} models.TransactionListResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /transactions [get]
func (h *TransferHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	const op = "handler.ListTransactions"
	log := middlew.GetLogger(r.Context())

	userID := middlew.GetUserID(r.Context())

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			log.Warn("invalid limit", slog.String("op", op), slog.String("limit", limitStr))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_request", "limit must be an integer")
			return
		}
		limit = parsed
	}

	txns, err := h.service.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		log.Error("failed to list transactions", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, models.TransactionListResponse{
		Transactions: txns,
	})
}
