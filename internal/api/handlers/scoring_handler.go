package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fraudguard/internal/api/middlew"
	"fraudguard/internal/custom_err"
	"fraudguard/internal/models"
	"fraudguard/internal/service"
	"fraudguard/pkg/response"
)

type ScoringHandler struct {
	service service.Scoring
}

func NewScoringHandler(service service.Scoring) *ScoringHandler {
	return &ScoringHandler{
		service: service,
	}
}

// CheckFraud godoc
// @Summary      Проверить контент на мошенничество
// @Description  Анализирует email, sms, телефон или описание транзакции через AI-модель
// @Tags         fraud
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body models.FraudCheckRequest true "Контент для проверки"
// @Success      200 {object} models.FraudCheckResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Router       /fraud-check [post]
func (h *ScoringHandler) CheckFraud(w http.ResponseWriter, r *http.Request) {
	const op = "handler.CheckFraud"
	log := middlew.GetLogger(r.Context())

	defer r.Body.Close()

	var req models.FraudCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	result, err := h.service.CheckFraud(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInvalidDataType):
			log.Warn("invalid data type", slog.String("op", op), slog.String("data_type", string(req.DataType)))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_data_type",
				"data_type must be one of: email, sms, phone, transaction")
		case errors.Is(err, custom_err.ErrInvalidInput):
			log.Warn("empty content", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_input", "content is required")
		case errors.Is(err, custom_err.ErrScoringUnavailable):
			log.Error("scoring unavailable", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusServiceUnavailable, "scoring_unavailable",
				"Fraud analysis is temporarily unavailable")
		default:
			log.Error("failed to check fraud", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}
