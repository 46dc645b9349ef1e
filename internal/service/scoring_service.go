package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fraudguard/internal/cache"
	"fraudguard/internal/custom_err"
	"fraudguard/internal/models"
	"fraudguard/internal/scorer"

	"github.com/google/uuid"
)

type Scoring interface {
	CheckFraud(ctx context.Context, req models.FraudCheckRequest) (*models.FraudCheckResponse, error)
}

type ScoringService struct {
	scorer scorer.Scorer
	cache  cache.ScoreCache
	log    *slog.Logger
}

func NewScoringService(fraudScorer scorer.Scorer, scoreCache cache.ScoreCache, log *slog.Logger) *ScoringService {
	return &ScoringService{
		scorer: fraudScorer,
		cache:  scoreCache,
		log:    log,
	}
}

// CheckFraud проверяет произвольный контент (email, sms, телефон или
// описание транзакции) на признаки мошенничества. Повторная проверка
// того же контента отдается из кэша без обращения к модели.
func (s *ScoringService) CheckFraud(ctx context.Context, req models.FraudCheckRequest) (*models.FraudCheckResponse, error) {
	const op = "service.CheckFraud"

	if !req.DataType.IsValid() {
		return nil, custom_err.ErrInvalidDataType
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, custom_err.ErrInvalidInput
	}

	if result, ok := s.cache.Get(ctx, req.DataType, content); ok {
		s.log.Debug("вердикт взят из кэша", slog.String("data_type", string(req.DataType)))
		return buildFraudCheckResponse(result), nil
	}

	result, err := s.scorer.Analyze(ctx, req.DataType, content)
	if err != nil {
		s.log.Error("fraud analysis failed",
			slog.String("data_type", string(req.DataType)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, custom_err.ErrScoringUnavailable)
	}

	s.cache.Set(ctx, req.DataType, content, result)

	s.log.Info("fraud check completed",
		slog.String("data_type", string(req.DataType)),
		slog.Bool("is_fraud", result.IsFraud),
		slog.Float64("score", result.Score))

	return buildFraudCheckResponse(result), nil
}

func buildFraudCheckResponse(result *scorer.Result) *models.FraudCheckResponse {
	indicators := result.Indicators
	if indicators == nil {
		indicators = []string{}
	}
	return &models.FraudCheckResponse{
		IsFraud:     result.IsFraud,
		Score:       result.Score,
		Indicators:  indicators,
		Explanation: result.Reason,
		Severity:    result.Severity,
		RequestID:   uuid.New().String(),
	}
}
