package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fraudguard/internal/models"
)

// Result вердикт скоринга для проверяемого контента
type Result struct {
	IsFraud    bool
	Score      float64
	Reason     string
	Indicators []string
	Severity   string
}

type Scorer interface {
	Analyze(ctx context.Context, dataType models.DataType, content string) (*Result, error)
}

type geminiClient struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	log        *slog.Logger
}

func NewGeminiClient(baseURL, apiKey, model string, timeout time.Duration, log *slog.Logger) Scorer {
	return &geminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type generateRequest struct {
	Contents []requestContent `json:"contents"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// verdict формат JSON, который модель должна вернуть в тексте ответа
type verdict struct {
	IsFraud    bool     `json:"is_fraud"`
	Score      float64  `json:"confidence_score"`
	Indicators []string `json:"fraud_indicators"`
	Reason     string   `json:"explanation"`
	Severity   string   `json:"severity"`
}

var analysisInstructions = map[models.DataType]string{
	models.DataTypeEmail: `Analyze the following email for fraud indicators. Look for:
- Phishing attempts
- Suspicious links or attachments
- Urgency tactics
- Impersonation
- Requests for sensitive information`,
	models.DataTypeSMS: `Analyze the following SMS message for fraud indicators. Look for:
- Smishing attempts
- Suspicious links
- Impersonation of banks or companies
- Prize or lottery scams
- Urgency or threatening language`,
	models.DataTypePhone: `Analyze the following phone number and call context for fraud indicators. Look for:
- Known spam or scam number patterns
- Suspicious area codes
- VoIP or temporary numbers
- Robocall indicators`,
	models.DataTypeTransaction: `Analyze the following money transfer for fraud indicators. Look for:
- Unusual transaction amounts
- Suspicious patterns
- High-risk receivers
- Money laundering indicators
- Account takeover signs`,
}

const responseFormat = `Respond only in JSON format:
{
    "is_fraud": true/false,
    "confidence_score": 0.0-1.0,
    "fraud_indicators": ["indicator1", "indicator2"],
    "explanation": "Brief explanation",
    "severity": "low/medium/high"
}`

func (c *geminiClient) Analyze(ctx context.Context, dataType models.DataType, content string) (*Result, error) {
	const op = "scorer.Analyze"

	instructions, ok := analysisInstructions[dataType]
	if !ok {
		return nil, fmt.Errorf("%s: unsupported data type %q", op, dataType)
	}

	prompt := fmt.Sprintf("%s\n\nContent:\n%s\n\n%s", instructions, content, responseFormat)

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Contents: []requestContent{{Parts: []requestPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("ошибка запроса к скорингу",
			slog.String("op", op),
			slog.String("data_type", string(dataType)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Error("скоринг вернул ошибку",
			slog.String("op", op),
			slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	duration := time.Since(start)
	if duration > 3*time.Second {
		c.log.Warn("медленный запрос к скорингу",
			slog.String("op", op),
			slog.Duration("duration", duration))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%s: empty model response", op)
	}

	result, err := parseVerdict(genResp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.log.Debug("получен вердикт скоринга",
		slog.String("data_type", string(dataType)),
		slog.Float64("score", result.Score),
		slog.Bool("is_fraud", result.IsFraud))

	return result, nil
}

// parseVerdict извлекает JSON-вердикт из текстового ответа модели; модель
// может обернуть его в markdown или пояснительный текст.
func parseVerdict(text string) (*Result, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var v verdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("invalid verdict JSON: %w", err)
	}

	score := v.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return &Result{
		IsFraud:    v.IsFraud,
		Score:      score,
		Reason:     v.Reason,
		Indicators: v.Indicators,
		Severity:   v.Severity,
	}, nil
}
