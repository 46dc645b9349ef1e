package scorer

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudguard/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func modelResponse(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]string{{"text": text}},
				},
			},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestAnalyze_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "Respond only in JSON format")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(modelResponse(`{
			"is_fraud": true,
			"confidence_score": 0.85,
			"fraud_indicators": ["urgency", "unknown receiver"],
			"explanation": "Suspicious transfer pattern",
			"severity": "high"
		}`)))
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "test-key", "gemini-2.5-flash", 5*time.Second, testLogger())

	result, err := client.Analyze(context.Background(), models.DataTypeTransaction, "Amount: 4000.00")

	require.NoError(t, err)
	assert.True(t, result.IsFraud)
	assert.InDelta(t, 0.85, result.Score, 0.0001)
	assert.Equal(t, []string{"urgency", "unknown receiver"}, result.Indicators)
	assert.Equal(t, "high", result.Severity)
}

func TestAnalyze_MarkdownWrappedVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		text := "Here is my analysis:\n```json\n{\"is_fraud\": false, \"confidence_score\": 0.1, \"explanation\": \"looks fine\", \"severity\": \"low\"}\n```"
		_, _ = w.Write([]byte(modelResponse(text)))
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "test-key", "gemini-2.5-flash", 5*time.Second, testLogger())

	result, err := client.Analyze(context.Background(), models.DataTypeEmail, "hello")

	require.NoError(t, err)
	assert.False(t, result.IsFraud)
	assert.InDelta(t, 0.1, result.Score, 0.0001)
}

func TestAnalyze_ScoreClamped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(modelResponse(`{"is_fraud": true, "confidence_score": 1.7}`)))
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "test-key", "gemini-2.5-flash", 5*time.Second, testLogger())

	result, err := client.Analyze(context.Background(), models.DataTypeSMS, "win a prize")

	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Score, 0.0001)
}

func TestAnalyze_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "test-key", "gemini-2.5-flash", 5*time.Second, testLogger())

	result, err := client.Analyze(context.Background(), models.DataTypePhone, "+1234567890")

	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 503")
}

func TestAnalyze_GarbageResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(modelResponse("I cannot analyze this content")))
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "test-key", "gemini-2.5-flash", 5*time.Second, testLogger())

	result, err := client.Analyze(context.Background(), models.DataTypeEmail, "hello")

	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestAnalyze_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(modelResponse(`{"is_fraud": false, "confidence_score": 0.0}`)))
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "test-key", "gemini-2.5-flash", 50*time.Millisecond, testLogger())

	result, err := client.Analyze(context.Background(), models.DataTypeEmail, "hello")

	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestParseVerdict_NoJSON(t *testing.T) {
	result, err := parseVerdict("no object here")

	assert.Nil(t, result)
	assert.Error(t, err)
}
