package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iamsernine/aptoseidon/internal/model"
	"github.com/iamsernine/aptoseidon/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func fullRequest() model.AnalysisRequest {
	return model.AnalysisRequest{
		ProjectURL:    "Solana",
		ProjectType:   model.ProjectTypeCoin,
		WalletAddress: "0xWALLET",
		RequestMode:   model.ModeFull,
	}
}

func TestAnalyze_PaymentChallenge(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze", r.URL.Path)

		var body model.AnalysisRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Nil(t, body.PaymentTxHash)

		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"detail":{"recipient":"0xR","amount":0.01,"message":"Pay"}}`))
	})

	_, err := client.Analyze(context.Background(), fullRequest())
	require.Error(t, err)

	ch, ok := apperrors.ChallengeFrom(err)
	require.True(t, ok, "expected a payment challenge, got %v", err)
	assert.Equal(t, "0xR", ch.Recipient)
	assert.True(t, ch.Amount.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, "Pay", ch.Message)
}

func TestAnalyze_MalformedChallengeDegrades(t *testing.T) {
	cases := map[string]string{
		"string detail":     `{"detail":"payment required"}`,
		"missing recipient": `{"detail":{"amount":0.01}}`,
		"missing amount":    `{"detail":{"recipient":"0xR"}}`,
		"non-json body":     `payment required`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusPaymentRequired)
				w.Write([]byte(body))
			})

			_, err := client.Analyze(context.Background(), fullRequest())
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrRequestFailed))
			assert.False(t, apperrors.IsType(err, apperrors.ErrPaymentRequired))
		})
	}
}

func TestAnalyze_OutcomeVariants(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"ok","preCheck":{"age":"2y","liquidity":"high","socialMentions":"many","contractVerified":true},"report":{"riskScore":72,"riskLevel":"HIGH","summary":"s"},"jobId":"job-1"}`))
		})

		outcome, err := client.Analyze(context.Background(), fullRequest())
		require.NoError(t, err)

		complete, ok := outcome.(model.Complete)
		require.True(t, ok)
		assert.Equal(t, "job-1", complete.JobID)
		assert.Equal(t, 72, complete.Report.RiskScore)
		assert.Equal(t, model.RiskHigh, complete.Report.RiskLevel)
		assert.True(t, complete.PreCheck.ContractVerified)
	})

	t.Run("pre_check_ok", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"pre_check_ok","message":"free tier","preCheck":{"age":"1m"}}`))
		})

		outcome, err := client.Analyze(context.Background(), fullRequest())
		require.NoError(t, err)

		pre, ok := outcome.(model.PreCheckOnly)
		require.True(t, ok)
		assert.Equal(t, "free tier", pre.Message)
		assert.Equal(t, "1m", pre.PreCheck.Age)
	})

	t.Run("high_risk", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"high_risk","message":"run away","preCheck":{"age":"1d"}}`))
		})

		outcome, err := client.Analyze(context.Background(), fullRequest())
		require.NoError(t, err)

		hr, ok := outcome.(model.HighRisk)
		require.True(t, ok)
		assert.Equal(t, "run away", hr.Message)
	})

	t.Run("unrecognized status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"maybe_ok","preCheck":{}}`))
		})

		_, err := client.Analyze(context.Background(), fullRequest())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrRequestFailed))
		assert.Contains(t, err.Error(), "maybe_ok")
	})

	t.Run("ok without report", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"ok","preCheck":{}}`))
		})

		_, err := client.Analyze(context.Background(), fullRequest())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrRequestFailed))
	})
}

func TestAnalyze_GenericFailureMessages(t *testing.T) {
	t.Run("detail string", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"backend exploded"}`))
		})

		_, err := client.Analyze(context.Background(), fullRequest())
		require.Error(t, err)
		assert.EqualError(t, err, "backend exploded")
	})

	t.Run("raw body is truncated", func(t *testing.T) {
		huge := make([]byte, 4096)
		for i := range huge {
			huge[i] = 'x'
		}
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write(huge)
		})

		_, err := client.Analyze(context.Background(), fullRequest())
		require.Error(t, err)
		assert.Less(t, len(err.Error()), 600)
		assert.Contains(t, err.Error(), "HTTP 502")
	})
}

func TestAnalyze_TransportFailure(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second)

	_, err := client.Analyze(context.Background(), fullRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrRequestFailed))
}

func TestReputationEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/reputation/rate":
			var body struct {
				JobID  string `json:"job_id"`
				Rating string `json:"rating"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "job-9", body.JobID)
			w.Write([]byte(`{"status":"ok","job_id":"job-9","rating":"up"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/reputation/rate/job-9":
			w.Write([]byte(`{"job_id":"job-9","up":3,"down":1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	resp, err := client.RateJob(context.Background(), "job-9", model.RatingUp)
	require.NoError(t, err)
	assert.Equal(t, model.RatingUp, resp.Rating)

	counts, err := client.JobRatings(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Up)
	assert.Equal(t, 1, counts.Down)
}

func TestHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/history/0xWALLET", r.URL.Path)
		w.Write([]byte(`{"status":"ok","history":[{"job_id":"job-2","project_type":"Coin","project_url":"Solana","created_at":"2026-08-30T12:00:00Z","report":{"preCheck":{"age":"2y"},"report":{"riskScore":10,"riskLevel":"LOW"}}}]}`))
	})

	items, err := client.History(context.Background(), "0xWALLET")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "job-2", items[0].JobID)
	assert.Equal(t, 10, items[0].Report.Report.RiskScore)
	assert.Equal(t, 2026, items[0].ParsedCreatedAt().Year())
}
