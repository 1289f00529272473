package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iamsernine/aptoseidon/internal/api"
	"github.com/iamsernine/aptoseidon/internal/history"
	"github.com/iamsernine/aptoseidon/internal/model"
	"github.com/iamsernine/aptoseidon/internal/payment"
	"github.com/iamsernine/aptoseidon/internal/repository"
	"github.com/iamsernine/aptoseidon/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type e2eWallet struct {
	hash  string
	calls int
}

func (w *e2eWallet) Session() wallet.Session {
	return wallet.Session{Address: "0xWALLET", Network: "testnet"}
}

func (w *e2eWallet) SignAndSubmitTransaction(_ context.Context, _ wallet.TransferPayload) (wallet.SubmitResult, error) {
	w.calls++
	return wallet.SubmitResult{Hash: w.hash}, nil
}

// Full gated-protocol round trip against a scripted upstream: probe is
// challenged, the wallet pays, the resubmission returns the report, and the
// purchase shows up in history.
func TestEndToEnd_PaidAnalysis(t *testing.T) {
	var mu sync.Mutex
	purchased := false

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/analyze":
			var req model.AnalysisRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Solana", req.ProjectURL)
			assert.Equal(t, model.ProjectTypeCoin, req.ProjectType)

			if req.PaymentTxHash == nil {
				w.WriteHeader(http.StatusPaymentRequired)
				fmt.Fprint(w, `{"detail":{"recipient":"0xSVC","amount":0.01,"message":"Pay"}}`)
				return
			}

			assert.Equal(t, "0xHASH1", *req.PaymentTxHash)
			mu.Lock()
			purchased = true
			mu.Unlock()
			fmt.Fprint(w, `{"status":"ok","preCheck":{"age":"2y","contractVerified":true},"report":{"riskScore":72,"riskLevel":"HIGH","summary":"elevated"},"jobId":"job-e2e"}`)

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/history/"):
			assert.Equal(t, "/history/0xWALLET", r.URL.Path)
			mu.Lock()
			has := purchased
			mu.Unlock()
			if !has {
				fmt.Fprint(w, `{"status":"ok","history":[]}`)
				return
			}
			fmt.Fprint(w, `{"status":"ok","history":[{"job_id":"job-e2e","project_type":"Coin","project_url":"Solana","created_at":"2026-08-31T10:00:00Z","report":{"preCheck":{"age":"2y","contractVerified":true},"report":{"riskScore":72,"riskLevel":"HIGH","summary":"elevated"}}}]}`)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	client := api.NewClient(upstream.URL, 5*time.Second)
	paying := &e2eWallet{hash: "0xHASH1"}
	cache := history.NewCache(client)
	runner := NewRunner(client, payment.NewOrchestrator(paying), cache, repository.NewMemReceiptStore(), "testnet")

	res, err := runner.Run(context.Background(), paying.Session(), Input{
		ProjectURL:  "Solana",
		ProjectType: model.ProjectTypeCoin,
	})
	require.NoError(t, err)

	complete, ok := res.Outcome.(model.Complete)
	require.True(t, ok)
	assert.Equal(t, 72, complete.Report.RiskScore)
	assert.True(t, res.HasPaid)
	assert.Equal(t, "job-e2e", res.JobID)
	assert.Equal(t, 1, paying.calls, "exactly one on-chain payment")

	items := cache.Items()
	require.Len(t, items, 1, "new history entry after the paid analysis")
	assert.Equal(t, "job-e2e", items[0].JobID)

	sel, ok := cache.Select("job-e2e")
	require.True(t, ok)
	assert.Equal(t, 72, sel.Report.RiskScore)
	assert.True(t, sel.HasPaid)
}
