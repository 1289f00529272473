package workflow

import (
	"context"
	"sync"
	"testing"

	"github.com/iamsernine/aptoseidon/internal/history"
	"github.com/iamsernine/aptoseidon/internal/model"
	"github.com/iamsernine/aptoseidon/internal/pkg/apperrors"
	"github.com/iamsernine/aptoseidon/internal/repository"
	"github.com/iamsernine/aptoseidon/internal/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type analyzeReply struct {
	outcome model.AnalysisOutcome
	err     error
}

type scriptedAPI struct {
	mu       sync.Mutex
	requests []model.AnalysisRequest
	replies  []analyzeReply
}

func (s *scriptedAPI) Analyze(_ context.Context, req model.AnalysisRequest) (model.AnalysisOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return nil, apperrors.NewRequestFailed("no scripted reply")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply.outcome, reply.err
}

type fakeSettler struct {
	hash       string
	err        error
	challenges []apperrors.PaymentChallenge
}

func (f *fakeSettler) Settle(_ context.Context, ch apperrors.PaymentChallenge) (string, error) {
	f.challenges = append(f.challenges, ch)
	if f.err != nil {
		return "", f.err
	}
	return f.hash, nil
}

type fakeHistoryFetcher struct {
	items []model.HistoryItem
	calls int
}

func (f *fakeHistoryFetcher) History(_ context.Context, _ string) ([]model.HistoryItem, error) {
	f.calls++
	return f.items, nil
}

func challengeErr(recipient, amount string) error {
	return apperrors.NewPaymentRequired(apperrors.PaymentChallenge{
		Recipient: recipient,
		Amount:    decimal.RequireFromString(amount),
		Message:   "Pay",
	})
}

func completeOutcome(jobID string, score int) model.AnalysisOutcome {
	return model.Complete{
		PreCheck: model.PreCheck{Age: "2y", ContractVerified: true},
		Report:   model.RiskReport{RiskScore: score, RiskLevel: model.RiskHigh, Summary: "s"},
		JobID:    jobID,
	}
}

func testSession() wallet.Session {
	return wallet.Session{Address: "0xWALLET", Network: "testnet"}
}

func newTestRunner(api AnalysisAPI, settler Settler, fetcher history.Fetcher) *Runner {
	return NewRunner(api, settler, history.NewCache(fetcher), repository.NewMemReceiptStore(), "testnet")
}

func TestRun_ChallengeThenFinalize(t *testing.T) {
	api := &scriptedAPI{replies: []analyzeReply{
		{err: challengeErr("0xSVC", "0.01")},
		{outcome: completeOutcome("job-1", 72)},
	}}
	settler := &fakeSettler{hash: "0xABC"}
	fetcher := &fakeHistoryFetcher{}
	r := newTestRunner(api, settler, fetcher)

	res, err := r.Run(context.Background(), testSession(), Input{
		ProjectURL:  "Solana",
		ProjectType: model.ProjectTypeCoin,
	})
	require.NoError(t, err)

	require.Len(t, api.requests, 2)
	first, second := api.requests[0], api.requests[1]
	assert.Nil(t, first.PaymentTxHash)
	require.NotNil(t, second.PaymentTxHash)
	assert.Equal(t, "0xABC", *second.PaymentTxHash)

	// All other fields identical between probe and finalize.
	second.PaymentTxHash = nil
	assert.Equal(t, first, second)

	require.Len(t, settler.challenges, 1)
	assert.Equal(t, "0xSVC", settler.challenges[0].Recipient)

	assert.True(t, res.HasPaid)
	assert.Equal(t, "job-1", res.JobID)
	require.NotNil(t, res.Report)
	assert.Equal(t, 72, res.Report.RiskScore)
	assert.Equal(t, "0xABC", res.PaymentTxHash)
	assert.Equal(t, 1, fetcher.calls, "history refreshes after a complete report")
}

func TestRun_EvidenceOnlyNeverPays(t *testing.T) {
	api := &scriptedAPI{replies: []analyzeReply{
		{outcome: model.PreCheckOnly{PreCheck: model.PreCheck{Age: "1m"}, Message: "evidence"}},
	}}
	settler := &fakeSettler{hash: "0xNOPE"}
	r := newTestRunner(api, settler, &fakeHistoryFetcher{})

	res, err := r.Run(context.Background(), testSession(), Input{
		ProjectURL:   "Solana",
		ProjectType:  model.ProjectTypeCoin,
		EvidenceOnly: true,
	})
	require.NoError(t, err)

	require.Len(t, api.requests, 1, "evidence-only skips the probe")
	assert.Nil(t, api.requests[0].PaymentTxHash)
	assert.True(t, api.requests[0].EvidenceOnly)

	assert.Empty(t, settler.challenges, "orchestrator must never be invoked")
	assert.False(t, res.HasPaid, "evidence-only without a hash is not paid")
}

func TestRun_ProbeSettlesWithoutChallenge(t *testing.T) {
	api := &scriptedAPI{replies: []analyzeReply{
		{outcome: completeOutcome("job-free", 12)},
	}}
	settler := &fakeSettler{hash: "0xNOPE"}
	r := newTestRunner(api, settler, &fakeHistoryFetcher{})

	res, err := r.Run(context.Background(), testSession(), Input{
		ProjectURL:  "Solana",
		ProjectType: model.ProjectTypeCoin,
	})
	require.NoError(t, err)

	assert.Len(t, api.requests, 1)
	assert.Empty(t, settler.challenges)
	assert.True(t, res.HasPaid)
	assert.Equal(t, "job-free", res.JobID)
	assert.Empty(t, res.PaymentTxHash)
}

func TestRun_SecondChallengeIsProtocolViolation(t *testing.T) {
	api := &scriptedAPI{replies: []analyzeReply{
		{err: challengeErr("0xSVC", "0.01")},
		{err: challengeErr("0xSVC", "0.02")},
	}}
	settler := &fakeSettler{hash: "0xABC"}
	r := newTestRunner(api, settler, &fakeHistoryFetcher{})

	_, err := r.Run(context.Background(), testSession(), Input{
		ProjectURL:  "Solana",
		ProjectType: model.ProjectTypeCoin,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrRequestFailed))
	assert.False(t, apperrors.IsType(err, apperrors.ErrPaymentRequired))
	assert.Len(t, settler.challenges, 1, "the workflow must not loop on payment")
}

func TestRun_UserCancellationIsDistinct(t *testing.T) {
	api := &scriptedAPI{replies: []analyzeReply{
		{err: challengeErr("0xSVC", "0.01")},
	}}
	settler := &fakeSettler{err: apperrors.NewUserCancelled()}
	r := newTestRunner(api, settler, &fakeHistoryFetcher{})

	_, err := r.Run(context.Background(), testSession(), Input{
		ProjectURL:  "Solana",
		ProjectType: model.ProjectTypeCoin,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrUserCancelled))
	assert.Equal(t, "Transaction cancelled.", apperrors.Wrap(err).Message)
	assert.Len(t, api.requests, 1, "no finalize call after cancellation")
}

func TestRun_ProbeFailureAborts(t *testing.T) {
	api := &scriptedAPI{replies: []analyzeReply{
		{err: apperrors.NewRequestFailed("backend exploded")},
	}}
	settler := &fakeSettler{hash: "0xABC"}
	r := newTestRunner(api, settler, &fakeHistoryFetcher{})

	_, err := r.Run(context.Background(), testSession(), Input{
		ProjectURL:  "Solana",
		ProjectType: model.ProjectTypeCoin,
	})
	require.Error(t, err)
	assert.EqualError(t, err, "backend exploded")
	assert.Len(t, api.requests, 1)
	assert.Empty(t, settler.challenges)
}

func TestRun_GuardsAbortBeforeAnyNetworkCall(t *testing.T) {
	cases := []struct {
		name string
		sess wallet.Session
		in   Input
	}{
		{"empty input", testSession(), Input{ProjectURL: "   "}},
		{"no wallet", wallet.Session{Network: "testnet"}, Input{ProjectURL: "Solana"}},
		{"wrong network", wallet.Session{Address: "0xW", Network: "mainnet"}, Input{ProjectURL: "Solana"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &scriptedAPI{}
			r := newTestRunner(api, &fakeSettler{}, &fakeHistoryFetcher{})

			_, err := r.Run(context.Background(), tc.sess, tc.in)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrInvalidRequest))
			assert.Empty(t, api.requests)
		})
	}
}

func TestRun_ReceiptReusePreventsDoubleCharge(t *testing.T) {
	receipts := repository.NewMemReceiptStore()
	require.NoError(t, receipts.Put(context.Background(), "0xWALLET", "0xSVC", "0.01", "0xOLD"))

	api := &scriptedAPI{replies: []analyzeReply{
		{err: challengeErr("0xSVC", "0.01")},
		{outcome: completeOutcome("job-1", 50)},
	}}
	settler := &fakeSettler{hash: "0xNEW"}
	r := NewRunner(api, settler, history.NewCache(&fakeHistoryFetcher{}), receipts, "testnet")

	res, err := r.Run(context.Background(), testSession(), Input{
		ProjectURL:  "Solana",
		ProjectType: model.ProjectTypeCoin,
	})
	require.NoError(t, err)

	assert.Empty(t, settler.challenges, "recorded receipt must be reused, not re-paid")
	assert.Equal(t, "0xOLD", res.PaymentTxHash)
	require.NotNil(t, api.requests[1].PaymentTxHash)
	assert.Equal(t, "0xOLD", *api.requests[1].PaymentTxHash)
}

func TestRun_StateTransitions(t *testing.T) {
	api := &scriptedAPI{replies: []analyzeReply{
		{err: challengeErr("0xSVC", "0.01")},
		{outcome: completeOutcome("job-1", 72)},
	}}
	r := newTestRunner(api, &fakeSettler{hash: "0xABC"}, &fakeHistoryFetcher{})

	var states []State
	r.SetNotifier(NotifierFunc(func(_ string, s State, _ string) {
		states = append(states, s)
	}))

	_, err := r.Run(context.Background(), testSession(), Input{
		ProjectURL:  "Solana",
		ProjectType: model.ProjectTypeCoin,
	})
	require.NoError(t, err)
	assert.Equal(t, []State{StateProbing, StateAwaitingPayment, StatePaying, StateFinalizing, StateSettled}, states)
}

type memRecords struct {
	records []*model.AnalysisRecord
}

func (m *memRecords) Insert(_ context.Context, rec *model.AnalysisRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memRecords) ListByWallet(_ context.Context, _ string, _ int) ([]model.AnalysisRecord, error) {
	out := make([]model.AnalysisRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, *r)
	}
	return out, nil
}

func TestRun_RecordsSettledAnalysis(t *testing.T) {
	api := &scriptedAPI{replies: []analyzeReply{
		{err: challengeErr("0xSVC", "0.01")},
		{outcome: completeOutcome("job-1", 72)},
	}}
	r := newTestRunner(api, &fakeSettler{hash: "0xABC"}, &fakeHistoryFetcher{})
	records := &memRecords{}
	r.SetRecords(records)

	_, err := r.Run(context.Background(), testSession(), Input{
		ProjectURL:  "Solana",
		ProjectType: model.ProjectTypeCoin,
	})
	require.NoError(t, err)

	require.Len(t, records.records, 1)
	rec := records.records[0]
	assert.Equal(t, "job-1", rec.JobID)
	assert.Equal(t, "0xWALLET", rec.WalletAddress)
	assert.True(t, rec.Paid)
	assert.Equal(t, "0xABC", rec.PaymentTxHash)
	assert.Equal(t, uint64(1_000_000), rec.AmountOctas)
}
