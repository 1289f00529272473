// Package workflow sequences the payment-gated analysis protocol:
// probe, settle the challenge if one arrives, fetch the full report.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iamsernine/aptoseidon/internal/history"
	"github.com/iamsernine/aptoseidon/internal/model"
	"github.com/iamsernine/aptoseidon/internal/pkg/apperrors"
	"github.com/iamsernine/aptoseidon/internal/pkg/logger"
	"github.com/iamsernine/aptoseidon/internal/pkg/metrics"
	"github.com/iamsernine/aptoseidon/internal/repository"
	"github.com/iamsernine/aptoseidon/internal/units"
	"github.com/iamsernine/aptoseidon/internal/wallet"
)

// State names one phase of an analysis attempt.
type State string

const (
	StateIdle            State = "idle"
	StateProbing         State = "probing"
	StateAwaitingPayment State = "awaiting_payment"
	StatePaying          State = "paying"
	StateFinalizing      State = "finalizing"
	StateSettled         State = "settled"
	StateFailed          State = "failed"
)

// Notifier observes state transitions (progress streaming, logging).
type Notifier interface {
	Notify(attemptID string, state State, detail string)
}

type NotifierFunc func(attemptID string, state State, detail string)

func (f NotifierFunc) Notify(attemptID string, state State, detail string) {
	f(attemptID, state, detail)
}

// AnalysisAPI is the gated upstream call. One network call per invocation.
type AnalysisAPI interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (model.AnalysisOutcome, error)
}

// Settler turns a challenge into a submitted transaction hash.
type Settler interface {
	Settle(ctx context.Context, ch apperrors.PaymentChallenge) (string, error)
}

type Input struct {
	ProjectURL   string
	ProjectType  model.ProjectType
	EvidenceOnly bool
}

// Result is published atomically: pre-check, report, job id and paid flag
// are only ever set together, on a fully settled attempt.
type Result struct {
	Outcome       model.AnalysisOutcome
	PreCheck      model.PreCheck
	Report        *model.RiskReport
	JobID         string
	Message       string
	HasPaid       bool
	PaymentTxHash string
}

type Runner struct {
	api      AnalysisAPI
	payments Settler
	history  *history.Cache
	receipts repository.ReceiptStore
	records  repository.RecordRepo
	notifier Notifier
	network  string
	log      *slog.Logger
}

// NewRunner wires the workflow. network is the single supported wallet
// network; attempts on any other network are refused up front.
func NewRunner(api AnalysisAPI, payments Settler, hist *history.Cache, receipts repository.ReceiptStore, network string) *Runner {
	if receipts == nil {
		receipts = repository.NewMemReceiptStore()
	}
	return &Runner{
		api:      api,
		payments: payments,
		history:  hist,
		receipts: receipts,
		network:  network,
		log:      logger.With("component", "workflow"),
	}
}

// SetRecords enables the persisted audit trail of settled analyses.
func (r *Runner) SetRecords(repo repository.RecordRepo) {
	r.records = repo
}

// SetNotifier enables progress notifications.
func (r *Runner) SetNotifier(n Notifier) {
	r.notifier = n
}

// Run drives one attempt: Idle → Probing → (AwaitingPayment → Paying) →
// Finalizing → Settled, or Failed. The session is captured once here and
// never re-read mid-attempt. At most one payment challenge is honored per
// attempt; a second challenge after settlement is a protocol violation.
func (r *Runner) Run(ctx context.Context, sess wallet.Session, in Input) (*Result, error) {
	attemptID := uuid.New().String()
	log := r.log.With("attempt_id", attemptID, "wallet", sess.Address)

	projectURL := strings.TrimSpace(in.ProjectURL)
	if projectURL == "" {
		return nil, apperrors.NewInvalidRequest("project url is required")
	}
	if sess.Address == "" {
		return nil, apperrors.NewInvalidRequest("no wallet connected")
	}
	if sess.Network != r.network {
		// Mismatch aborts before any network call.
		return nil, apperrors.NewInvalidRequest(
			fmt.Sprintf("wallet is on %s, switch to %s to proceed", sess.Network, r.network))
	}

	base := model.AnalysisRequest{
		ProjectURL:    projectURL,
		ProjectType:   in.ProjectType,
		WalletAddress: sess.Address,
		PaymentTxHash: nil,
		RequestMode:   model.ModeFull,
		EvidenceOnly:  in.EvidenceOnly,
	}

	var txHash string
	var paidOctas uint64

	if in.EvidenceOnly {
		// Evidence-only never requires payment, by contract of the
		// service: skip the probe entirely.
		log.Info("evidence-only attempt, skipping probe")
	} else {
		r.notify(attemptID, StateProbing, "")
		outcome, err := r.api.Analyze(ctx, base)
		if err == nil {
			// Server chose not to challenge (already paid, or free
			// tier): the flow is settled without payment.
			log.Info("probe settled without challenge")
			return r.finish(ctx, attemptID, sess, in, outcome, "", 0)
		}

		ch, challenged := apperrors.ChallengeFrom(err)
		if !challenged {
			return nil, r.fail(attemptID, log, in, err)
		}

		metrics.ChallengesTotal.Inc()
		r.notify(attemptID, StateAwaitingPayment, ch.Message)
		txHash, paidOctas, err = r.settleChallenge(ctx, attemptID, log, sess, *ch)
		if err != nil {
			return nil, r.fail(attemptID, log, in, err)
		}
	}

	r.notify(attemptID, StateFinalizing, "")
	final := base
	if txHash != "" {
		final = base.WithPaymentTxHash(txHash)
	}
	outcome, err := r.api.Analyze(ctx, final)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrPaymentRequired) {
			// The finalize call must not re-challenge under correct
			// server behavior; honoring it would risk a double charge.
			err = apperrors.NewRequestFailed("analysis service demanded payment again after settlement")
		}
		return nil, r.fail(attemptID, log, in, err)
	}

	return r.finish(ctx, attemptID, sess, in, outcome, txHash, paidOctas)
}

func (r *Runner) settleChallenge(ctx context.Context, attemptID string, log *slog.Logger, sess wallet.Session, ch apperrors.PaymentChallenge) (string, uint64, error) {
	octas, err := units.ToOctas(ch.Amount)
	if err != nil {
		return "", 0, err
	}

	amount := ch.Amount.String()
	if hash, ok := r.receipts.Get(ctx, sess.Address, ch.Recipient, amount); ok {
		log.Info("reusing recorded payment receipt", "tx_hash", hash)
		r.notify(attemptID, StatePaying, "reusing recorded payment")
		return hash, octas, nil
	}

	r.notify(attemptID, StatePaying, "")
	hash, err := r.payments.Settle(ctx, ch)
	if err != nil {
		return "", 0, err
	}
	if err := r.receipts.Put(ctx, sess.Address, ch.Recipient, amount, hash); err != nil {
		log.Warn("failed to record payment receipt", "error", err)
	}
	return hash, octas, nil
}

func (r *Runner) finish(ctx context.Context, attemptID string, sess wallet.Session, in Input, outcome model.AnalysisOutcome, txHash string, paidOctas uint64) (*Result, error) {
	res := &Result{
		Outcome:       outcome,
		HasPaid:       !in.EvidenceOnly || txHash != "",
		PaymentTxHash: txHash,
	}

	switch o := outcome.(type) {
	case model.PreCheckOnly:
		res.PreCheck = o.PreCheck
		res.Message = o.Message
	case model.HighRisk:
		res.PreCheck = o.PreCheck
		res.Message = o.Message
	case model.Complete:
		res.PreCheck = o.PreCheck
		report := o.Report
		res.Report = &report
		res.JobID = o.JobID
		if r.history != nil {
			r.history.Refresh(ctx, sess.Address)
		}
		r.record(ctx, sess, in, o, txHash, paidOctas)
	}

	metrics.AnalysesTotal.WithLabelValues("settled", modeLabel(in)).Inc()
	r.notify(attemptID, StateSettled, "")
	return res, nil
}

func (r *Runner) fail(attemptID string, log *slog.Logger, in Input, err error) error {
	status := "failed"
	if apperrors.IsType(err, apperrors.ErrUserCancelled) {
		status = "cancelled"
	}
	metrics.AnalysesTotal.WithLabelValues(status, modeLabel(in)).Inc()
	log.Warn("analysis attempt failed", "status", status, "error", err)
	r.notify(attemptID, StateFailed, apperrors.Wrap(err).Message)
	return err
}

func (r *Runner) record(ctx context.Context, sess wallet.Session, in Input, o model.Complete, txHash string, paidOctas uint64) {
	if r.records == nil {
		return
	}
	rec := &model.AnalysisRecord{
		ID:            uuid.New().String(),
		WalletAddress: sess.Address,
		ProjectURL:    strings.TrimSpace(in.ProjectURL),
		ProjectType:   string(in.ProjectType),
		JobID:         o.JobID,
		RiskScore:     o.Report.RiskScore,
		RiskLevel:     string(o.Report.RiskLevel),
		EvidenceOnly:  in.EvidenceOnly,
		Paid:          txHash != "",
		PaymentTxHash: txHash,
		AmountOctas:   paidOctas,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.records.Insert(ctx, rec); err != nil {
		r.log.Warn("failed to persist analysis record", "job_id", o.JobID, "error", err)
	}
}

func (r *Runner) notify(attemptID string, state State, detail string) {
	if r.notifier != nil {
		r.notifier.Notify(attemptID, state, detail)
	}
}

func modeLabel(in Input) string {
	if in.EvidenceOnly {
		return "evidence_only"
	}
	return "full"
}
