// Package payment turns a payment challenge into a settled transaction
// hash using the wallet collaborator.
package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/iamsernine/aptoseidon/internal/pkg/apperrors"
	"github.com/iamsernine/aptoseidon/internal/pkg/logger"
	"github.com/iamsernine/aptoseidon/internal/pkg/metrics"
	"github.com/iamsernine/aptoseidon/internal/units"
	"github.com/iamsernine/aptoseidon/internal/wallet"
)

type Orchestrator struct {
	wallet wallet.Wallet
	log    *slog.Logger
}

func NewOrchestrator(w wallet.Wallet) *Orchestrator {
	return &Orchestrator{
		wallet: w,
		log:    logger.With("component", "payment"),
	}
}

// Settle submits at most one on-chain transfer for the challenge and never
// retries: a failed payment must be re-triggered by a fresh user action,
// since retrying silently could double-charge.
//
// Failures are either ErrUserCancelled (the signer reported a user
// rejection) or ErrTransactionFailed (anything else).
func (o *Orchestrator) Settle(ctx context.Context, ch apperrors.PaymentChallenge) (string, error) {
	octas, err := units.ToOctas(ch.Amount)
	if err != nil {
		return "", err
	}

	o.log.Info("settling payment challenge",
		"recipient", ch.Recipient,
		"amount", ch.Amount.String(),
		"octas", octas,
	)

	result, err := o.wallet.SignAndSubmitTransaction(ctx, wallet.NativeTransfer(ch.Recipient, octas))
	if err != nil {
		if errors.Is(err, wallet.ErrDeclined) {
			metrics.PaymentsTotal.WithLabelValues("cancelled").Inc()
			return "", apperrors.NewUserCancelled()
		}
		metrics.PaymentsTotal.WithLabelValues("failed").Inc()
		return "", apperrors.NewTransactionFailed("transaction rejected or failed", err)
	}
	if result.Hash == "" {
		metrics.PaymentsTotal.WithLabelValues("failed").Inc()
		return "", apperrors.NewTransactionFailed("wallet returned no transaction hash", nil)
	}

	metrics.PaymentsTotal.WithLabelValues("settled").Inc()
	o.log.Info("payment submitted", "tx_hash", result.Hash)
	return result.Hash, nil
}
