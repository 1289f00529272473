package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/iamsernine/aptoseidon/internal/api"
	"github.com/iamsernine/aptoseidon/internal/config"
	"github.com/iamsernine/aptoseidon/internal/history"
	"github.com/iamsernine/aptoseidon/internal/model"
	"github.com/iamsernine/aptoseidon/internal/payment"
	"github.com/iamsernine/aptoseidon/internal/pkg/apperrors"
	"github.com/iamsernine/aptoseidon/internal/pkg/logger"
	"github.com/iamsernine/aptoseidon/internal/repository"
	"github.com/iamsernine/aptoseidon/internal/wallet"
	"github.com/iamsernine/aptoseidon/internal/workflow"
)

// One-shot analysis run from the command line. Pays for the report with the
// configured key if the service demands it, then prints the result as JSON.
func main() {
	var (
		projectURL   = flag.String("url", "", "project URL to analyze")
		projectType  = flag.String("type", string(model.ProjectTypeCoin), "project type (Coin, Smart Contract, ICO/IDO, NFT Collection)")
		evidenceOnly = flag.Bool("evidence-only", false, "run the free pre-check without buying a report")
		logLevel     = flag.String("log-level", "warn", "log level")
		timeout      = flag.Duration("timeout", 3*time.Minute, "overall deadline for the attempt")
	)
	flag.Parse()

	logger.Init(*logLevel)

	if *projectURL == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -url <project-url> [-type <project-type>] [-evidence-only]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	payerWallet, err := wallet.NewKeyWallet(cfg.Chain.PrivateKey, cfg.Chain.Network, cfg.Chain.RPCURL)
	if err != nil {
		log.Fatalf("Failed to initialize payer wallet: %v", err)
	}

	client := api.NewClient(cfg.Upstream.BaseURL, time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second)
	cache := history.NewCache(client)
	cache.SetAddress(payerWallet.Session().Address)

	runner := workflow.NewRunner(
		client,
		payment.NewOrchestrator(payerWallet),
		cache,
		repository.NewMemReceiptStore(),
		cfg.Chain.Network,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := runner.Run(ctx, payerWallet.Session(), workflow.Input{
		ProjectURL:   *projectURL,
		ProjectType:  model.ProjectType(*projectType),
		EvidenceOnly: *evidenceOnly,
	})
	if err != nil {
		appErr := apperrors.Wrap(err)
		fmt.Fprintf(os.Stderr, "analysis failed (%s): %s\n", appErr.Type, appErr.Message)
		if appErr.Suggestion != "" {
			fmt.Fprintln(os.Stderr, appErr.Suggestion)
		}
		os.Exit(1)
	}

	out := map[string]any{
		"preCheck": res.PreCheck,
		"message":  res.Message,
		"has_paid": res.HasPaid,
	}
	if res.Report != nil {
		out["report"] = res.Report
		out["jobId"] = res.JobID
	}
	if res.PaymentTxHash != "" {
		out["payment_tx_hash"] = res.PaymentTxHash
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}
