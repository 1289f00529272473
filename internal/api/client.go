// Package api is the HTTP client for the metered analysis service. It
// translates wire shapes into the typed outcome and error model and never
// retries on its own.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/iamsernine/aptoseidon/internal/model"
	"github.com/iamsernine/aptoseidon/internal/pkg/apperrors"
	"github.com/iamsernine/aptoseidon/internal/pkg/logger"
	"github.com/iamsernine/aptoseidon/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

// /analyze success envelope discriminator values.
const (
	statusOK         = "ok"
	statusPreCheckOK = "pre_check_ok"
	statusHighRisk   = "high_risk"
)

// maxErrorBody bounds raw bodies folded into error messages.
const maxErrorBody = 512

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: trimTrailingSlash(baseURL),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: timeout,
		},
		log: logger.With("component", "api_client"),
	}
}

// Analyze performs exactly one /analyze call. A well-formed 402 surfaces as
// an ErrPaymentRequired AppError carrying the challenge; everything else
// that is not a recognized success envelope is ErrRequestFailed.
func (c *Client) Analyze(ctx context.Context, req model.AnalysisRequest) (model.AnalysisOutcome, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/analyze", req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, errorFromResponse(status, body)
	}

	var env struct {
		Status   string            `json:"status"`
		Message  string            `json:"message"`
		PreCheck model.PreCheck    `json:"preCheck"`
		Report   *model.RiskReport `json:"report"`
		JobID    string            `json:"jobId"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.NewRequestFailed(fmt.Sprintf("malformed analysis response: %s", truncate(body)))
	}

	switch env.Status {
	case statusOK:
		if env.Report == nil || env.JobID == "" {
			return nil, apperrors.NewRequestFailed("analysis response missing report or job id")
		}
		return model.Complete{PreCheck: env.PreCheck, Report: *env.Report, JobID: env.JobID}, nil
	case statusPreCheckOK:
		return model.PreCheckOnly{PreCheck: env.PreCheck, Message: env.Message}, nil
	case statusHighRisk:
		return model.HighRisk{PreCheck: env.PreCheck, Message: env.Message}, nil
	default:
		return nil, apperrors.NewRequestFailed(fmt.Sprintf("unrecognized analysis status %q", env.Status))
	}
}

// RateJob submits a thumbs up/down for a completed job.
func (c *Client) RateJob(ctx context.Context, jobID string, rating model.Rating) (*model.RateResponse, error) {
	payload := map[string]any{"job_id": jobID, "rating": rating}
	status, body, err := c.do(ctx, http.MethodPost, "/reputation/rate", payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, errorFromResponse(status, body)
	}
	var resp model.RateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewRequestFailed(fmt.Sprintf("malformed rating response: %s", truncate(body)))
	}
	return &resp, nil
}

// JobRatings fetches the up/down counts for a job.
func (c *Client) JobRatings(ctx context.Context, jobID string) (*model.RatingCounts, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/reputation/rate/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, errorFromResponse(status, body)
	}
	var counts model.RatingCounts
	if err := json.Unmarshal(body, &counts); err != nil {
		return nil, apperrors.NewRequestFailed(fmt.Sprintf("malformed ratings response: %s", truncate(body)))
	}
	return &counts, nil
}

// History fetches the wallet's report ledger (server bounds it to the most
// recent 50 entries).
func (c *Client) History(ctx context.Context, walletAddress string) ([]model.HistoryItem, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/history/"+url.PathEscape(walletAddress), nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, errorFromResponse(status, body)
	}
	var resp model.HistoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewRequestFailed(fmt.Sprintf("malformed history response: %s", truncate(body)))
	}
	return resp.History, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, apperrors.New(apperrors.ErrInternal, "encode request", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, apperrors.New(apperrors.ErrInternal, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		c.log.Warn("upstream call failed", "path", path, "error", err)
		return 0, nil, apperrors.New(apperrors.ErrRequestFailed, fmt.Sprintf("analysis service unreachable: %v", err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, apperrors.New(apperrors.ErrRequestFailed, fmt.Sprintf("read response: %v", err), err)
	}
	return resp.StatusCode, body, nil
}

// errorFromResponse classifies a non-2xx response. Status 402 with a
// structured detail object becomes a payment challenge; any other shape at
// that status degrades to a generic failure rather than crashing on a
// malformed challenge.
func errorFromResponse(status int, body []byte) *apperrors.AppError {
	var wire struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	_ = json.Unmarshal(body, &wire)

	if status == http.StatusPaymentRequired {
		if ch, ok := parseChallenge(wire.Detail); ok {
			return apperrors.NewPaymentRequired(ch)
		}
	}

	if msg, ok := detailString(wire.Detail); ok {
		return apperrors.NewRequestFailed(msg)
	}
	if wire.Message != "" {
		return apperrors.NewRequestFailed(wire.Message)
	}
	return apperrors.NewRequestFailed(fmt.Sprintf("HTTP %d: %s", status, truncate(body)))
}

func parseChallenge(detail json.RawMessage) (apperrors.PaymentChallenge, bool) {
	var ch apperrors.PaymentChallenge
	if len(detail) == 0 {
		return ch, false
	}
	var wire struct {
		Recipient string      `json:"recipient"`
		Amount    json.Number `json:"amount"`
		Message   string      `json:"message"`
	}
	if err := json.Unmarshal(detail, &wire); err != nil {
		return ch, false
	}
	if wire.Recipient == "" || wire.Amount == "" {
		return ch, false
	}
	amount, err := decimal.NewFromString(wire.Amount.String())
	if err != nil {
		return ch, false
	}
	ch.Recipient = wire.Recipient
	ch.Amount = amount
	ch.Message = wire.Message
	return ch, true
}

func detailString(detail json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(detail, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
