package model

import "time"

type RequestMode string

const (
	ModePreCheck RequestMode = "pre_check"
	ModeFull     RequestMode = "full"
)

// AnalysisRequest is the /analyze request body. Values are immutable once
// built; the challenge-then-retry sequence produces two distinct requests
// sharing every field except PaymentTxHash.
type AnalysisRequest struct {
	ProjectURL    string      `json:"project_url"`
	ProjectType   ProjectType `json:"project_type"`
	WalletAddress string      `json:"wallet_address"`
	PaymentTxHash *string     `json:"payment_tx_hash"`
	RequestMode   RequestMode `json:"request_mode"`
	EvidenceOnly  bool        `json:"evidence_only"`
}

// WithPaymentTxHash returns a copy of the request carrying the settled
// transaction hash.
func (r AnalysisRequest) WithPaymentTxHash(hash string) AnalysisRequest {
	r.PaymentTxHash = &hash
	return r
}

// AnalysisOutcome is the closed union over the three /analyze success
// shapes. Exactly one variant is produced per successful call.
type AnalysisOutcome interface {
	analysisOutcome()
}

// PreCheckOnly is the free tier result: verification data, no report.
type PreCheckOnly struct {
	PreCheck PreCheck
	Message  string
}

// HighRisk means the service refused to sell a full report because the
// free checks already flagged the project.
type HighRisk struct {
	PreCheck PreCheck
	Message  string
}

// Complete carries the paid report and its server-assigned job ID.
type Complete struct {
	PreCheck PreCheck
	Report   RiskReport
	JobID    string
}

func (PreCheckOnly) analysisOutcome() {}
func (HighRisk) analysisOutcome()     {}
func (Complete) analysisOutcome()     {}

type Rating string

const (
	RatingUp   Rating = "up"
	RatingDown Rating = "down"
)

type RateResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
	Rating Rating `json:"rating"`
}

type RatingCounts struct {
	JobID string `json:"job_id"`
	Up    int    `json:"up"`
	Down  int    `json:"down"`
}

// HistoryReport nests the pre-check and paid report inside a history entry.
type HistoryReport struct {
	PreCheck PreCheck   `json:"preCheck"`
	Report   RiskReport `json:"report"`
}

// HistoryItem is one entry of a wallet's report ledger. Keyed by JobID;
// ordering is server-provided and never changed client-side.
type HistoryItem struct {
	JobID       string        `json:"job_id"`
	ProjectType ProjectType   `json:"project_type"`
	ProjectURL  string        `json:"project_url"`
	CreatedAt   string        `json:"created_at"`
	Report      HistoryReport `json:"report"`
}

// ParsedCreatedAt converts the server timestamp into time.Time when possible.
func (h HistoryItem) ParsedCreatedAt() time.Time {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, h.CreatedAt); err == nil {
			return ts
		}
	}
	return time.Time{}
}

type HistoryResponse struct {
	Status  string        `json:"status"`
	History []HistoryItem `json:"history"`
}
