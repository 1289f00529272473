package model

import "time"

// AnalysisRecord is the persisted trail of one settled analysis attempt.
type AnalysisRecord struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	WalletAddress string    `json:"wallet_address" gorm:"index"`
	ProjectURL    string    `json:"project_url"`
	ProjectType   string    `json:"project_type"`
	JobID         string    `json:"job_id" gorm:"index"`
	RiskScore     int       `json:"risk_score"`
	RiskLevel     string    `json:"risk_level"`
	EvidenceOnly  bool      `json:"evidence_only"`
	Paid          bool      `json:"paid"`
	PaymentTxHash string    `json:"payment_tx_hash"`
	AmountOctas   uint64    `json:"amount_octas"`
	CreatedAt     time.Time `json:"created_at"`
}
