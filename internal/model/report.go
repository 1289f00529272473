package model

// ProjectType enumerates the kinds of on-chain projects the analysis
// service accepts.
type ProjectType string

const (
	ProjectTypeCoin          ProjectType = "Coin"
	ProjectTypeSmartContract ProjectType = "Smart Contract"
	ProjectTypeICOIDO        ProjectType = "ICO/IDO"
	ProjectTypeNFT           ProjectType = "NFT Collection"
)

// RiskLevel is server-assigned. The client never recomputes it from the
// score; the server is the source of truth for the banding.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// PreCheck holds the free verification data returned before or alongside a
// full report.
type PreCheck struct {
	Age              string `json:"age"`
	Liquidity        string `json:"liquidity"`
	SocialMentions   string `json:"socialMentions"`
	ContractVerified bool   `json:"contractVerified"`
}

type MarketData struct {
	CoingeckoID string  `json:"coingecko_id"`
	PriceUSD    float64 `json:"price_usd"`
	MarketCap   float64 `json:"market_cap"`
	Vol24h      float64 `json:"vol_24h"`
	Change24h   float64 `json:"change_24h"`
	Symbol      string  `json:"symbol"`
}

type FinancialAnalysis struct {
	StructureScore string   `json:"structure_score"`
	Reasoning      string   `json:"reasoning"`
	Features       []string `json:"features"`
}

// RuleResult is one deterministic rule evaluation (PASS / FAIL / WARN).
type RuleResult struct {
	RuleID string `json:"rule_id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
	Source string `json:"source"`
}

type AgentConflict struct {
	HasConflict bool   `json:"has_conflict"`
	Reason      string `json:"reason"`
}

// RiskReport is the paid analysis payload.
type RiskReport struct {
	RiskScore         int                `json:"riskScore"`
	RiskLevel         RiskLevel          `json:"riskLevel"`
	Summary           string             `json:"summary"`
	InvestmentAdvice  string             `json:"investmentAdvice"`
	AuditDetails      []string           `json:"auditDetails"`
	RiskFlags         []string           `json:"riskFlags"`
	PositiveSignals   []string           `json:"positiveSignals"`
	MarketData        *MarketData        `json:"marketData,omitempty"`
	FinancialAnalysis *FinancialAnalysis `json:"financialAnalysis,omitempty"`
	RuleResults       []RuleResult       `json:"ruleResults,omitempty"`
	AgentConflict     *AgentConflict     `json:"agentConflict,omitempty"`
	Narrative         string             `json:"narrative,omitempty"`
}
