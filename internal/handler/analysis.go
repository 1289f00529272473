package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iamsernine/aptoseidon/internal/model"
	"github.com/iamsernine/aptoseidon/internal/pkg/apperrors"
	"github.com/iamsernine/aptoseidon/internal/wallet"
	"github.com/iamsernine/aptoseidon/internal/workflow"
)

// AnalysisRunner is the slice of the workflow runner the HTTP surface needs.
type AnalysisRunner interface {
	Run(ctx context.Context, sess wallet.Session, in workflow.Input) (*workflow.Result, error)
}

type AnalysisHandler struct {
	runner AnalysisRunner
	wallet wallet.Wallet
}

func NewAnalysisHandler(runner AnalysisRunner, w wallet.Wallet) *AnalysisHandler {
	return &AnalysisHandler{runner: runner, wallet: w}
}

type analyzeRequest struct {
	ProjectURL   string            `json:"project_url" binding:"required"`
	ProjectType  model.ProjectType `json:"project_type"`
	EvidenceOnly bool              `json:"evidence_only"`
}

// analyzeResponse mirrors the upstream wire shape so existing consumers of
// the analysis service can point at the gateway without changes.
type analyzeResponse struct {
	Status        string            `json:"status"`
	Message       string            `json:"message,omitempty"`
	PreCheck      model.PreCheck    `json:"preCheck"`
	Report        *model.RiskReport `json:"report,omitempty"`
	JobID         string            `json:"jobId,omitempty"`
	HasPaid       bool              `json:"has_paid"`
	PaymentTxHash string            `json:"payment_tx_hash,omitempty"`
}

func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if req.ProjectType == "" {
		req.ProjectType = model.ProjectTypeCoin
	}

	res, err := h.runner.Run(c.Request.Context(), h.wallet.Session(), workflow.Input{
		ProjectURL:   req.ProjectURL,
		ProjectType:  req.ProjectType,
		EvidenceOnly: req.EvidenceOnly,
	})
	if err != nil {
		c.Error(err)
		return
	}

	resp := analyzeResponse{
		Message:       res.Message,
		PreCheck:      res.PreCheck,
		Report:        res.Report,
		JobID:         res.JobID,
		HasPaid:       res.HasPaid,
		PaymentTxHash: res.PaymentTxHash,
	}
	switch res.Outcome.(type) {
	case model.PreCheckOnly:
		resp.Status = "pre_check_ok"
	case model.HighRisk:
		resp.Status = "high_risk"
	default:
		resp.Status = "ok"
	}

	c.JSON(http.StatusOK, resp)
}
