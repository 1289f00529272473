package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iamsernine/aptoseidon/internal/history"
	"github.com/iamsernine/aptoseidon/internal/model"
	"github.com/iamsernine/aptoseidon/internal/pkg/apperrors"
)

type HistoryHandler struct {
	cache   *history.Cache
	address string
}

func NewHistoryHandler(cache *history.Cache, address string) *HistoryHandler {
	return &HistoryHandler{cache: cache, address: address}
}

// List serves the cached report history for the gateway wallet.
// Pass ?refresh=true to fetch from the analysis service first.
func (h *HistoryHandler) List(c *gin.Context) {
	var items []model.HistoryItem
	if c.Query("refresh") == "true" {
		items = h.cache.Refresh(c.Request.Context(), h.address)
	} else {
		items = h.cache.Items()
	}
	if items == nil {
		items = []model.HistoryItem{}
	}

	c.JSON(http.StatusOK, model.HistoryResponse{Status: "ok", History: items})
}

type selectRequest struct {
	JobID string `json:"job_id" binding:"required"`
}

type selectResponse struct {
	Status   string           `json:"status"`
	JobID    string           `json:"jobId"`
	PreCheck model.PreCheck   `json:"preCheck"`
	Report   model.RiskReport `json:"report"`
	HasPaid  bool             `json:"has_paid"`
}

// Select returns a single cached report by job ID without touching the
// analysis service.
func (h *HistoryHandler) Select(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	sel, ok := h.cache.Select(req.JobID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cached report for job " + req.JobID})
		return
	}

	c.JSON(http.StatusOK, selectResponse{
		Status:   "ok",
		JobID:    sel.JobID,
		PreCheck: sel.PreCheck,
		Report:   sel.Report,
		HasPaid:  sel.HasPaid,
	})
}
