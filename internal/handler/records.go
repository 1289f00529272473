package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/iamsernine/aptoseidon/internal/pkg/apperrors"
	"github.com/iamsernine/aptoseidon/internal/repository"
)

type RecordsHandler struct {
	repo    repository.RecordRepo
	address string
}

func NewRecordsHandler(repo repository.RecordRepo, address string) *RecordsHandler {
	return &RecordsHandler{repo: repo, address: address}
}

// List returns the audit trail of settled analyses for the gateway wallet.
func (h *RecordsHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.Error(apperrors.NewInvalidRequest("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	records, err := h.repo.ListByWallet(c.Request.Context(), h.address, limit)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInternal, "failed to list analysis records", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "records": records})
}
