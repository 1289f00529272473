package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iamsernine/aptoseidon/internal/api"
	"github.com/iamsernine/aptoseidon/internal/model"
	"github.com/iamsernine/aptoseidon/internal/pkg/apperrors"
)

type ReputationHandler struct {
	client *api.Client
}

func NewReputationHandler(client *api.Client) *ReputationHandler {
	return &ReputationHandler{client: client}
}

type rateRequest struct {
	JobID  string       `json:"job_id" binding:"required"`
	Rating model.Rating `json:"rating" binding:"required"`
}

func (h *ReputationHandler) Rate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if req.Rating != model.RatingUp && req.Rating != model.RatingDown {
		c.Error(apperrors.NewInvalidRequest("rating must be up or down"))
		return
	}

	resp, err := h.client.RateJob(c.Request.Context(), req.JobID, req.Rating)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReputationHandler) Ratings(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.Error(apperrors.NewInvalidRequest("job_id is required"))
		return
	}

	counts, err := h.client.JobRatings(c.Request.Context(), jobID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, counts)
}
