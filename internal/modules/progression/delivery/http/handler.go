package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"vigorfit.com/progressionengine/internal/modules/progression/dto"
	progressionService "vigorfit.com/progressionengine/internal/modules/progression/service"
	"vigorfit.com/progressionengine/pkg/apperror"
	"vigorfit.com/progressionengine/pkg/response"
	"vigorfit.com/progressionengine/pkg/validator"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 50
)

type ProgressionHandler struct {
	service progressionService.ProgressionService
}

func NewProgressionHandler(service progressionService.ProgressionService) *ProgressionHandler {
	return &ProgressionHandler{service: service}
}

func (h *ProgressionHandler) GetProgression(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("member_id"))
	if err != nil {
		response.ResponseError(c, apperror.ErrBadRequest)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), memberID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (h *ProgressionHandler) GetMyProgression(c *gin.Context) {
	memberID, err := response.GetMemberID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), memberID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (h *ProgressionHandler) GetLeaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLeaderboardLimit)))
	if err != nil || limit < 1 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	entries, err := h.service.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h *ProgressionHandler) Grant(c *gin.Context) {
	var req dto.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.Grant(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
