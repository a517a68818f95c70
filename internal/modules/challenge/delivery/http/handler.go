package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	challengeDto "vigorfit.com/progressionengine/internal/modules/challenge/dto"
	challengeService "vigorfit.com/progressionengine/internal/modules/challenge/service"
	progressionService "vigorfit.com/progressionengine/internal/modules/progression/service"
	"vigorfit.com/progressionengine/pkg/apperror"
	"vigorfit.com/progressionengine/pkg/response"
	"vigorfit.com/progressionengine/pkg/validator"
)

type ChallengeHandler struct {
	service challengeService.ChallengeService
	cache   progressionService.SummaryInvalidator
}

func NewChallengeHandler(service challengeService.ChallengeService, cache progressionService.SummaryInvalidator) *ChallengeHandler {
	return &ChallengeHandler{service: service, cache: cache}
}

func (h *ChallengeHandler) Enroll(c *gin.Context) {
	memberID, err := response.GetMemberID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.ResponseError(c, apperror.ErrBadRequest)
		return
	}

	summary, err := h.service.Enroll(c.Request.Context(), memberID, challengeID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	h.cache.InvalidateSummary(c.Request.Context(), memberID)
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (h *ChallengeHandler) RecordDay(c *gin.Context) {
	memberID, err := response.GetMemberID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.ResponseError(c, apperror.ErrBadRequest)
		return
	}

	var req challengeDto.RecordDayRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	activityDate := time.Time{}
	if req.ActivityDate != "" {
		activityDate, _ = time.Parse(challengeDto.DateLayout, req.ActivityDate)
	}

	result, err := h.service.RecordDay(c.Request.Context(), memberID, challengeID, activityDate, req.Notes)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	h.cache.InvalidateSummary(c.Request.Context(), memberID)
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *ChallengeHandler) UndoDay(c *gin.Context) {
	memberID, err := response.GetMemberID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	challengeID, err := uuid.Parse(c.Param("challenge_id"))
	if err != nil {
		response.ResponseError(c, apperror.ErrBadRequest)
		return
	}

	activityDate, err := time.Parse(challengeDto.DateLayout, c.Param("date"))
	if err != nil {
		response.ResponseError(c, apperror.ErrBadRequest)
		return
	}

	result, err := h.service.UndoDay(c.Request.Context(), memberID, challengeID, activityDate)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	h.cache.InvalidateSummary(c.Request.Context(), memberID)
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *ChallengeHandler) CreateChallenge(c *gin.Context) {
	var input challengeDto.CreateChallengeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	challenge, err := h.service.CreateChallenge(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": challenge})
}

func (h *ChallengeHandler) ListCatalog(c *gin.Context) {
	memberID, err := response.GetMemberID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	entries, err := h.service.ListCatalog(c.Request.Context(), memberID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
