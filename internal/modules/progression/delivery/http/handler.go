package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"anoa.com/venti/internal/entity"
	"anoa.com/venti/internal/modules/progression/curve"
	progressionDto "anoa.com/venti/internal/modules/progression/dto"
	progression "anoa.com/venti/internal/modules/progression/service"
	"anoa.com/venti/pkg/response"
	"anoa.com/venti/pkg/validator"
)

const defaultCurveLevels = 20

type XPHandler struct {
	service progression.XPService
}

func NewXPHandler(service progression.XPService) *XPHandler {
	return &XPHandler{service: service}
}

func (h *XPHandler) GetMyStats(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *XPHandler) GetHistory(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query progressionDto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	logs, err := h.service.GetHistory(c.Request.Context(), userID, query.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (h *XPHandler) GetCurve(c *gin.Context) {
	var query progressionDto.CurveQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	if query.Levels == 0 {
		query.Levels = defaultCurveLevels
	}

	c.JSON(http.StatusOK, gin.H{"data": curve.Table(query.Levels)})
}

func (h *XPHandler) ClaimLoginStreak(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req progressionDto.LoginStreakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.AwardLoginStreak(c.Request.Context(), userID, req.StreakDays)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *XPHandler) StartSession(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	sessionID, err := h.service.StartActivitySession(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"session_id": sessionID}})
}

func (h *XPHandler) EndSession(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.EndActivitySession(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, progression.ErrNoActiveSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": "nothing to end"})
			return
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

// Admin

func (h *XPHandler) GrantXP(c *gin.Context) {
	var req progressionDto.GrantXPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	res, err := h.service.AddXP(c.Request.Context(), userID, req.Amount, entity.XPReason(req.Reason), req.Description)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *XPHandler) GrantXPToAll(c *gin.Context) {
	var req progressionDto.BulkGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.GrantAll(c.Request.Context(), req.Amount, entity.XPReason(req.Reason), req.Description, req.DryRun)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *XPHandler) AwardBadge(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req progressionDto.AwardBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.AwardBadge(c.Request.Context(), userID, req.Badge)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}
