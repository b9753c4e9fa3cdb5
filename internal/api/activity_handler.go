package api

import (
	"fmt"
	"net/http"
	"time"

	"plansly/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ActivityHandler exposes activity proposals, voting and confirmation.
// It shares the plan service because activities live inside plans.
type ActivityHandler struct {
	planService service.PlanService
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(planService service.PlanService) *ActivityHandler {
	return &ActivityHandler{planService: planService}
}

type CreateActivityRequest struct {
	Name          string    `json:"name" binding:"required"`
	Description   string    `json:"description"`
	Link          string    `json:"link"`
	Cost          float64   `json:"cost" binding:"gte=0"`
	CostPerPerson bool      `json:"is_per_person"`
	StartTime     time.Time `json:"start_time" binding:"required"`
	EndTime       time.Time `json:"end_time" binding:"required"`
	Country       string    `json:"country"`
	State         string    `json:"state"`
	City          string    `json:"city"`
}

// CreateActivity proposes a new activity on an active plan.
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	var req CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	activity, err := h.planService.CreateActivity(c.Request.Context(), planID, userID, service.CreateActivityInput{
		Name:          req.Name,
		Description:   req.Description,
		Link:          req.Link,
		Cost:          req.Cost,
		CostPerPerson: req.CostPerPerson,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Country:       req.Country,
		State:         req.State,
		City:          req.City,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, activity)
}

// GetActivity returns a single activity of a plan.
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	activity, err := h.planService.GetActivity(c.Request.Context(), planID, userID, c.Param("activityId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, activity)
}

// VoteActivity toggles the caller's vote on the activity.
func (h *ActivityHandler) VoteActivity(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	plan, err := h.planService.VoteActivity(c.Request.Context(), planID, userID, c.Param("activityId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// LockActivity confirms the activity ahead of a unanimous vote.
func (h *ActivityHandler) LockActivity(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	plan, err := h.planService.LockActivity(c.Request.Context(), planID, userID, c.Param("activityId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// UpdateActivity applies allow-listed edits to the activity.
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	activity, err := h.planService.UpdateActivity(c.Request.Context(), planID, userID, c.Param("activityId"), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, activity)
}

// DeleteActivity removes a proposed activity.
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	if err := h.planService.DeleteActivity(c.Request.Context(), planID, userID, c.Param("activityId")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
