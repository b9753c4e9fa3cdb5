package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"plansly/backend/internal/domain"
	"plansly/backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanHandler exposes the plan lifecycle over HTTP.
type PlanHandler struct {
	planService service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- Request Structs ---

type CreatePlanRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Type        string     `json:"type" binding:"required,oneof=trip event group_purchase"`
	Theme       string     `json:"theme"`
	Location    string     `json:"location"`
	IsPublic    bool       `json:"is_public"`
	Deadline    *time.Time `json:"deadline"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

type MemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// --- Handler Methods ---

// CreatePlan creates a plan with the caller as organizer.
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), userID, service.CreatePlanInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        domain.PlanType(req.Type),
		Theme:       req.Theme,
		Location:    req.Location,
		IsPublic:    req.IsPublic,
		Deadline:    req.Deadline,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GetPlans lists the plans the caller organizes, administers or
// participates in.
func (h *PlanHandler) GetPlans(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	plans, err := h.planService.GetPlans(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plans)
}

// GetPlan returns one plan, subject to visibility.
func (h *PlanHandler) GetPlan(c *gin.Context) {
	userID, _ := getUserIDFromContext(c)
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.GetPlan(c.Request.Context(), planID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// UpdatePlan applies organizer edits to the plan's mutable fields.
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	plan, err := h.planService.UpdatePlan(c.Request.Context(), planID, userID, fields)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// LockPlan freezes the plan for payment collection.
func (h *PlanHandler) LockPlan(c *gin.Context) {
	h.transition(c, h.planService.LockPlan)
}

// UnlockPlan reopens a locked plan.
func (h *PlanHandler) UnlockPlan(c *gin.Context) {
	h.transition(c, h.planService.UnlockPlan)
}

// ConfirmPlan marks a locked plan as finalized.
func (h *PlanHandler) ConfirmPlan(c *gin.Context) {
	h.transition(c, h.planService.ConfirmPlan)
}

// Pay settles the caller's share across the plan's confirmed
// activities.
func (h *PlanHandler) Pay(c *gin.Context) {
	h.transition(c, h.planService.Pay)
}

// transition runs one of the state changes that share the
// (planID, userID) shape and return the updated plan.
func (h *PlanHandler) transition(c *gin.Context, op func(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error)) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	plan, err := op(c.Request.Context(), planID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// AddParticipant adds a user to the plan without going through the
// invitation link.
func (h *PlanHandler) AddParticipant(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	targetID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid user_id")
		return
	}

	plan, err := h.planService.AddParticipant(c.Request.Context(), planID, userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// AddAdmin promotes a participant to admin.
func (h *PlanHandler) AddAdmin(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	targetID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid user_id")
		return
	}

	plan, err := h.planService.AddAdmin(c.Request.Context(), planID, userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// RemoveParticipant removes a member from the plan.
func (h *PlanHandler) RemoveParticipant(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}
	targetID, ok := pathObjectID(c, "userId")
	if !ok {
		return
	}

	plan, err := h.planService.RemoveParticipant(c.Request.Context(), planID, userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// SendMessage appends a chat message to the plan.
func (h *PlanHandler) SendMessage(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	msg, err := h.planService.SendMessage(c.Request.Context(), planID, userID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// callerAndPlan extracts the authenticated user and the planId path
// parameter.
func callerAndPlan(c *gin.Context) (userID, planID primitive.ObjectID, ok bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	planID, ok = pathObjectID(c, "planId")
	return userID, planID, ok
}
