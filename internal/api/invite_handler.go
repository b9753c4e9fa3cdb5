package api

import (
	"fmt"
	"net/http"

	"plansly/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// InviteHandler exposes invitation sharing, checking and acceptance.
type InviteHandler struct {
	inviteService service.InvitationService
}

// NewInviteHandler creates a new InviteHandler.
func NewInviteHandler(inviteService service.InvitationService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

// GetInvite returns the plan's current shareable invitation, rotating
// it first if the old one is no longer valid.
func (h *InviteHandler) GetInvite(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	invite, err := h.inviteService.GetInvite(c.Request.Context(), planID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invite)
}

// CheckInvite reports the validity of an invitation id for a plan
// without consuming a use.
func (h *InviteHandler) CheckInvite(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	inviteID, ok := pathObjectID(c, "inviteId")
	if !ok {
		return
	}

	validity, err := h.inviteService.CheckInviteLink(c.Request.Context(), planID, inviteID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"validity": validity.String()})
}

// JoinByLinkRequest carries the raw token from a shared invitation
// URL.
type JoinByLinkRequest struct {
	Link string `json:"link" binding:"required"`
}

// JoinByLink joins the caller to whichever plan the link token
// resolves to.
func (h *InviteHandler) JoinByLink(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req JoinByLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	plan, err := h.inviteService.AcceptInviteByLink(c.Request.Context(), req.Link, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// AcceptInvite joins the caller to the plan through its current
// invitation.
func (h *InviteHandler) AcceptInvite(c *gin.Context) {
	userID, planID, ok := callerAndPlan(c)
	if !ok {
		return
	}

	plan, err := h.inviteService.AcceptInvite(c.Request.Context(), planID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}
