package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InvitationStatus tracks an invitation's lifecycle. Invitations are
// superseded, never deleted.
type InvitationStatus string

const (
	InvitationActive  InvitationStatus = "active"
	InvitationExpired InvitationStatus = "expired"
	InvitationUsed    InvitationStatus = "used"
)

// Invitation is a plan's single active join link, with a usage cap and
// a fixed validity window.
type Invitation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID    primitive.ObjectID `bson:"planId" json:"plan_id"`
	Link      string             `bson:"link" json:"link"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expires_at"`
	Status    InvitationStatus   `bson:"status" json:"status"`
	Uses      int                `bson:"uses" json:"uses"`
	MaxUses   int                `bson:"maxUses" json:"max_uses"`
}

// InviteValidity is the precise outcome of an invitation check, so
// callers can distinguish an expired link from a wrong or missing one.
type InviteValidity int

const (
	InviteValid InviteValidity = iota
	InviteExpiredWindow
	InviteUseLimitReached
	InviteWrongInvitation
	InviteMissing
)

func (v InviteValidity) String() string {
	switch v {
	case InviteValid:
		return "valid"
	case InviteExpiredWindow:
		return "expired"
	case InviteUseLimitReached:
		return "use_limit_reached"
	case InviteWrongInvitation:
		return "wrong_invitation"
	case InviteMissing:
		return "not_found"
	default:
		return "unknown"
	}
}

// Validity evaluates the invitation against the clock and its use cap.
func (i *Invitation) Validity(now time.Time) InviteValidity {
	if now.After(i.ExpiresAt) {
		return InviteExpiredWindow
	}
	if i.Uses >= i.MaxUses {
		return InviteUseLimitReached
	}
	return InviteValid
}
