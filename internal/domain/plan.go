package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanType distinguishes the kinds of plans the system coordinates.
type PlanType string

const (
	PlanTrip          PlanType = "trip"
	PlanEvent         PlanType = "event"
	PlanGroupPurchase PlanType = "group_purchase"
)

// PlanStatus is the plan-level state. Active and locked toggle freely;
// confirmed is terminal.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanLocked    PlanStatus = "locked"
	PlanConfirmed PlanStatus = "confirmed"
)

// Role is a user's membership class within a single plan. A user
// occupies exactly one class per plan.
type Role string

const (
	RoleOrganizer   Role = "organizer"
	RoleAdmin       Role = "admin"
	RoleParticipant Role = "participant"
	RoleNone        Role = "none"
)

// PlanCosts aggregates the confirmed activities' costs at plan level.
// Total is the sum of confirmed activities' total cost, PerPerson is
// Total divided over participants plus organizer, Collected tracks
// settled shares and never exceeds Total.
type PlanCosts struct {
	Total     float64 `bson:"total" json:"total"`
	PerPerson float64 `bson:"perPerson" json:"per_person"`
	Collected float64 `bson:"collected" json:"collected"`
}

// Plan is the aggregate root. Activities and messages are embedded and
// persist with the plan as one unit; users and the invitation are
// referenced.
type Plan struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Type           PlanType             `bson:"type" json:"type"`
	Status         PlanStatus           `bson:"status" json:"status"`
	IsPublic       bool                 `bson:"isPublic" json:"is_public"`
	OrganizerID    primitive.ObjectID   `bson:"organizerId" json:"organizer_id"`
	AdminIDs       []primitive.ObjectID `bson:"adminIds,omitempty" json:"admin_ids,omitempty"`
	ParticipantIDs []primitive.ObjectID `bson:"participantIds,omitempty" json:"participant_ids,omitempty"`
	Activities     []Activity           `bson:"activities,omitempty" json:"activities,omitempty"`
	Messages       []Message            `bson:"messages,omitempty" json:"messages,omitempty"`
	InvitationID   primitive.ObjectID   `bson:"invitationId,omitempty" json:"invitation_id,omitempty"`
	Costs          PlanCosts            `bson:"costs" json:"costs"`

	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Location    string               `bson:"location,omitempty" json:"location,omitempty"`
	Theme       string               `bson:"theme,omitempty" json:"theme,omitempty"`
	Deadline    *time.Time           `bson:"deadline,omitempty" json:"deadline,omitempty"`
	StartDate   *time.Time           `bson:"startDate,omitempty" json:"start_date,omitempty"`
	EndDate     *time.Time           `bson:"endDate,omitempty" json:"end_date,omitempty"`
	ImageIDs    []primitive.ObjectID `bson:"imageIds,omitempty" json:"image_ids,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`

	// Revision is the optimistic concurrency token. Every persisted
	// mutation bumps it; a save against a stale revision is rejected.
	Revision int64 `bson:"revision" json:"-"`
}

// RoleOf resolves the single membership class the user holds on this
// plan. All authorization checks go through this predicate.
func (p *Plan) RoleOf(userID primitive.ObjectID) Role {
	if p.OrganizerID == userID {
		return RoleOrganizer
	}
	for _, id := range p.AdminIDs {
		if id == userID {
			return RoleAdmin
		}
	}
	for _, id := range p.ParticipantIDs {
		if id == userID {
			return RoleParticipant
		}
	}
	return RoleNone
}

// IsMember reports whether the user holds any role on the plan. It
// backs the real-time layer's room access control.
func (p *Plan) IsMember(userID primitive.ObjectID) bool {
	return p.RoleOf(userID) != RoleNone
}

// MemberCount is the cost-splitting denominator: participants plus the
// organizer. Admins left the participant set on promotion and are not
// part of it.
func (p *Plan) MemberCount() int {
	return len(p.ParticipantIDs) + 1
}

// FindActivity locates an embedded activity by its id. Activities are
// stored in proposal order; counts stay small enough for a linear scan.
func (p *Plan) FindActivity(activityID string) *Activity {
	for i := range p.Activities {
		if p.Activities[i].ActivityID == activityID {
			return &p.Activities[i]
		}
	}
	return nil
}

// RecalculateCosts rebuilds the plan-level totals from confirmed
// activities. Collected is preserved; it only moves via payments.
func (p *Plan) RecalculateCosts() {
	total := 0.0
	for i := range p.Activities {
		if p.Activities[i].Status == ActivityConfirmed {
			total += p.Activities[i].Costs.TotalCost
		}
	}
	p.Costs.Total = total
	p.Costs.PerPerson = total / float64(p.MemberCount())
}
