package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityStatus is the activity-level state machine. Confirmed and
// rejected are terminal.
type ActivityStatus string

const (
	ActivityProposed  ActivityStatus = "proposed"
	ActivityConfirmed ActivityStatus = "confirmed"
	ActivityRejected  ActivityStatus = "rejected"
)

// ActivityCosts carries the cost basis for one activity. Exactly one of
// PerPerson/TotalCost is user-entered (IsPerPerson selects which); the
// other is derived from the vote count.
type ActivityCosts struct {
	IsPerPerson bool    `bson:"isPerPerson" json:"is_per_person"`
	PerPerson   float64 `bson:"perPerson" json:"per_person"`
	TotalCost   float64 `bson:"totalCost" json:"total_cost"`
}

// Recalculate derives the dependent cost field from the vote count.
// With zero votes the derived field mirrors the basis unscaled.
func (c *ActivityCosts) Recalculate(voteCount int) {
	if c.IsPerPerson {
		if voteCount > 0 {
			c.TotalCost = c.PerPerson * float64(voteCount)
		} else {
			c.TotalCost = c.PerPerson
		}
		return
	}
	if voteCount > 0 {
		c.PerPerson = c.TotalCost / float64(voteCount)
	} else {
		c.PerPerson = c.TotalCost
	}
}

// Activity is a proposed sub-event embedded in exactly one plan. It has
// no lifetime of its own; saving the plan persists it.
type Activity struct {
	ActivityID  string               `bson:"activityId" json:"id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Link        string               `bson:"link,omitempty" json:"link,omitempty"`
	Costs       ActivityCosts        `bson:"costs" json:"costs"`
	StartTime   time.Time            `bson:"startTime" json:"start_time"`
	EndTime     time.Time            `bson:"endTime,omitempty" json:"end_time,omitempty"`
	ProposerID  primitive.ObjectID   `bson:"proposerId" json:"proposer_id"`
	Status      ActivityStatus       `bson:"status" json:"status"`
	VoteIDs     []primitive.ObjectID `bson:"voteIds,omitempty" json:"vote_ids,omitempty"`
	PaymentIDs  []primitive.ObjectID `bson:"paymentIds,omitempty" json:"payment_ids,omitempty"`
	Country     string               `bson:"country,omitempty" json:"country,omitempty"`
	State       string               `bson:"state,omitempty" json:"state,omitempty"`
	City        string               `bson:"city,omitempty" json:"city,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt" json:"created_at"`
}

// Overlaps decides whether two activities' time windows conflict:
// identical start times conflict, otherwise one start must fall
// strictly inside the other's [start, end) interval. Back-to-back
// windows do not conflict.
func (a *Activity) Overlaps(b *Activity) bool {
	if a.StartTime.Equal(b.StartTime) {
		return true
	}
	if a.StartTime.After(b.StartTime) && a.StartTime.Before(b.EndTime) {
		return true
	}
	if b.StartTime.After(a.StartTime) && b.StartTime.Before(a.EndTime) {
		return true
	}
	return false
}

// HasVote reports whether the user currently holds a vote.
func (a *Activity) HasVote(userID primitive.ObjectID) bool {
	for _, id := range a.VoteIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// HasPaid reports whether the user already settled their share.
func (a *Activity) HasPaid(userID primitive.ObjectID) bool {
	for _, id := range a.PaymentIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ToggleVote adds the user's vote, or removes it if already present,
// and recomputes the derived cost field. Returns true when the vote
// was added.
func (a *Activity) ToggleVote(userID primitive.ObjectID) bool {
	for i, id := range a.VoteIDs {
		if id == userID {
			a.VoteIDs = append(a.VoteIDs[:i], a.VoteIDs[i+1:]...)
			a.Costs.Recalculate(len(a.VoteIDs))
			return false
		}
	}
	a.VoteIDs = append(a.VoteIDs, userID)
	a.Costs.Recalculate(len(a.VoteIDs))
	return true
}

// RetractVote removes the user's vote if present and recomputes costs.
func (a *Activity) RetractVote(userID primitive.ObjectID) bool {
	for i, id := range a.VoteIDs {
		if id == userID {
			a.VoteIDs = append(a.VoteIDs[:i], a.VoteIDs[i+1:]...)
			a.Costs.Recalculate(len(a.VoteIDs))
			return true
		}
	}
	return false
}
