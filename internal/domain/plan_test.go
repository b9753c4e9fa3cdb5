package domain

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRoleOf(t *testing.T) {
	organizer := primitive.NewObjectID()
	admin := primitive.NewObjectID()
	participant := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	plan := Plan{
		OrganizerID:    organizer,
		AdminIDs:       []primitive.ObjectID{admin},
		ParticipantIDs: []primitive.ObjectID{participant},
	}

	tests := []struct {
		name string
		user primitive.ObjectID
		want Role
	}{
		{"organizer", organizer, RoleOrganizer},
		{"admin", admin, RoleAdmin},
		{"participant", participant, RoleParticipant},
		{"stranger", stranger, RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := plan.RoleOf(tt.user); got != tt.want {
				t.Errorf("RoleOf = %q, want %q", got, tt.want)
			}
		})
	}

	if plan.IsMember(stranger) {
		t.Error("stranger should not be a member")
	}
	if !plan.IsMember(admin) {
		t.Error("admin should be a member")
	}
}

func TestMemberCount(t *testing.T) {
	plan := Plan{
		OrganizerID: primitive.NewObjectID(),
		ParticipantIDs: []primitive.ObjectID{
			primitive.NewObjectID(),
			primitive.NewObjectID(),
		},
		AdminIDs: []primitive.ObjectID{primitive.NewObjectID()},
	}
	// Participants plus organizer; admins are outside the denominator.
	if got := plan.MemberCount(); got != 3 {
		t.Errorf("MemberCount = %d, want 3", got)
	}
}

func TestFindActivity(t *testing.T) {
	plan := Plan{
		Activities: []Activity{
			{ActivityID: "a1", Name: "museum"},
			{ActivityID: "a2", Name: "dinner"},
		},
	}

	if got := plan.FindActivity("a2"); got == nil || got.Name != "dinner" {
		t.Errorf("FindActivity(a2) = %+v, want dinner", got)
	}
	if plan.FindActivity("missing") != nil {
		t.Error("FindActivity should return nil for an unknown id")
	}

	// The pointer must alias the embedded element so mutations persist
	// with the plan.
	plan.FindActivity("a1").Name = "gallery"
	if plan.Activities[0].Name != "gallery" {
		t.Error("FindActivity must return a pointer into the plan's slice")
	}
}

func TestRecalculateCosts(t *testing.T) {
	plan := Plan{
		OrganizerID: primitive.NewObjectID(),
		ParticipantIDs: []primitive.ObjectID{
			primitive.NewObjectID(),
			primitive.NewObjectID(),
			primitive.NewObjectID(),
		},
		Activities: []Activity{
			{ActivityID: "a1", Status: ActivityConfirmed, Costs: ActivityCosts{TotalCost: 100}},
			{ActivityID: "a2", Status: ActivityProposed, Costs: ActivityCosts{TotalCost: 40}},
			{ActivityID: "a3", Status: ActivityConfirmed, Costs: ActivityCosts{TotalCost: 60}},
			{ActivityID: "a4", Status: ActivityRejected, Costs: ActivityCosts{TotalCost: 999}},
		},
		Costs: PlanCosts{Collected: 25},
	}

	plan.RecalculateCosts()

	if plan.Costs.Total != 160 {
		t.Errorf("Total = %v, want 160 (confirmed activities only)", plan.Costs.Total)
	}
	if plan.Costs.PerPerson != 40 {
		t.Errorf("PerPerson = %v, want 40", plan.Costs.PerPerson)
	}
	if plan.Costs.Collected != 25 {
		t.Errorf("Collected = %v, want 25 (payments only move via pay)", plan.Costs.Collected)
	}
}
