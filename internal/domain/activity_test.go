package domain

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 6, 1, hour, min, 0, 0, time.UTC)
}

func window(startHour, startMin, endHour, endMin int) Activity {
	return Activity{
		StartTime: at(startHour, startMin),
		EndTime:   at(endHour, endMin),
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a    Activity
		b    Activity
		want bool
	}{
		{
			name: "identical start times",
			a:    window(10, 0, 11, 0),
			b:    window(10, 0, 12, 0),
			want: true,
		},
		{
			name: "start inside the other window",
			a:    window(10, 0, 11, 0),
			b:    window(10, 30, 11, 30),
			want: true,
		},
		{
			name: "one window contains the other",
			a:    window(9, 0, 13, 0),
			b:    window(10, 0, 11, 0),
			want: true,
		},
		{
			name: "back to back windows",
			a:    window(10, 0, 11, 0),
			b:    window(11, 0, 12, 0),
			want: false,
		},
		{
			name: "disjoint windows",
			a:    window(9, 0, 10, 0),
			b:    window(14, 0, 15, 0),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(&tt.b); got != tt.want {
				t.Errorf("a.Overlaps(b) = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(&tt.a); got != tt.want {
				t.Errorf("b.Overlaps(a) = %v, want %v (overlap must be symmetric)", got, tt.want)
			}
		})
	}
}

func TestActivityCostsRecalculate(t *testing.T) {
	tests := []struct {
		name          string
		costs         ActivityCosts
		voteCount     int
		wantPerPerson float64
		wantTotal     float64
	}{
		{
			name:          "per person basis scales with votes",
			costs:         ActivityCosts{IsPerPerson: true, PerPerson: 25},
			voteCount:     4,
			wantPerPerson: 25,
			wantTotal:     100,
		},
		{
			name:          "per person basis with zero votes mirrors the basis",
			costs:         ActivityCosts{IsPerPerson: true, PerPerson: 25},
			voteCount:     0,
			wantPerPerson: 25,
			wantTotal:     25,
		},
		{
			name:          "total basis divides over votes",
			costs:         ActivityCosts{IsPerPerson: false, TotalCost: 90},
			voteCount:     3,
			wantPerPerson: 30,
			wantTotal:     90,
		},
		{
			name:          "total basis with zero votes mirrors the basis",
			costs:         ActivityCosts{IsPerPerson: false, TotalCost: 90},
			voteCount:     0,
			wantPerPerson: 90,
			wantTotal:     90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.costs.Recalculate(tt.voteCount)
			if tt.costs.PerPerson != tt.wantPerPerson {
				t.Errorf("PerPerson = %v, want %v", tt.costs.PerPerson, tt.wantPerPerson)
			}
			if tt.costs.TotalCost != tt.wantTotal {
				t.Errorf("TotalCost = %v, want %v", tt.costs.TotalCost, tt.wantTotal)
			}
		})
	}
}

func TestToggleVote(t *testing.T) {
	userA := primitive.NewObjectID()
	userB := primitive.NewObjectID()

	activity := window(10, 0, 11, 0)
	activity.Costs = ActivityCosts{IsPerPerson: false, TotalCost: 60}

	if added := activity.ToggleVote(userA); !added {
		t.Fatal("first toggle should add the vote")
	}
	if !activity.HasVote(userA) {
		t.Fatal("userA should hold a vote")
	}
	if activity.Costs.PerPerson != 60 {
		t.Errorf("PerPerson = %v, want 60 with one voter", activity.Costs.PerPerson)
	}

	activity.ToggleVote(userB)
	if activity.Costs.PerPerson != 30 {
		t.Errorf("PerPerson = %v, want 30 with two voters", activity.Costs.PerPerson)
	}

	// Second toggle retracts and restores the previous split.
	if added := activity.ToggleVote(userB); added {
		t.Fatal("second toggle should remove the vote")
	}
	if activity.HasVote(userB) {
		t.Fatal("userB vote should be gone")
	}
	if activity.Costs.PerPerson != 60 {
		t.Errorf("PerPerson = %v, want 60 after retraction", activity.Costs.PerPerson)
	}
}

func TestRetractVote(t *testing.T) {
	user := primitive.NewObjectID()
	activity := window(10, 0, 11, 0)

	if activity.RetractVote(user) {
		t.Fatal("retracting an absent vote should report false")
	}
	activity.ToggleVote(user)
	if !activity.RetractVote(user) {
		t.Fatal("retracting a held vote should report true")
	}
	if activity.HasVote(user) {
		t.Fatal("vote should be gone after retraction")
	}
}
