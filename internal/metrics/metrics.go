package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation counters for the plan lifecycle engine.
var (
	PlansCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plansly_plans_created_total",
		Help: "Number of plans created.",
	})

	ActivitiesProposed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plansly_activities_proposed_total",
		Help: "Number of activities proposed.",
	})

	ActivitiesConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plansly_activities_confirmed_total",
		Help: "Number of activities finalized.",
	})

	VotesToggled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plansly_votes_toggled_total",
		Help: "Number of vote toggles applied.",
	})

	InvitesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plansly_invites_accepted_total",
		Help: "Number of invitation acceptances that granted membership.",
	})

	InvitesReissued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plansly_invites_reissued_total",
		Help: "Number of invitations replaced after expiry or use cap.",
	})

	PlanConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plansly_plan_revision_conflicts_total",
		Help: "Number of optimistic-concurrency conflicts on plan saves.",
	})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plansly_messages_sent_total",
		Help: "Number of chat messages appended to plans.",
	})
)
