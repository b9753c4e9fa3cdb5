package service

import (
	"context"
	"time"

	"plansly/backend/internal/apperrors"
	"plansly/backend/internal/audit"
	"plansly/backend/internal/domain"
	"plansly/backend/internal/metrics"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateActivity proposes a new activity on an active plan. The
// proposer does not auto-vote; attendance intent is always an explicit
// vote.
func (s *planService) CreateActivity(ctx context.Context, planID, proposerID primitive.ObjectID, input CreateActivityInput) (*domain.Activity, error) {
	if input.Name == "" {
		return nil, apperrors.Validation("activity name is required", map[string]interface{}{"fields": []string{"name"}})
	}
	if input.StartTime.IsZero() {
		return nil, apperrors.Validation("activity start time is required", map[string]interface{}{"fields": []string{"start_time"}})
	}
	if !input.EndTime.IsZero() && !input.EndTime.After(input.StartTime) {
		return nil, apperrors.Validation("activity end time must be after its start time", map[string]interface{}{"fields": []string{"end_time"}})
	}

	var created domain.Activity
	_, err := s.withPlan(ctx, planID, func(p *domain.Plan) error {
		if !p.IsMember(proposerID) {
			return apperrors.UserNotAuthorized(proposerID.Hex())
		}
		if p.Status != domain.PlanActive {
			return apperrors.Validation("activities can only be proposed while the plan is active", map[string]interface{}{
				"status": string(p.Status),
			})
		}

		costs := domain.ActivityCosts{IsPerPerson: input.CostPerPerson}
		if input.CostPerPerson {
			costs.PerPerson = input.Cost
		} else {
			costs.TotalCost = input.Cost
		}
		costs.Recalculate(0)

		created = domain.Activity{
			ActivityID:  uuid.NewString(),
			Name:        input.Name,
			Description: input.Description,
			Link:        input.Link,
			Costs:       costs,
			StartTime:   input.StartTime,
			EndTime:     input.EndTime,
			ProposerID:  proposerID,
			Status:      domain.ActivityProposed,
			Country:     input.Country,
			State:       input.State,
			City:        input.City,
			CreatedAt:   time.Now().UTC(),
		}
		p.Activities = append(p.Activities, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ActivitiesProposed.Inc()
	s.audit.Record(ctx, audit.Event{
		ActorID: proposerID.Hex(), ResourceType: "activity", ResourceID: created.ActivityID,
		Action: "create_activity", Status: audit.StatusSuccess, After: created,
	})
	return &created, nil
}

// GetActivity returns one embedded activity, subject to the same
// visibility rule as the plan itself.
func (s *planService) GetActivity(ctx context.Context, planID, userID primitive.ObjectID, activityID string) (*domain.Activity, error) {
	plan, err := s.GetPlan(ctx, planID, userID)
	if err != nil {
		return nil, err
	}
	activity := plan.FindActivity(activityID)
	if activity == nil {
		return nil, apperrors.ActivityNotFound(activityID)
	}
	return activity, nil
}

// VoteActivity toggles the caller's vote on a proposed activity. A
// user cannot hold votes on two time-overlapping proposals: adding a
// vote first retracts the conflicting one, if any. Costs are
// recomputed on every activity touched, and reaching a vote from every
// member finalizes the activity automatically.
func (s *planService) VoteActivity(ctx context.Context, planID, userID primitive.ObjectID, activityID string) (*domain.Plan, error) {
	autoFinalized := false
	plan, err := s.withPlan(ctx, planID, func(p *domain.Plan) error {
		autoFinalized = false
		if !p.IsMember(userID) {
			return apperrors.UserNotAuthorized(userID.Hex())
		}
		target := p.FindActivity(activityID)
		if target == nil {
			return apperrors.ActivityNotFound(activityID)
		}
		// Confirmed and rejected are terminal. A late toggle would
		// recompute the activity's costs underneath the frozen plan
		// totals.
		if target.Status != domain.ActivityProposed {
			return apperrors.Validation("votes can only change on proposed activities", map[string]interface{}{
				"status": string(target.Status),
			})
		}

		// A removal cannot introduce a conflict, so retraction only
		// applies when the toggle is about to add a vote.
		if !target.HasVote(userID) {
			for i := range p.Activities {
				other := &p.Activities[i]
				if other.ActivityID == activityID || other.Status != domain.ActivityProposed {
					continue
				}
				if other.HasVote(userID) && other.Overlaps(target) {
					other.RetractVote(userID)
					break
				}
			}
		}

		added := target.ToggleVote(userID)

		if added && len(target.VoteIDs) >= p.MemberCount() {
			s.finalizeActivity(p, target)
			autoFinalized = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.VotesToggled.Inc()
	if autoFinalized {
		metrics.ActivitiesConfirmed.Inc()
	}
	s.audit.Record(ctx, audit.Event{
		ActorID: userID.Hex(), ResourceType: "activity", ResourceID: activityID,
		Action: "vote_activity", Status: audit.StatusSuccess,
	})
	return plan, nil
}

// LockActivity finalizes an activity on explicit request. Organizer or
// admin only; the voting engine takes the unchecked path internally
// when consensus is reached.
func (s *planService) LockActivity(ctx context.Context, planID, userID primitive.ObjectID, activityID string) (*domain.Plan, error) {
	plan, err := s.withPlan(ctx, planID, func(p *domain.Plan) error {
		role := p.RoleOf(userID)
		if role != domain.RoleOrganizer && role != domain.RoleAdmin {
			return apperrors.UserNotAuthorized(userID.Hex())
		}
		target := p.FindActivity(activityID)
		if target == nil {
			return apperrors.ActivityNotFound(activityID)
		}
		if target.Status != domain.ActivityProposed {
			return apperrors.Validation("activity is already finalized", map[string]interface{}{
				"status": string(target.Status),
			})
		}
		s.finalizeActivity(p, target)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ActivitiesConfirmed.Inc()
	s.audit.Record(ctx, audit.Event{
		ActorID: userID.Hex(), ResourceType: "activity", ResourceID: activityID,
		Action: "lock_activity", Status: audit.StatusSuccess,
	})
	return plan, nil
}

// finalizeActivity confirms the activity, folds its cost into the plan
// totals, pre-pays the organizer if they voted, and rejects every
// still-proposed overlapping activity. Confirmed and rejected
// activities are terminal and untouched by the cascade.
func (s *planService) finalizeActivity(p *domain.Plan, target *domain.Activity) {
	target.Status = domain.ActivityConfirmed

	p.Costs.Total += target.Costs.TotalCost
	p.Costs.PerPerson = p.Costs.Total / float64(p.MemberCount())

	if target.HasVote(p.OrganizerID) && !target.HasPaid(p.OrganizerID) {
		target.PaymentIDs = append(target.PaymentIDs, p.OrganizerID)
		p.Costs.Collected += target.Costs.PerPerson
	}

	for i := range p.Activities {
		other := &p.Activities[i]
		if other.ActivityID == target.ActivityID || other.Status != domain.ActivityProposed {
			continue
		}
		if other.Overlaps(target) {
			other.Status = domain.ActivityRejected
		}
	}
}

// UpdateActivity applies an allow-listed field merge to an activity.
// Organizer or admin only; no state-machine interaction.
func (s *planService) UpdateActivity(ctx context.Context, planID, userID primitive.ObjectID, activityID string, fields map[string]interface{}) (*domain.Activity, error) {
	normalized, err := domain.ActivityFields.Normalize(fields)
	if err != nil {
		return nil, err
	}

	var updated domain.Activity
	_, err = s.withPlan(ctx, planID, func(p *domain.Plan) error {
		role := p.RoleOf(userID)
		if role != domain.RoleOrganizer && role != domain.RoleAdmin {
			return apperrors.UserNotAuthorized(userID.Hex())
		}
		target := p.FindActivity(activityID)
		if target == nil {
			return apperrors.ActivityNotFound(activityID)
		}
		if err := target.ApplyFields(normalized); err != nil {
			return err
		}
		updated = *target
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{
		ActorID: userID.Hex(), ResourceType: "activity", ResourceID: activityID,
		Action: "update_activity", Status: audit.StatusSuccess, After: updated,
	})
	return &updated, nil
}

// DeleteActivity withdraws a proposal. Allowed for the proposer or the
// organizer, and only while the activity is still proposed.
func (s *planService) DeleteActivity(ctx context.Context, planID, userID primitive.ObjectID, activityID string) error {
	_, err := s.withPlan(ctx, planID, func(p *domain.Plan) error {
		target := p.FindActivity(activityID)
		if target == nil {
			return apperrors.ActivityNotFound(activityID)
		}
		if target.ProposerID != userID && p.RoleOf(userID) != domain.RoleOrganizer {
			return apperrors.UserNotAuthorized(userID.Hex())
		}
		if target.Status != domain.ActivityProposed {
			return apperrors.Validation("finalized activities cannot be deleted", map[string]interface{}{
				"status": string(target.Status),
			})
		}
		for i := range p.Activities {
			if p.Activities[i].ActivityID == activityID {
				p.Activities = append(p.Activities[:i], p.Activities[i+1:]...)
				break
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{
		ActorID: userID.Hex(), ResourceType: "activity", ResourceID: activityID,
		Action: "delete_activity", Status: audit.StatusSuccess,
	})
	return nil
}
