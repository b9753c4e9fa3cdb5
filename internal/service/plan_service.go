package service

import (
	"context"
	"errors"
	"time"

	"plansly/backend/internal/apperrors"
	"plansly/backend/internal/audit"
	"plansly/backend/internal/domain"
	"plansly/backend/internal/metrics"
	"plansly/backend/internal/repository"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Maximum reload-and-retry attempts when a plan save loses a revision
// race.
const maxPlanRetries = 3

// Broadcaster delivers named events to a plan's real-time room.
// Delivery is best-effort; the lifecycle never depends on it.
type Broadcaster interface {
	Broadcast(planID string, event string, payload interface{})
}

// NopBroadcaster drops events; used in tests and when the real-time
// layer is disabled.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(planID string, event string, payload interface{}) {}

// CreatePlanInput carries the normalized fields for a new plan.
type CreatePlanInput struct {
	Name        string
	Description string
	Type        domain.PlanType
	Theme       string
	Location    string
	IsPublic    bool
	Deadline    *time.Time
	StartDate   *time.Time
	EndDate     *time.Time
}

// CreateActivityInput carries the normalized fields for a proposal.
type CreateActivityInput struct {
	Name          string
	Description   string
	Link          string
	Cost          float64
	CostPerPerson bool
	StartTime     time.Time
	EndTime       time.Time
	Country       string
	State         string
	City          string
}

// PlanService drives the plan and activity lifecycle: membership,
// locking, proposals, voting, finalization, payments and messaging.
type PlanService interface {
	CreatePlan(ctx context.Context, organizerID primitive.ObjectID, input CreatePlanInput) (*domain.Plan, error)
	GetPlan(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error)
	GetPlans(ctx context.Context, userID primitive.ObjectID) ([]domain.Plan, error)
	UpdatePlan(ctx context.Context, planID, userID primitive.ObjectID, fields map[string]interface{}) (*domain.Plan, error)
	LockPlan(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error)
	UnlockPlan(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error)
	ConfirmPlan(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error)
	AddParticipant(ctx context.Context, planID, actorID, targetID primitive.ObjectID) (*domain.Plan, error)
	AddAdmin(ctx context.Context, planID, actorID, targetID primitive.ObjectID) (*domain.Plan, error)
	RemoveParticipant(ctx context.Context, planID, actorID, targetID primitive.ObjectID) (*domain.Plan, error)
	Pay(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error)
	SendMessage(ctx context.Context, planID, userID primitive.ObjectID, text string) (*domain.Message, error)
	IsMember(ctx context.Context, planID, userID primitive.ObjectID) (bool, error)

	CreateActivity(ctx context.Context, planID, proposerID primitive.ObjectID, input CreateActivityInput) (*domain.Activity, error)
	GetActivity(ctx context.Context, planID, userID primitive.ObjectID, activityID string) (*domain.Activity, error)
	VoteActivity(ctx context.Context, planID, userID primitive.ObjectID, activityID string) (*domain.Plan, error)
	LockActivity(ctx context.Context, planID, userID primitive.ObjectID, activityID string) (*domain.Plan, error)
	UpdateActivity(ctx context.Context, planID, userID primitive.ObjectID, activityID string, fields map[string]interface{}) (*domain.Activity, error)
	DeleteActivity(ctx context.Context, planID, userID primitive.ObjectID, activityID string) error
}

type planService struct {
	planRepo  repository.PlanRepository
	userRepo  repository.UserRepository
	inviteSvc InvitationService
	broadcast Broadcaster
	audit     audit.Recorder
	logger    zerolog.Logger
}

// NewPlanService creates the lifecycle engine.
func NewPlanService(
	planRepo repository.PlanRepository,
	userRepo repository.UserRepository,
	inviteSvc InvitationService,
	broadcast Broadcaster,
	recorder audit.Recorder,
	logger zerolog.Logger,
) PlanService {
	if broadcast == nil {
		broadcast = NopBroadcaster{}
	}
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &planService{
		planRepo:  planRepo,
		userRepo:  userRepo,
		inviteSvc: inviteSvc,
		broadcast: broadcast,
		audit:     recorder,
		logger:    logger,
	}
}

// withPlan loads the plan, applies fn in memory and saves guarded by
// the revision token, reloading and retrying on a concurrent-writer
// conflict. Vote and cost arithmetic is not idempotent under lost
// updates, so every mutation goes through here.
func (s *planService) withPlan(ctx context.Context, planID primitive.ObjectID, fn func(*domain.Plan) error) (*domain.Plan, error) {
	for attempt := 0; attempt < maxPlanRetries; attempt++ {
		plan, err := s.planRepo.GetByID(ctx, planID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.PlanNotFound(planID.Hex())
			}
			return nil, apperrors.Database(err)
		}

		if err := fn(plan); err != nil {
			return nil, err
		}

		err = s.planRepo.Update(ctx, plan)
		if err == nil {
			return plan, nil
		}
		if errors.Is(err, repository.ErrConflict) {
			metrics.PlanConflicts.Inc()
			s.logger.Debug().Str("plan_id", planID.Hex()).Int("attempt", attempt+1).Msg("plan revision conflict, retrying")
			continue
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.PlanNotFound(planID.Hex())
		}
		return nil, apperrors.Database(err)
	}
	return nil, apperrors.Conflict("plan was modified concurrently, retries exhausted")
}

// CreatePlan builds an active plan with the organizer as sole member,
// spawns its invitation and bumps the organizer's hosting counter.
// Plan and invitation live in different persistence units; if the
// invitation attach fails the plan is left without one and the error
// surfaces as a database error.
func (s *planService) CreatePlan(ctx context.Context, organizerID primitive.ObjectID, input CreatePlanInput) (*domain.Plan, error) {
	if input.Type != domain.PlanTrip && input.Type != domain.PlanEvent && input.Type != domain.PlanGroupPurchase {
		return nil, apperrors.Validation("unknown plan type", map[string]interface{}{"fields": []string{"type"}})
	}
	if input.Name == "" {
		return nil, apperrors.Validation("plan name is required", map[string]interface{}{"fields": []string{"name"}})
	}

	plan := &domain.Plan{
		Type:        input.Type,
		Status:      domain.PlanActive,
		IsPublic:    input.IsPublic,
		OrganizerID: organizerID,
		Name:        input.Name,
		Description: input.Description,
		Theme:       input.Theme,
		Location:    input.Location,
		Deadline:    input.Deadline,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}

	planID, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	plan.ID = planID

	invite, err := s.inviteSvc.CreateInvite(ctx, planID)
	if err != nil {
		return nil, err
	}
	plan.InvitationID = invite.ID
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, apperrors.Database(err)
	}

	if err := s.userRepo.IncrementCounters(ctx, organizerID, 1, 0); err != nil {
		s.logger.Warn().Err(err).Str("user_id", organizerID.Hex()).Msg("failed to bump hosting count")
	}

	metrics.PlansCreated.Inc()
	s.audit.Record(ctx, audit.Event{
		ActorID:      organizerID.Hex(),
		ResourceType: "plan",
		ResourceID:   plan.ID.Hex(),
		Action:       "create_plan",
		Status:       audit.StatusSuccess,
		After:        plan,
	})
	return plan, nil
}

// GetPlan fetches a plan. Non-public plans are visible to members only.
func (s *planService) GetPlan(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.PlanNotFound(planID.Hex())
		}
		return nil, apperrors.Database(err)
	}
	if !plan.IsPublic && !plan.IsMember(userID) {
		return nil, apperrors.UserNotAuthorized(userID.Hex())
	}
	return plan, nil
}

// GetPlans returns every plan the user belongs to, in any role.
func (s *planService) GetPlans(ctx context.Context, userID primitive.ObjectID) ([]domain.Plan, error) {
	plans, err := s.planRepo.GetByMember(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return plans, nil
}

// UpdatePlan applies an allow-listed field merge. Organizer only.
func (s *planService) UpdatePlan(ctx context.Context, planID, userID primitive.ObjectID, fields map[string]interface{}) (*domain.Plan, error) {
	normalized, err := domain.PlanFields.Normalize(fields)
	if err != nil {
		return nil, err
	}
	plan, err := s.withPlan(ctx, planID, func(p *domain.Plan) error {
		if p.RoleOf(userID) != domain.RoleOrganizer {
			return apperrors.NotPlanOrganizer()
		}
		return p.ApplyFields(normalized)
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		ActorID: userID.Hex(), ResourceType: "plan", ResourceID: planID.Hex(),
		Action: "update_plan", Status: audit.StatusSuccess, After: plan,
	})
	return plan, nil
}

// LockPlan moves an active plan to locked. Organizer only; a confirmed
// plan is terminal and stays put.
func (s *planService) LockPlan(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error) {
	return s.togglePlanStatus(ctx, planID, userID, domain.PlanActive, domain.PlanLocked, "lock_plan")
}

// UnlockPlan moves a locked plan back to active. Organizer only.
func (s *planService) UnlockPlan(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error) {
	return s.togglePlanStatus(ctx, planID, userID, domain.PlanLocked, domain.PlanActive, "unlock_plan")
}

func (s *planService) togglePlanStatus(ctx context.Context, planID, userID primitive.ObjectID, from, to domain.PlanStatus, action string) (*domain.Plan, error) {
	plan, err := s.withPlan(ctx, planID, func(p *domain.Plan) error {
		if p.RoleOf(userID) != domain.RoleOrganizer {
			return apperrors.NotPlanOrganizer()
		}
		if p.Status != from {
			return apperrors.Validation("plan is not in the required status", map[string]interface{}{
				"status": string(p.Status),
			})
		}
		p.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		ActorID: userID.Hex(), ResourceType: "plan", ResourceID: planID.Hex(),
		Action: action, Status: audit.StatusSuccess,
	})
	return plan, nil
}

// ConfirmPlan finalizes the plan itself. Organizer only; terminal.
func (s *planService) ConfirmPlan(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.withPlan(ctx, planID, func(p *domain.Plan) error {
		if p.RoleOf(userID) != domain.RoleOrganizer {
			return apperrors.NotPlanOrganizer()
		}
		if p.Status == domain.PlanConfirmed {
			return nil
		}
		p.Status = domain.PlanConfirmed
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		ActorID: userID.Hex(), ResourceType: "plan", ResourceID: planID.Hex(),
		Action: "confirm_plan", Status: audit.StatusSuccess,
	})
	return plan, nil
}

// AddParticipant adds a user to the plan directly, bypassing the
// invitation link. Organizer or admin only. Adding an existing member
// is a no-op.
func (s *planService) AddParticipant(ctx context.Context, planID, actorID, targetID primitive.ObjectID) (*domain.Plan, error) {
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.UserNotFound(targetID.Hex())
		}
		return nil, apperrors.Database(err)
	}

	var existing []primitive.ObjectID
	alreadyMember := false
	plan, err := s.withPlan(ctx, planID, func(p *domain.Plan) error {
		role := p.RoleOf(actorID)
		if role != domain.RoleOrganizer && role != domain.RoleAdmin {
			return apperrors.UserNotAuthorized(actorID.Hex())
		}
		if p.IsMember(targetID) {
			alreadyMember = true
			return nil
		}
		existing = existing[:0]
		existing = append(existing, p.OrganizerID)
		existing = append(existing, p.AdminIDs...)
		existing = append(existing, p.ParticipantIDs...)
		p.ParticipantIDs = append(p.ParticipantIDs, targetID)
		p.RecalculateCosts()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if alreadyMember {
		return plan, nil
	}

	for _, memberID := range existing {
		if err := s.userRepo.AddMutual(ctx, targetID, memberID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", targetID.Hex()).Msg("failed to link mutual")
		}
		if err := s.userRepo.AddMutual(ctx, memberID, targetID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", memberID.Hex()).Msg("failed to link mutual")
		}
	}
	if err := s.userRepo.IncrementCounters(ctx, targetID, 0, 1); err != nil {
		s.logger.Warn().Err(err).Str("user_id", targetID.Hex()).Msg("failed to bump participating count")
	}

	s.audit.Record(ctx, audit.Event{
		ActorID: actorID.Hex(), ResourceType: "plan", ResourceID: planID.Hex(),
		Action: "add_participant", Status: audit.StatusSuccess,
	})
	s.broadcast.Broadcast(planID.Hex(), "plan_joined", map[string]string{"user_id": targetID.Hex()})
	return plan, nil
}

// AddAdmin promotes an existing participant to admin. Organizer only.
// Membership classes are exclusive, so the target leaves the
// participant set.
func (s *planService) AddAdmin(ctx context.Context, planID, actorID, targetID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.withPlan(ctx, planID, func(p *domain.Plan) error {
		if p.RoleOf(actorID) != domain.RoleOrganizer {
			return apperrors.NotPlanOrganizer()
		}
		if p.RoleOf(targetID) != domain.RoleParticipant {
			return apperrors.Validation("target must be a participant of the plan", map[string]interface{}{
				"user_id": targetID.Hex(),
			})
		}
		for i, id := range p.ParticipantIDs {
			if id == targetID {
				p.ParticipantIDs = append(p.ParticipantIDs[:i], p.ParticipantIDs[i+1:]...)
				break
			}
		}
		p.AdminIDs = append(p.AdminIDs, targetID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		ActorID: actorID.Hex(), ResourceType: "plan", ResourceID: planID.Hex(),
		Action: "add_admin", Status: audit.StatusSuccess,
	})
	return plan, nil
}

// RemoveParticipant drops a participant from the plan. Organizer only.
func (s *planService) RemoveParticipant(ctx context.Context, planID, actorID, targetID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.withPlan(ctx, planID, func(p *domain.Plan) error {
		if p.RoleOf(actorID) != domain.RoleOrganizer {
			return apperrors.NotPlanOrganizer()
		}
		found := false
		for i, id := range p.ParticipantIDs {
			if id == targetID {
				p.ParticipantIDs = append(p.ParticipantIDs[:i], p.ParticipantIDs[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			return apperrors.UserNotFound(targetID.Hex())
		}
		p.RecalculateCosts()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.IncrementCounters(ctx, targetID, 0, -1); err != nil {
		s.logger.Warn().Err(err).Str("user_id", targetID.Hex()).Msg("failed to decrement participating count")
	}

	s.audit.Record(ctx, audit.Event{
		ActorID: actorID.Hex(), ResourceType: "plan", ResourceID: planID.Hex(),
		Action: "remove_participant", Status: audit.StatusSuccess,
	})
	s.broadcast.Broadcast(planID.Hex(), "plan_left", map[string]string{"user_id": targetID.Hex()})
	return plan, nil
}

// Pay settles the caller's share on every confirmed activity they
// voted for and have not paid yet. Only valid while the plan is
// locked; paying twice credits nothing the second time.
func (s *planService) Pay(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.withPlan(ctx, planID, func(p *domain.Plan) error {
		if !p.IsMember(userID) {
			return apperrors.UserNotAuthorized(userID.Hex())
		}
		if p.Status != domain.PlanLocked {
			return apperrors.Validation("plan must be locked before payments are accepted", map[string]interface{}{
				"status": string(p.Status),
			})
		}
		for i := range p.Activities {
			a := &p.Activities[i]
			if a.Status != domain.ActivityConfirmed {
				continue
			}
			if !a.HasVote(userID) || a.HasPaid(userID) {
				continue
			}
			a.PaymentIDs = append(a.PaymentIDs, userID)
			p.Costs.Collected += a.Costs.PerPerson
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		ActorID: userID.Hex(), ResourceType: "plan", ResourceID: planID.Hex(),
		Action: "pay", Status: audit.StatusSuccess,
	})
	return plan, nil
}

// SendMessage appends a chat message and broadcasts it to the plan's
// room. Messages are allowed regardless of lock state.
func (s *planService) SendMessage(ctx context.Context, planID, userID primitive.ObjectID, text string) (*domain.Message, error) {
	if text == "" {
		return nil, apperrors.Validation("message text is required", map[string]interface{}{"fields": []string{"text"}})
	}
	var message domain.Message
	_, err := s.withPlan(ctx, planID, func(p *domain.Plan) error {
		if !p.IsMember(userID) {
			return apperrors.UserNotAuthorized(userID.Hex())
		}
		message = domain.Message{
			SenderID:  userID,
			Text:      text,
			Timestamp: time.Now().UTC(),
		}
		p.Messages = append(p.Messages, message)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()
	s.broadcast.Broadcast(planID.Hex(), "new_message", message)
	return &message, nil
}

// IsMember reports whether the user holds any role on the plan. The
// real-time layer gates room joins with it.
func (s *planService) IsMember(ctx context.Context, planID, userID primitive.ObjectID) (bool, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, apperrors.PlanNotFound(planID.Hex())
		}
		return false, apperrors.Database(err)
	}
	return plan.IsMember(userID), nil
}
