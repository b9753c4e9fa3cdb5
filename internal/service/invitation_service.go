package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
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

// Invitation link policy.
const (
	inviteLinkValidity = 72 * time.Hour
	inviteMaxUses      = 50
	inviteTokenBytes   = 32
)

// InvitationService issues, validates, replaces and consumes plan
// invitation links.
type InvitationService interface {
	CreateInvite(ctx context.Context, planID primitive.ObjectID) (*domain.Invitation, error)
	// GetInvite returns the plan's current invitation, transparently
	// expiring and replacing it when it is no longer valid. Organizer
	// or participant only.
	GetInvite(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Invitation, error)
	// CheckInvite evaluates an invitation id against a plan without
	// mutating anything.
	CheckInvite(ctx context.Context, plan *domain.Plan, inviteID primitive.ObjectID) (domain.InviteValidity, error)
	// CheckInviteLink is CheckInvite with the plan loaded by id, for
	// callers holding only the identifiers off a shared link.
	CheckInviteLink(ctx context.Context, planID, inviteID primitive.ObjectID) (domain.InviteValidity, error)
	// AcceptInvite joins the user to the plan through its current
	// invitation. A no-op for existing members.
	AcceptInvite(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error)
	// AcceptInviteByLink resolves a shared link token to its plan and
	// joins through it. Superseded links are refused.
	AcceptInviteByLink(ctx context.Context, link string, userID primitive.ObjectID) (*domain.Plan, error)
	ExpireInvite(ctx context.Context, invite *domain.Invitation) error
}

type invitationService struct {
	inviteRepo repository.InvitationRepository
	planRepo   repository.PlanRepository
	userRepo   repository.UserRepository
	audit      audit.Recorder
	logger     zerolog.Logger
	now        func() time.Time
}

// NewInvitationService creates the invitation manager.
func NewInvitationService(
	inviteRepo repository.InvitationRepository,
	planRepo repository.PlanRepository,
	userRepo repository.UserRepository,
	recorder audit.Recorder,
	logger zerolog.Logger,
) InvitationService {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &invitationService{
		inviteRepo: inviteRepo,
		planRepo:   planRepo,
		userRepo:   userRepo,
		audit:      recorder,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// newLinkToken generates a cryptographically random URL-safe token.
func newLinkToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateInvite issues a fresh active invitation for the plan.
func (s *invitationService) CreateInvite(ctx context.Context, planID primitive.ObjectID) (*domain.Invitation, error) {
	link, err := newLinkToken()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAppError, "failed to generate invitation token", 500)
	}

	creation := s.now()
	invite := &domain.Invitation{
		PlanID:    planID,
		Link:      link,
		CreatedAt: creation,
		ExpiresAt: creation.Add(inviteLinkValidity),
		Status:    domain.InvitationActive,
		Uses:      0,
		MaxUses:   inviteMaxUses,
	}

	inviteID, err := s.inviteRepo.Create(ctx, invite)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	invite.ID = inviteID
	return invite, nil
}

// CheckInvite evaluates the supplied invitation id against the plan's
// current one, returning the precise validity outcome so callers can
// tell an expired link from a wrong or missing one.
func (s *invitationService) CheckInvite(ctx context.Context, plan *domain.Plan, inviteID primitive.ObjectID) (domain.InviteValidity, error) {
	if plan.InvitationID == primitive.NilObjectID || plan.InvitationID != inviteID {
		return domain.InviteWrongInvitation, nil
	}
	invite, err := s.inviteRepo.GetByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.InviteMissing, nil
		}
		return domain.InviteMissing, apperrors.Database(err)
	}
	return invite.Validity(s.now()), nil
}

// CheckInviteLink resolves the plan and evaluates the invitation id
// against it.
func (s *invitationService) CheckInviteLink(ctx context.Context, planID, inviteID primitive.ObjectID) (domain.InviteValidity, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.InviteWrongInvitation, apperrors.PlanNotFound(planID.Hex())
		}
		return domain.InviteWrongInvitation, apperrors.Database(err)
	}
	return s.CheckInvite(ctx, plan, inviteID)
}

// GetInvite returns the plan's current invitation for sharing. When
// the current one ran past its window or use cap it is expired and a
// fresh one is attached to the plan in its place.
func (s *invitationService) GetInvite(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Invitation, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.PlanNotFound(planID.Hex())
		}
		return nil, apperrors.Database(err)
	}

	role := plan.RoleOf(userID)
	if role == domain.RoleNone {
		return nil, apperrors.UserNotAuthorized(userID.Hex())
	}

	if plan.InvitationID == primitive.NilObjectID {
		return nil, apperrors.InviteNotFound("")
	}
	invite, err := s.inviteRepo.GetByID(ctx, plan.InvitationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.InviteNotFound(plan.InvitationID.Hex())
		}
		return nil, apperrors.Database(err)
	}

	if invite.Validity(s.now()) == domain.InviteValid {
		return invite, nil
	}

	// Superseded: mark the old link expired and attach a fresh one.
	if err := s.ExpireInvite(ctx, invite); err != nil {
		return nil, err
	}
	fresh, err := s.CreateInvite(ctx, planID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxPlanRetries; attempt++ {
		plan.InvitationID = fresh.ID
		err = s.planRepo.Update(ctx, plan)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrConflict) {
			plan, err = s.planRepo.GetByID(ctx, planID)
			if err != nil {
				return nil, apperrors.Database(err)
			}
			continue
		}
		return nil, apperrors.Database(err)
	}
	if err != nil {
		return nil, apperrors.Conflict("plan was modified concurrently, retries exhausted")
	}

	metrics.InvitesReissued.Inc()
	s.logger.Info().Str("plan_id", planID.Hex()).Str("invite_id", fresh.ID.Hex()).Msg("invitation reissued")
	return fresh, nil
}

// AcceptInvite consumes the plan's invitation for a joining user:
// claims a use atomically, links mutuals both ways with every existing
// member, adds the user as participant and updates their counters.
// Already-members pass through untouched.
func (s *invitationService) AcceptInvite(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.PlanNotFound(planID.Hex())
		}
		return nil, apperrors.Database(err)
	}

	if plan.IsMember(userID) {
		return plan, nil
	}

	if plan.InvitationID == primitive.NilObjectID {
		return nil, apperrors.InviteNotFound("")
	}
	invite, err := s.inviteRepo.GetByID(ctx, plan.InvitationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.InviteNotFound(plan.InvitationID.Hex())
		}
		return nil, apperrors.Database(err)
	}
	switch invite.Validity(s.now()) {
	case domain.InviteValid:
	case domain.InviteExpiredWindow, domain.InviteUseLimitReached:
		return nil, apperrors.InviteExpired()
	default:
		return nil, apperrors.InviteNotFound(invite.ID.Hex())
	}

	// The use counter is claimed atomically before membership is
	// granted, so two racing acceptances cannot both slip under the
	// cap. A membership failure after this point leaves the use
	// consumed; the stores are separate and no rollback spans them.
	if err := s.inviteRepo.ConsumeUse(ctx, invite.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.InviteExpired()
		}
		return nil, apperrors.Database(err)
	}

	existing := make([]primitive.ObjectID, 0, len(plan.ParticipantIDs)+len(plan.AdminIDs)+1)
	existing = append(existing, plan.OrganizerID)
	existing = append(existing, plan.AdminIDs...)
	existing = append(existing, plan.ParticipantIDs...)

	// Membership goes through the revision guard like every other plan
	// mutation.
	for attempt := 0; attempt < maxPlanRetries; attempt++ {
		if plan.IsMember(userID) {
			return plan, nil
		}
		plan.ParticipantIDs = append(plan.ParticipantIDs, userID)
		plan.RecalculateCosts()
		err = s.planRepo.Update(ctx, plan)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrConflict) {
			plan, err = s.planRepo.GetByID(ctx, planID)
			if err != nil {
				return nil, apperrors.Database(err)
			}
			continue
		}
		return nil, apperrors.Database(err)
	}
	if err != nil {
		return nil, apperrors.Conflict("plan was modified concurrently, retries exhausted")
	}

	for _, memberID := range existing {
		if err := s.userRepo.AddMutual(ctx, userID, memberID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID.Hex()).Msg("failed to link mutual")
		}
		if err := s.userRepo.AddMutual(ctx, memberID, userID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", memberID.Hex()).Msg("failed to link mutual")
		}
	}
	if err := s.userRepo.IncrementCounters(ctx, userID, 0, 1); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.Hex()).Msg("failed to bump participating count")
	}

	metrics.InvitesAccepted.Inc()
	s.audit.Record(ctx, audit.Event{
		ActorID: userID.Hex(), ResourceType: "plan", ResourceID: planID.Hex(),
		Action: "accept_invite", Status: audit.StatusSuccess,
	})
	return plan, nil
}

// AcceptInviteByLink joins through the raw link token, the only thing
// a shared invitation URL carries. The token must still resolve to the
// plan's current invitation; a rotated-out link grants nothing.
func (s *invitationService) AcceptInviteByLink(ctx context.Context, link string, userID primitive.ObjectID) (*domain.Plan, error) {
	invite, err := s.inviteRepo.GetByLink(ctx, link)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.InviteNotFound(link)
		}
		return nil, apperrors.Database(err)
	}

	plan, err := s.planRepo.GetByID(ctx, invite.PlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.PlanNotFound(invite.PlanID.Hex())
		}
		return nil, apperrors.Database(err)
	}
	if plan.InvitationID != invite.ID {
		return nil, apperrors.InviteExpired()
	}

	return s.AcceptInvite(ctx, plan.ID, userID)
}

// ExpireInvite marks the invitation expired and persists it.
func (s *invitationService) ExpireInvite(ctx context.Context, invite *domain.Invitation) error {
	invite.Status = domain.InvitationExpired
	if err := s.inviteRepo.Update(ctx, invite); err != nil {
		return apperrors.Database(err)
	}
	return nil
}
