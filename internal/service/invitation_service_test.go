package service

import (
	"context"
	"testing"
	"time"

	"plansly/backend/internal/apperrors"
	"plansly/backend/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGetInviteReturnsCurrentValidLink(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	plan, organizer, _ := env.newPlan(t, 0)

	invite, err := env.invites.GetInvite(ctx, plan.ID, organizer)
	if err != nil {
		t.Fatalf("GetInvite: %v", err)
	}
	if invite.ID != plan.InvitationID {
		t.Error("a still-valid invitation must be returned as-is, not replaced")
	}
	if invite.Link == "" {
		t.Error("invitation must carry a link token")
	}

	stranger := env.userRepo.addUser()
	_, err = env.invites.GetInvite(ctx, plan.ID, stranger)
	wantCode(t, err, apperrors.CodeNotAuthorized)
}

func TestGetInviteReissuesExpiredLink(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	plan, organizer, _ := env.newPlan(t, 0)
	oldID := plan.InvitationID

	// Move the clock past the validity window.
	isvc := env.invites.(*invitationService)
	isvc.now = func() time.Time { return time.Now().UTC().Add(inviteLinkValidity + time.Hour) }

	fresh, err := env.invites.GetInvite(ctx, plan.ID, organizer)
	if err != nil {
		t.Fatalf("GetInvite: %v", err)
	}
	if fresh.ID == oldID {
		t.Fatal("an expired invitation must be replaced")
	}
	if fresh.Uses != 0 || fresh.MaxUses != inviteMaxUses {
		t.Errorf("fresh invite uses = %d/%d, want 0/%d", fresh.Uses, fresh.MaxUses, inviteMaxUses)
	}

	old, err := env.inviteRepo.GetByID(ctx, oldID)
	if err != nil {
		t.Fatalf("old invite lookup: %v", err)
	}
	if old.Status != domain.InvitationExpired {
		t.Errorf("old invite Status = %q, want expired", old.Status)
	}

	updated, err := env.plans.GetPlan(ctx, plan.ID, organizer)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if updated.InvitationID != fresh.ID {
		t.Error("plan must point at the fresh invitation")
	}
}

func TestCheckInvite(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	plan, _, _ := env.newPlan(t, 0)

	validity, err := env.invites.CheckInviteLink(ctx, plan.ID, plan.InvitationID)
	if err != nil {
		t.Fatalf("CheckInviteLink: %v", err)
	}
	if validity != domain.InviteValid {
		t.Errorf("validity = %q, want valid", validity)
	}

	validity, err = env.invites.CheckInviteLink(ctx, plan.ID, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("CheckInviteLink: %v", err)
	}
	if validity != domain.InviteWrongInvitation {
		t.Errorf("validity = %q, want wrong_invitation", validity)
	}

	// Saturate the use counter.
	invite, err := env.inviteRepo.GetByID(ctx, plan.InvitationID)
	if err != nil {
		t.Fatalf("invite lookup: %v", err)
	}
	invite.Uses = invite.MaxUses
	if err := env.inviteRepo.Update(ctx, invite); err != nil {
		t.Fatalf("invite update: %v", err)
	}

	validity, err = env.invites.CheckInviteLink(ctx, plan.ID, plan.InvitationID)
	if err != nil {
		t.Fatalf("CheckInviteLink: %v", err)
	}
	if validity != domain.InviteUseLimitReached {
		t.Errorf("validity = %q, want use_limit_reached", validity)
	}
}

func TestAcceptInvite(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	plan, organizer, _ := env.newPlan(t, 1)
	joiner := env.userRepo.addUser()

	joined, err := env.invites.AcceptInvite(ctx, plan.ID, joiner)
	if err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}
	if joined.RoleOf(joiner) != domain.RoleParticipant {
		t.Fatal("joiner should become a participant")
	}

	// Mutuals are linked both directions with every prior member.
	joinerUser, err := env.userRepo.GetByID(ctx, joiner)
	if err != nil {
		t.Fatalf("user lookup: %v", err)
	}
	if len(joinerUser.MutualIDs) != 2 {
		t.Errorf("joiner mutuals = %d, want organizer and the existing participant", len(joinerUser.MutualIDs))
	}
	organizerUser, err := env.userRepo.GetByID(ctx, organizer)
	if err != nil {
		t.Fatalf("user lookup: %v", err)
	}
	found := false
	for _, id := range organizerUser.MutualIDs {
		if id == joiner {
			found = true
		}
	}
	if !found {
		t.Error("organizer should have the joiner as a mutual")
	}

	if joinerUser.ParticipatingCount != 1 {
		t.Errorf("ParticipatingCount = %d, want 1", joinerUser.ParticipatingCount)
	}

	invite, err := env.inviteRepo.GetByID(ctx, plan.InvitationID)
	if err != nil {
		t.Fatalf("invite lookup: %v", err)
	}
	usesAfterJoin := invite.Uses
	if usesAfterJoin < 2 {
		t.Errorf("Uses = %d, want at least 2 (existing participant plus joiner)", usesAfterJoin)
	}

	// Accepting again is a no-op for an existing member.
	again, err := env.invites.AcceptInvite(ctx, plan.ID, joiner)
	if err != nil {
		t.Fatalf("AcceptInvite (again): %v", err)
	}
	if again.RoleOf(joiner) != domain.RoleParticipant {
		t.Error("member should stay a participant")
	}
	invite, err = env.inviteRepo.GetByID(ctx, plan.InvitationID)
	if err != nil {
		t.Fatalf("invite lookup: %v", err)
	}
	if invite.Uses != usesAfterJoin {
		t.Errorf("Uses = %d after member re-accept, want unchanged %d", invite.Uses, usesAfterJoin)
	}
}

func TestAcceptInviteByLink(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	plan, _, _ := env.newPlan(t, 0)

	invite, err := env.inviteRepo.GetByID(ctx, plan.InvitationID)
	if err != nil {
		t.Fatalf("invite lookup: %v", err)
	}

	joiner := env.userRepo.addUser()
	joined, err := env.invites.AcceptInviteByLink(ctx, invite.Link, joiner)
	if err != nil {
		t.Fatalf("AcceptInviteByLink: %v", err)
	}
	if joined.RoleOf(joiner) != domain.RoleParticipant {
		t.Error("joiner should become a participant")
	}

	_, err = env.invites.AcceptInviteByLink(ctx, "no-such-token", env.userRepo.addUser())
	wantCode(t, err, apperrors.CodeInviteNotFound)

	// A link rotated out from under its plan grants nothing.
	fresh, err := env.invites.CreateInvite(ctx, plan.ID)
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}
	current, err := env.planRepo.GetByID(ctx, plan.ID)
	if err != nil {
		t.Fatalf("plan lookup: %v", err)
	}
	current.InvitationID = fresh.ID
	if err := env.planRepo.Update(ctx, current); err != nil {
		t.Fatalf("plan update: %v", err)
	}

	_, err = env.invites.AcceptInviteByLink(ctx, invite.Link, env.userRepo.addUser())
	wantCode(t, err, apperrors.CodeInviteExpired)
}

func TestAcceptInviteAtomicUseClaim(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	plan, _, _ := env.newPlan(t, 0)

	// The invitation goes inactive between the validity snapshot and
	// the claim, as a concurrent rotation or saturating acceptance
	// would leave it. The filtered increment must refuse the claim.
	invite, err := env.inviteRepo.GetByID(ctx, plan.InvitationID)
	if err != nil {
		t.Fatalf("invite lookup: %v", err)
	}
	usesBefore := invite.Uses
	invite.Status = domain.InvitationExpired
	if err := env.inviteRepo.Update(ctx, invite); err != nil {
		t.Fatalf("invite update: %v", err)
	}

	joiner := env.userRepo.addUser()
	_, err = env.invites.AcceptInvite(ctx, plan.ID, joiner)
	wantCode(t, err, apperrors.CodeInviteExpired)

	refreshed, err := env.planRepo.GetByID(ctx, plan.ID)
	if err != nil {
		t.Fatalf("plan lookup: %v", err)
	}
	if refreshed.IsMember(joiner) {
		t.Error("refused claim must not grant membership")
	}
	invite, err = env.inviteRepo.GetByID(ctx, plan.InvitationID)
	if err != nil {
		t.Fatalf("invite lookup: %v", err)
	}
	if invite.Uses != usesBefore {
		t.Errorf("Uses = %d, want unchanged %d", invite.Uses, usesBefore)
	}
}

func TestAcceptInviteRejectsInvalidLink(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	plan, _, _ := env.newPlan(t, 0)

	invite, err := env.inviteRepo.GetByID(ctx, plan.InvitationID)
	if err != nil {
		t.Fatalf("invite lookup: %v", err)
	}
	invite.Uses = invite.MaxUses
	if err := env.inviteRepo.Update(ctx, invite); err != nil {
		t.Fatalf("invite update: %v", err)
	}

	joiner := env.userRepo.addUser()
	_, err = env.invites.AcceptInvite(ctx, plan.ID, joiner)
	wantCode(t, err, apperrors.CodeInviteExpired)

	refreshed, err := env.planRepo.GetByID(ctx, plan.ID)
	if err != nil {
		t.Fatalf("plan lookup: %v", err)
	}
	if refreshed.IsMember(joiner) {
		t.Error("a saturated link must not grant membership")
	}
}

func TestAcceptInviteUnknownPlan(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	joiner := env.userRepo.addUser()

	_, err := env.invites.AcceptInvite(ctx, primitive.NewObjectID(), joiner)
	wantCode(t, err, apperrors.CodePlanNotFound)
}
