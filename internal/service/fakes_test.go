package service

import (
	"context"
	"sync"
	"time"

	"plansly/backend/internal/domain"
	"plansly/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 6, 1, hour, min, 0, 0, time.UTC)
}

// clonePlan deep-copies a plan so fakes hand out independent
// aggregates the way a real database round trip would.
func clonePlan(p *domain.Plan) *domain.Plan {
	out := *p
	out.AdminIDs = append([]primitive.ObjectID(nil), p.AdminIDs...)
	out.ParticipantIDs = append([]primitive.ObjectID(nil), p.ParticipantIDs...)
	out.ImageIDs = append([]primitive.ObjectID(nil), p.ImageIDs...)
	out.Messages = append([]domain.Message(nil), p.Messages...)
	out.Activities = make([]domain.Activity, len(p.Activities))
	for i := range p.Activities {
		a := p.Activities[i]
		a.VoteIDs = append([]primitive.ObjectID(nil), p.Activities[i].VoteIDs...)
		a.PaymentIDs = append([]primitive.ObjectID(nil), p.Activities[i].PaymentIDs...)
		out.Activities[i] = a
	}
	return &out
}

type fakePlanRepo struct {
	mu    sync.Mutex
	plans map[primitive.ObjectID]*domain.Plan

	// forceConflicts makes the next n Update calls fail with
	// ErrConflict to exercise the retry path.
	forceConflicts int
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[primitive.ObjectID]*domain.Plan)}
}

func (r *fakePlanRepo) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	plan.ID = id
	r.plans[id] = clonePlan(plan)
	return id, nil
}

func (r *fakePlanRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePlan(plan), nil
}

func (r *fakePlanRepo) GetByMember(ctx context.Context, userID primitive.ObjectID) ([]domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Plan
	for _, plan := range r.plans {
		if plan.IsMember(userID) {
			out = append(out, *clonePlan(plan))
		}
	}
	return out, nil
}

func (r *fakePlanRepo) Update(ctx context.Context, plan *domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.plans[plan.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.forceConflicts > 0 {
		r.forceConflicts--
		return repository.ErrConflict
	}
	if stored.Revision != plan.Revision {
		return repository.ErrConflict
	}
	plan.Revision++
	r.plans[plan.ID] = clonePlan(plan)
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func containsID(ids []primitive.ObjectID, want primitive.ObjectID) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

func (r *fakeUserRepo) addUser() primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	r.users[id] = &domain.User{ID: id}
	return id
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	user.ID = id
	copied := *user
	r.users[id] = &copied
	return id, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	copied.MutualIDs = append([]primitive.ObjectID(nil), user.MutualIDs...)
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) IncrementCounters(ctx context.Context, id primitive.ObjectID, hostingDelta, participatingDelta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.HostingCount += hostingDelta
	user.ParticipatingCount += participatingDelta
	return nil
}

func (r *fakeUserRepo) AddMutual(ctx context.Context, id, other primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, existing := range user.MutualIDs {
		if existing == other {
			return nil
		}
	}
	user.MutualIDs = append(user.MutualIDs, other)
	return nil
}

type fakeInviteRepo struct {
	mu      sync.Mutex
	invites map[primitive.ObjectID]*domain.Invitation
}

func newFakeInviteRepo() *fakeInviteRepo {
	return &fakeInviteRepo{invites: make(map[primitive.ObjectID]*domain.Invitation)}
}

func (r *fakeInviteRepo) Create(ctx context.Context, invite *domain.Invitation) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	invite.ID = id
	copied := *invite
	r.invites[id] = &copied
	return id, nil
}

func (r *fakeInviteRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invite, ok := r.invites[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *invite
	return &copied, nil
}

func (r *fakeInviteRepo) GetByLink(ctx context.Context, link string) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, invite := range r.invites {
		if invite.Link == link {
			copied := *invite
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeInviteRepo) Update(ctx context.Context, invite *domain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invites[invite.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *invite
	r.invites[invite.ID] = &copied
	return nil
}

func (r *fakeInviteRepo) ConsumeUse(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	invite, ok := r.invites[id]
	if !ok || invite.Status != domain.InvitationActive || invite.Uses >= invite.MaxUses {
		return repository.ErrConflict
	}
	invite.Uses++
	return nil
}

// recordingBroadcaster captures events for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroadcaster) Broadcast(planID string, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) has(event string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e == event {
			return true
		}
	}
	return false
}
