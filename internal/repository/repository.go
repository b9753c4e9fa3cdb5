package repository

import (
	"context"

	"plansly/backend/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrConflict     = RepositoryError("revision conflict")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// PlanRepository persists the plan aggregate as one unit: embedded
// activities and messages always save with their plan.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error)
	// GetByMember returns plans where the user is organizer, admin or
	// participant.
	GetByMember(ctx context.Context, userID primitive.ObjectID) ([]domain.Plan, error)
	// Update saves the whole aggregate guarded by the plan's revision;
	// it returns ErrConflict if the stored revision moved on.
	Update(ctx context.Context, plan *domain.Plan) error
}

// UserRepository persists users. Counter and relation updates are
// dedicated atomic operations rather than read-modify-write, because
// a user can be touched from several plans concurrently.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	// IncrementCounters atomically adjusts the membership counters.
	IncrementCounters(ctx context.Context, id primitive.ObjectID, hostingDelta, participatingDelta int) error
	// AddMutual adds other to the user's mutuals set (one direction).
	AddMutual(ctx context.Context, id, other primitive.ObjectID) error
}

// InvitationRepository persists invitations. Invitations are only ever
// created and updated; superseded ones stay around as expired.
type InvitationRepository interface {
	Create(ctx context.Context, invite *domain.Invitation) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Invitation, error)
	GetByLink(ctx context.Context, link string) (*domain.Invitation, error)
	Update(ctx context.Context, invite *domain.Invitation) error
	// ConsumeUse atomically claims one use of an active invitation,
	// failing with ErrConflict once the cap is reached.
	ConsumeUse(ctx context.Context, id primitive.ObjectID) error
}

// ImageRepository persists upload metadata; the bytes live in object
// storage.
type ImageRepository interface {
	Create(ctx context.Context, image *domain.Image) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Image, error)
	Update(ctx context.Context, image *domain.Image) error
}
