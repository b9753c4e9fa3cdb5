package mongo

import (
	"context"
	"errors"

	"plansly/backend/internal/domain"
	"plansly/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const invitationCollectionName = "invitations"

// mongoInvitationRepository implements repository.InvitationRepository.
type mongoInvitationRepository struct {
	collection *mongo.Collection
}

// NewMongoInvitationRepository creates an invitation repository backed
// by the given database.
func NewMongoInvitationRepository(db *mongo.Database) repository.InvitationRepository {
	return &mongoInvitationRepository{
		collection: db.Collection(invitationCollectionName),
	}
}

// Create inserts a new invitation.
func (r *mongoInvitationRepository) Create(ctx context.Context, invite *domain.Invitation) (primitive.ObjectID, error) {
	if invite.Link == "" || invite.PlanID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("invitation link and plan are required")
	}

	invite.ID = primitive.NewObjectID()

	result, err := r.collection.InsertOne(ctx, invite)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves an invitation by its ObjectID.
func (r *mongoInvitationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Invitation, error) {
	var invite domain.Invitation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&invite)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &invite, nil
}

// GetByLink retrieves an invitation by its link token.
func (r *mongoInvitationRepository) GetByLink(ctx context.Context, link string) (*domain.Invitation, error) {
	var invite domain.Invitation
	err := r.collection.FindOne(ctx, bson.M{"link": link}).Decode(&invite)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &invite, nil
}

// Update replaces the stored invitation document.
func (r *mongoInvitationRepository) Update(ctx context.Context, invite *domain.Invitation) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": invite.ID}, invite)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ConsumeUse claims one use with a filtered increment. The filter
// enforces the cap inside the database, so concurrent acceptances
// cannot overshoot it.
func (r *mongoInvitationRepository) ConsumeUse(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"status": domain.InvitationActive,
			"$expr":  bson.M{"$lt": bson.A{"$uses", "$maxUses"}},
		},
		bson.M{"$inc": bson.M{"uses": 1}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrConflict
	}
	return nil
}

// EnsureInvitationIndexes creates the indexes for invitation lookup.
func EnsureInvitationIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "link", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "planId", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
