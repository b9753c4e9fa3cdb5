package mongo

import (
	"context"
	"errors"
	"time"

	"plansly/backend/internal/domain"
	"plansly/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planCollectionName = "plans"

// mongoPlanRepository implements repository.PlanRepository. The plan
// document embeds its activities and messages, so a single replace
// persists the whole aggregate atomically.
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a plan repository backed by the given
// database.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new plan. The revision starts at 1.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.Type == "" || plan.OrganizerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("plan type and organizer are required")
	}

	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	plan.Revision = 1

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a plan aggregate by its ObjectID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByMember returns every plan where the user holds a role, newest
// first.
func (r *mongoPlanRepository) GetByMember(ctx context.Context, userID primitive.ObjectID) ([]domain.Plan, error) {
	filter := bson.M{"$or": []bson.M{
		{"organizerId": userID},
		{"adminIds": userID},
		{"participantIds": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var plans []domain.Plan
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// Update replaces the whole aggregate, guarded by the revision the
// caller loaded. A concurrent writer that got there first leaves the
// stored revision ahead of ours; the filter then matches nothing and
// the caller gets ErrConflict to reload and retry.
func (r *mongoPlanRepository) Update(ctx context.Context, plan *domain.Plan) error {
	filter := bson.M{"_id": plan.ID, "revision": plan.Revision}

	plan.Revision++
	plan.UpdatedAt = time.Now().UTC()

	result, err := r.collection.ReplaceOne(ctx, filter, plan)
	if err != nil {
		plan.Revision--
		return err
	}
	if result.MatchedCount == 0 {
		plan.Revision--
		// Distinguish a moved revision from a missing document.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": plan.ID})
		if countErr == nil && count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	return nil
}

// EnsurePlanIndexes creates the indexes used by membership queries.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "organizerId", Value: 1}}},
		{Keys: bson.D{{Key: "participantIds", Value: 1}}},
		{Keys: bson.D{{Key: "adminIds", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
