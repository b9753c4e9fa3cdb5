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

const imageCollectionName = "images"

// mongoImageRepository implements repository.ImageRepository.
type mongoImageRepository struct {
	collection *mongo.Collection
}

// NewMongoImageRepository creates an image metadata repository backed
// by the given database.
func NewMongoImageRepository(db *mongo.Database) repository.ImageRepository {
	return &mongoImageRepository{
		collection: db.Collection(imageCollectionName),
	}
}

// Create inserts new image metadata in pending state.
func (r *mongoImageRepository) Create(ctx context.Context, image *domain.Image) (primitive.ObjectID, error) {
	if image.Key == "" {
		return primitive.NilObjectID, errors.New("image storage key is required")
	}

	image.ID = primitive.NewObjectID()
	if image.UploadedAt.IsZero() {
		image.UploadedAt = time.Now().UTC()
	}
	if image.UploadStatus == "" {
		image.UploadStatus = domain.UploadPending
	}

	result, err := r.collection.InsertOne(ctx, image)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves image metadata by its ObjectID.
func (r *mongoImageRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Image, error) {
	var image domain.Image
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&image)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &image, nil
}

// Update replaces the stored image metadata.
func (r *mongoImageRepository) Update(ctx context.Context, image *domain.Image) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": image.ID}, image)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureImageIndexes creates the unique index on the storage key.
func EnsureImageIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "uploadedById", Value: 1}}},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
