package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"plansly/backend/internal/apperrors"
	"plansly/backend/internal/domain"
	"plansly/backend/internal/repository"
	"plansly/backend/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Upload policy for plan images.
const (
	maxImageSize    = 10 * 1024 * 1024
	uploadURLExpiry = 60 * time.Second
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UploadRequest describes the file a client wants to upload.
type UploadRequest struct {
	Filename string
	Filetype string
	Filesize int64
}

// ImageService issues presigned upload/download URLs and tracks upload
// status. Bytes never pass through this process.
type ImageService interface {
	RequestUpload(ctx context.Context, userID primitive.ObjectID, req UploadRequest) (uploadURL string, image *domain.Image, err error)
	MarkUploaded(ctx context.Context, imageID primitive.ObjectID) (*domain.Image, error)
	DownloadURL(ctx context.Context, imageID primitive.ObjectID) (string, error)
}

type imageService struct {
	imageRepo repository.ImageRepository
	storage   storage.FileStorage
}

// NewImageService creates a new instance of imageService.
func NewImageService(imageRepo repository.ImageRepository, fileStorage storage.FileStorage) ImageService {
	return &imageService{
		imageRepo: imageRepo,
		storage:   fileStorage,
	}
}

// RequestUpload validates the file, records pending metadata under a
// fresh date-sharded key and returns a short-lived presigned PUT URL.
func (s *imageService) RequestUpload(ctx context.Context, userID primitive.ObjectID, req UploadRequest) (string, *domain.Image, error) {
	var bad []string
	if req.Filesize <= 0 || req.Filesize > maxImageSize {
		bad = append(bad, "filesize")
	}
	if !allowedImageTypes[req.Filetype] {
		bad = append(bad, "filetype")
	}
	if len(bad) > 0 {
		return "", nil, apperrors.Validation("invalid upload request", map[string]interface{}{"fields": bad})
	}

	filename := strings.NewReplacer("/", "_", "\\", "_").Replace(req.Filename)
	now := time.Now().UTC()
	key := fmt.Sprintf("uploads/%d/%02d/%02d/user/%s/%s",
		now.Year(), now.Month(), now.Day(), userID.Hex(), uuid.NewString())

	image := &domain.Image{
		Key:          key,
		Filename:     filename,
		Filesize:     req.Filesize,
		Filetype:     req.Filetype,
		UploadedByID: userID,
		UploadStatus: domain.UploadPending,
	}
	imageID, err := s.imageRepo.Create(ctx, image)
	if err != nil {
		return "", nil, apperrors.Database(err)
	}
	image.ID = imageID

	url, err := s.storage.GeneratePresignedUploadURL(ctx, key, req.Filetype, uploadURLExpiry)
	if err != nil {
		return "", nil, apperrors.Wrap(err, apperrors.CodeAppError, "failed to generate upload URL", 500)
	}
	return url, image, nil
}

// MarkUploaded flips the image to uploaded once the client confirms
// the PUT completed.
func (s *imageService) MarkUploaded(ctx context.Context, imageID primitive.ObjectID) (*domain.Image, error) {
	image, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "image not found", 404)
		}
		return nil, apperrors.Database(err)
	}
	image.UploadStatus = domain.UploadUploaded
	if err := s.imageRepo.Update(ctx, image); err != nil {
		return nil, apperrors.Database(err)
	}
	return image, nil
}

// DownloadURL returns a short-lived presigned GET URL for the image.
func (s *imageService) DownloadURL(ctx context.Context, imageID primitive.ObjectID) (string, error) {
	image, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.New(apperrors.CodeNotFound, "image not found", 404)
		}
		return "", apperrors.Database(err)
	}
	url, err := s.storage.GeneratePresignedDownloadURL(ctx, image.Key, uploadURLExpiry)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeAppError, "failed to generate download URL", 500)
	}
	return url, nil
}
