package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UploadStatus tracks whether a client completed the presigned upload.
type UploadStatus string

const (
	UploadPending  UploadStatus = "pending"
	UploadUploaded UploadStatus = "uploaded"
)

// Image stores metadata for an object uploaded via a presigned URL.
// The bytes live in object storage under Key; only the key and the
// upload status are persisted here.
type Image struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Key          string             `bson:"key" json:"key"` // unique storage key
	Filename     string             `bson:"filename,omitempty" json:"filename,omitempty"`
	Filesize     int64              `bson:"filesize" json:"filesize"`
	Filetype     string             `bson:"filetype,omitempty" json:"filetype,omitempty"`
	UploadedByID primitive.ObjectID `bson:"uploadedById" json:"uploaded_by_id"`
	UploadedAt   time.Time          `bson:"uploadedAt" json:"uploaded_at"`
	UploadStatus UploadStatus       `bson:"uploadStatus" json:"upload_status"`
}
