package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a chat entry embedded in a plan, immutable once created
// and ordered by timestamp.
type Message struct {
	SenderID  primitive.ObjectID `bson:"senderId" json:"sender_id"`
	Text      string             `bson:"text" json:"text"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}
