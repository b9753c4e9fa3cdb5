package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account. Plans reference users; they never own
// them. HostingCount/ParticipatingCount are denormalized counters that
// track plan membership, and MutualIDs is the symmetric acquaintance
// relation formed between co-participants.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"` // unique
	Name         string             `bson:"name,omitempty" json:"name,omitempty"`
	Picture      string             `bson:"picture,omitempty" json:"picture,omitempty"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Provider     string             `bson:"provider,omitempty" json:"provider,omitempty"`

	LinkedAccounts []string `bson:"linkedAccounts,omitempty" json:"linked_accounts,omitempty"`

	HostingCount       int                  `bson:"hostingCount" json:"hosting_count"`
	ParticipatingCount int                  `bson:"participatingCount" json:"participating_count"`
	MutualIDs          []primitive.ObjectID `bson:"mutualIds,omitempty" json:"mutual_ids,omitempty"`

	// Preferences
	Notifications bool   `bson:"notifications" json:"notifications"`
	LightTheme    bool   `bson:"lightTheme" json:"light_theme"`
	Currency      string `bson:"currency,omitempty" json:"currency,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}
