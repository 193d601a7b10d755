package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const DefaultAvatarURL = "https://placehold.co/400x400"

type Avatar struct {
	URL        string `bson:"url" json:"url"`
	LocalPath  string `bson:"localPath,omitempty" json:"localPath,omitempty"`
	ObjectName string `bson:"objectName,omitempty" json:"-"`
}

type User struct {
	ID              bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Avatar          Avatar        `bson:"avatar" json:"avatar"`
	Username        string        `bson:"username" json:"username"`
	Email           string        `bson:"email" json:"email"`
	FullName        string        `bson:"fullName,omitempty" json:"fullName,omitempty"`
	PasswordHash    string        `bson:"passwordHash" json:"-"` // never expose
	IsEmailVerified bool          `bson:"isEmailVerified" json:"isEmailVerified"`

	// Single active session per user: a new login or refresh rotation
	// overwrites the stored token, invalidating the prior session.
	// Concurrent writes to this field are last-writer-wins.
	RefreshToken string `bson:"refreshToken,omitempty" json:"-"`

	// Ephemeral token pairs. Only the SHA-256 digest of the token handed to
	// the user is stored; each pair is present iff a request is pending.
	EmailVerificationToken  string    `bson:"emailVerificationToken,omitempty" json:"-"`
	EmailVerificationExpiry time.Time `bson:"emailVerificationExpiry,omitempty" json:"-"`
	PasswordResetToken      string    `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpiry     time.Time `bson:"passwordResetExpiry,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
