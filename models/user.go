package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account lifecycle states. Signup creates a pending account; OTP
// verification moves it to verified; active is set on first login.
const (
	UserStatusPending  = "pending"
	UserStatusVerified = "verified"
	UserStatusActive   = "active"
)

// User represents a registered shopper
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	DOB       string             `bson:"dob,omitempty" json:"dob,omitempty"`
	Gender    string             `bson:"gender,omitempty" json:"gender,omitempty"`
	Status    string             `bson:"status" json:"status"`
	OTP       string             `bson:"otp" json:"-"` // email verification / password reset
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
