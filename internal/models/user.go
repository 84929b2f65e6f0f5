package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Roles a user can hold.
const (
	RoleUser = "user"
	RolePoet = "poet"
)

// OTP is a one-time password issued for password reset.
// Verified is set once the code has been confirmed and gates the password change.
type OTP struct {
	Code     string    `bson:"code" json:"-"`
	Expiry   time.Time `bson:"expiry" json:"-"`
	Verified bool      `bson:"verified" json:"-"`
}

// User is a registered account. Password always holds a bcrypt hash.
type User struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Username     string          `bson:"username" json:"username"`
	Email        string          `bson:"email" json:"email"`
	Password     string          `bson:"password" json:"-"`
	OTP          *OTP            `bson:"otp,omitempty" json:"-"`
	Favorites    []bson.ObjectID `bson:"favorites" json:"favorites"`
	Role         string          `bson:"role" json:"role"`
	IsActive     bool            `bson:"isActive" json:"isActive"`
	IsOnline     bool            `bson:"isOnline" json:"isOnline"`
	LastActivity time.Time       `bson:"lastActivity" json:"lastActivity"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// ActiveUser is a user listed in the chat sidebar.
type ActiveUser struct {
	ID           bson.ObjectID `json:"_id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	IsActive     bool          `json:"isActive"`
	IsOnline     bool          `json:"isOnline"`
	LastActivity time.Time     `json:"lastActivity"`
	UnreadCount  int           `json:"unreadCount"`
}
