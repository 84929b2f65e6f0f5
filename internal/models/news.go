package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// NewsAuthor identifies who posted a news item.
type NewsAuthor struct {
	UserID   bson.ObjectID `bson:"userId" json:"userId"`
	Username string        `bson:"username" json:"username"`
}

// News is a community announcement.
type News struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Description string        `bson:"description" json:"description"`
	Content     string        `bson:"content" json:"content"`
	CreatedBy   NewsAuthor    `bson:"createdBy" json:"createdBy"`
	Image       string        `bson:"image,omitempty" json:"image,omitempty"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Feedback is a message sent through the contact form.
type Feedback struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string        `bson:"name" json:"name"`
	Email     string        `bson:"email" json:"email"`
	Message   string        `bson:"message" json:"message"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}
