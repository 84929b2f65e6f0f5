package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Message is embedded in a Chat. Seq is assigned by the server and strictly
// increases within a room.
type Message struct {
	Seq       int64         `bson:"seq" json:"seq"`
	Sender    bson.ObjectID `bson:"sender" json:"sender"`
	Content   string        `bson:"content" json:"content"`
	Timestamp time.Time     `bson:"timestamp" json:"timestamp"`
	FileURL   string        `bson:"fileUrl,omitempty" json:"fileUrl,omitempty"`
	FileName  string        `bson:"fileName,omitempty" json:"fileName,omitempty"`
	FileType  string        `bson:"fileType,omitempty" json:"fileType,omitempty"`
	Duration  float64       `bson:"duration,omitempty" json:"duration,omitempty"`
	Read      bool          `bson:"read" json:"read"`
}

// Chat is a two-party room keyed by a RoomID derived from its participants.
type Chat struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	RoomID       string          `bson:"roomId" json:"roomId"`
	Participants []bson.ObjectID `bson:"participants" json:"participants"`
	Messages     []Message       `bson:"messages" json:"messages"`
	LastActivity time.Time       `bson:"lastActivity" json:"lastActivity"`
	UnreadCounts map[string]int  `bson:"unreadCounts" json:"unreadCounts"`
	NextSeq      int64           `bson:"nextSeq" json:"-"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// HasParticipant reports whether id belongs to the room.
func (c *Chat) HasParticipant(id bson.ObjectID) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}
