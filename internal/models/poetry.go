// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Word is a qaafia dictionary entry. RaviN holds the word's rhyme class of length N.
type Word struct {
	ID    bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Word  string        `bson:"word" json:"word"`
	Ravi1 string        `bson:"ravi1" json:"ravi1"`
	Ravi2 string        `bson:"ravi2" json:"ravi2"`
	Ravi3 string        `bson:"ravi3" json:"ravi3"`
	Ravi4 string        `bson:"ravi4" json:"ravi4"`
	Ravi5 string        `bson:"ravi5" json:"ravi5"`
}

// Ghazal is a single poem. PoetryDomain is the form (Ghazal, Nazm, ...).
type Ghazal struct {
	ID            bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	PoetName      string        `bson:"poetName" json:"poetName"`
	PoetryDomain  string        `bson:"poetryDomain" json:"poetryDomain"`
	PoetryTitle   string        `bson:"poetryTitle" json:"poetryTitle"`
	PoetryContent string        `bson:"poetryContent" json:"poetryContent"`
	Genre         string        `bson:"genre" json:"genre"`
}

// GhazalTitle is the listing projection of a ghazal.
type GhazalTitle struct {
	ID          bson.ObjectID `bson:"_id" json:"_id"`
	PoetryTitle string        `bson:"poetryTitle" json:"poetryTitle"`
}

// GhazalFilter narrows a ghazal listing. Empty fields are ignored.
type GhazalFilter struct {
	PoetName     string
	Genre        string
	PoetryDomain string
}

// Poet is a promoted user's public profile.
type Poet struct {
	ID        bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name      string          `bson:"name" json:"name"`
	Image     string          `bson:"image" json:"image"`
	Biography string          `bson:"biography" json:"biography"`
	Couplet   string          `bson:"couplet" json:"couplet"`
	Ghazals   []bson.ObjectID `bson:"ghazals" json:"ghazals"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// PendingPoet is a poet submission awaiting review.
type PendingPoet struct {
	ID            bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	PoetName      string        `bson:"poetName" json:"poetName"`
	PoetryDomain  string        `bson:"poetryDomain" json:"poetryDomain"`
	PoetryTitle   string        `bson:"poetryTitle" json:"poetryTitle"`
	PoetryContent string        `bson:"poetryContent" json:"poetryContent"`
	Genre         string        `bson:"genre" json:"genre"`
	Biography     string        `bson:"biography" json:"biography"`
	Couplet       string        `bson:"couplet" json:"couplet"`
	Image         string        `bson:"image" json:"image"`
	UserID        bson.ObjectID `bson:"userId" json:"userId"`
	CreatedAt     time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// GirahLine is a reference verse used by the girah game.
type GirahLine struct {
	ID   bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Line string        `bson:"line" json:"line"`
}
