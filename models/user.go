package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the slice of the users collection this service reads.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email,omitempty" json:"-"`
	Picture   string             `bson:"picture,omitempty" json:"picture,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// Profile is the public projection used to populate goal responses.
type Profile struct {
	ID      primitive.ObjectID `json:"id"`
	Name    string             `json:"name"`
	Picture string             `json:"picture,omitempty"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Picture: u.Picture}
}
