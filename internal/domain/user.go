package domain

import "time"

// User is the persisted record of a sender that contacted the bot.
type User struct {
	UserID     int64     `bson:"user_id" json:"user_id"`
	ChatID     int64     `bson:"chat_id" json:"chat_id"`
	FirstName  string    `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName   string    `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Username   string    `bson:"username,omitempty" json:"username,omitempty"`
	Role       string    `bson:"role" json:"role"`
	Authorized bool      `bson:"authorized" json:"authorized"`
	LastSeenAt time.Time `bson:"last_seen_at" json:"last_seen_at"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}
