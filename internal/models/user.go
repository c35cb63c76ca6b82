package models

import "time"

// User represents an application user created from a verified Google sign-in.
// Sub is the stable Google subject claim; exactly one user exists per sub.
type User struct {
	ID          string     `bson:"_id" json:"id"`
	Sub         string     `bson:"sub" json:"-"`
	Email       string     `bson:"email" json:"email"`
	DisplayName string     `bson:"displayName,omitempty" json:"displayName,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	LastSeenAt  *time.Time `bson:"lastSeenAt,omitempty" json:"lastSeenAt,omitempty"`
}
