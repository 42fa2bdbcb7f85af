package models

import (
	"time"

	"github.com/google/uuid"
)

const RoleUser = "USER"

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	FirstName      string
	LastName       string
	Email          string
	Phone          *string // nil if user registered without phone
	HashedPassword string
	Verified       bool
	Role           string
}

// Fields user allowed to change after registration
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Phone     *string
}
