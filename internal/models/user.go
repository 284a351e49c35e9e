package models

import "time"

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;type:varchar(100);not null"`
	PasswordHash string    `json:"-" gorm:"column:password;type:varchar(255);not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserIdentity is the public projection of a user.
type UserIdentity struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Identity returns the public projection of u.
func (u *User) Identity() UserIdentity {
	return UserIdentity{ID: u.ID, Username: u.Username}
}
