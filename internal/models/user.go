package models

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	UID          string    `json:"uid" dynamodbav:"uid"`
	Username     string    `json:"username" dynamodbav:"username"`
	Email        string    `json:"email" dynamodbav:"email"`
	FirstName    string    `json:"first_name" dynamodbav:"first_name"`
	LastName     string    `json:"last_name" dynamodbav:"last_name"`
	Role         Role      `json:"role" dynamodbav:"role"`
	IsVerified   bool      `json:"is_verified" dynamodbav:"is_verified"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

func (u *User) GetPK() string {
	return "USER!" + u.Email
}

func (u *User) GetSK() string {
	return "METADATA"
}

// Principal returns the claims embedded into tokens issued for u.
func (u *User) Principal() Principal {
	return Principal{
		Email:  u.Email,
		UserID: u.UID,
		Role:   u.Role,
	}
}
