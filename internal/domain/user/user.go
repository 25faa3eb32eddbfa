package user

import "errors"

type User struct {
	Username        string  `json:"username"`
	PasswordHash    string  `json:"-"` // never expose the digest in JSON
	Salt            string  `json:"-"`
	SettingLocation string  `json:"settingLocation"`
	SettingSite     string  `json:"settingSite"`
	Balance         float64 `json:"balance"`
}

var ErrNotFound = errors.New("user not found")

// error if somebody already claimed the username
var ErrDuplicate = errors.New("username already taken")

var ErrInvalidCredentials = errors.New("invalid credentials")

// error for empty username/password, checked before any hashing happens
var ErrInvalidInput = errors.New("username and password must not be empty")

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=1,max=80"`
	Password string `json:"password" binding:"required,min=1"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateSettingsRequest struct {
	Location string `json:"location" binding:"required,max=80"`
	Site     string `json:"site" binding:"required,max=80"`
}

// A factory to build a fresh User from registration data.
// New accounts start with no preferences and a zero balance.

func NewFromRegistration(username, passwordHash, salt string) User {
	return User{
		Username:        username,
		PasswordHash:    passwordHash,
		Salt:            salt,
		SettingLocation: "none",
		SettingSite:     "none",
		Balance:         0,
	}
}
