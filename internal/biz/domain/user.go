package domain

import "time"

// User represents a registered user in the directory
type User struct {
	UserID       string
	PhoneNumber  string
	Name         string
	PasswordHash string
	Avatar       string
	IsOnline     bool
	LastSeen     time.Time
	CreatedAt    time.Time
}

// UserProfile is the public projection of a user (value object)
type UserProfile struct {
	UserID      string    `json:"userId"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar"`
	IsOnline    bool      `json:"isOnline"`
	LastSeen    time.Time `json:"lastSeen"`
}

// Profile returns the public profile of the user
func (u *User) Profile() *UserProfile {
	return &UserProfile{
		UserID:      u.UserID,
		PhoneNumber: u.PhoneNumber,
		Name:        u.Name,
		Avatar:      u.Avatar,
		IsOnline:    u.IsOnline,
		LastSeen:    u.LastSeen,
	}
}

// DisplayName returns the name, or the user ID if no name is set
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.UserID
}
