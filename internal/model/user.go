package model

import "time"

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Nickname      string    `json:"nickname"`
	Preferences   []string  `json:"preferences"`
	EmailVerified bool      `json:"email_verified"`
	CoupleID      string    `json:"couple_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"-"`
}

type UserPublic struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Nickname      string    `json:"nickname"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	Preferences   []string  `json:"preferences"`
	CoupleID      string    `json:"couple_id,omitempty"`
}

func (u *User) ToPublic() UserPublic {
	prefs := u.Preferences
	if prefs == nil {
		prefs = []string{}
	}
	return UserPublic{
		ID:            u.ID,
		Email:         u.Email,
		Nickname:      u.Nickname,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		Preferences:   prefs,
		CoupleID:      u.CoupleID,
	}
}
