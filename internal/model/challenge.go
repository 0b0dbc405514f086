package model

import "time"

// ChallengeProgress — прогресс по одному из статических челленджей (по тегу или эмоции).
type ChallengeProgress struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	BadgeIcon   string `json:"badge_icon"`
	Current     int    `json:"current"`
	Goal        int    `json:"goal"`
	Completed   bool   `json:"completed"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// ChallengePlace — специальное место с наградой (бейдж + очки) за подтверждённый визит.
type ChallengePlace struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Address      string    `json:"address"`
	CategoryID   string    `json:"category_id,omitempty"`
	Tags         []string  `json:"tags"`
	BadgeReward  string    `json:"badge_reward"`
	PointsReward int       `json:"points_reward"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChallengeCategory — категория челлендж-мест (софт-удаление через active=false).
type ChallengeCategory struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Color       string    `json:"color,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
