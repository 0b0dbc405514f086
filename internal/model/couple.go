package model

import "time"

// CouplePreferences — совместные предпочтения пары (теги, эмоциональные цели, бюджет).
type CouplePreferences struct {
	Tags         []string `json:"tags"`
	EmotionGoals []string `json:"emotion_goals"`
	Budget       string   `json:"budget"`
}

type Couple struct {
	ID          string            `json:"id"`
	InviteCode  string            `json:"invite_code"`
	MemberIDs   []string          `json:"-"`
	Preferences CouplePreferences `json:"preferences"`
	Points      int               `json:"points"`
	Badges      []string          `json:"badges"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"-"`
}

// CoupleSummary — ответ /couples/me с раскрытыми участниками и тиром.
type CoupleSummary struct {
	ID          string            `json:"id"`
	InviteCode  string            `json:"invite_code"`
	Members     []UserPublic      `json:"members"`
	Preferences CouplePreferences `json:"preferences"`
	Points      int               `json:"points"`
	Badges      []string          `json:"badges"`
	Tier        int               `json:"tier"`
	TierName    string            `json:"tier_name"`
	BadgeCount  int               `json:"badge_count"`
}
