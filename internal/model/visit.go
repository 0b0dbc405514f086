package model

import "time"

// Visit — чекин пары. ReviewCompleted выставляется сервером: подтверждённая локация
// + оценка + непустое ревью; только такой визит даёт награду за челлендж-место.
type Visit struct {
	ID               string   `json:"id"`
	CoupleID         string   `json:"couple_id"`
	UserID           string   `json:"user_id"`
	PlanID           string   `json:"plan_id,omitempty"`
	PlaceID          string   `json:"place_id"`
	PlaceName        string   `json:"place_name,omitempty"`
	VisitedAt        string   `json:"visited_at"`
	Emotion          string   `json:"emotion,omitempty"`
	Tags             []string `json:"tags"`
	Memo             string   `json:"memo,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	ChallengePlaceID string   `json:"challenge_place_id,omitempty"`
	LocationVerified bool     `json:"location_verified"`
	ReviewCompleted  bool     `json:"review_completed"`
	CreatedAt        time.Time `json:"created_at"`
}
