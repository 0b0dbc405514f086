package model

import "time"

type PlanStop struct {
	PlaceID      string `json:"place_id"`
	PlaceName    string `json:"place_name,omitempty"`
	Note         string `json:"note,omitempty"`
	ExpectedTime string `json:"expected_time,omitempty"`
	Order        int    `json:"order"`
}

type Plan struct {
	ID          string     `json:"id"`
	CoupleID    string     `json:"couple_id"`
	Title       string     `json:"title"`
	Date        *time.Time `json:"date,omitempty"`
	EmotionGoal string     `json:"emotion_goal,omitempty"`
	BudgetRange string     `json:"budget_range,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Stops       []PlanStop `json:"stops"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"-"`
}
