package model

import "time"

// Report — месячный отчёт пары: агрегаты по визитам + (опционально) LLM-резюме.
type Report struct {
	Month             string              `json:"month"`
	VisitCount        int                 `json:"visit_count"`
	TopTags           []string            `json:"top_tags"`
	EmotionStats      map[string]int      `json:"emotion_stats"`
	ChallengeProgress []ChallengeProgress `json:"challenge_progress"`
	PreferredTags     []string            `json:"preferred_tags"`
	PreferredEmotions []string            `json:"preferred_emotion_goals"`
	PlanEmotionGoals  []string            `json:"plan_emotion_goals"`
	Summary           string              `json:"summary"`
}

// SavedReport — отчёт, сохранённый в Mongo по запросу пользователя.
type SavedReport struct {
	ID        string    `json:"id"`
	CoupleID  string    `json:"couple_id"`
	Name      string    `json:"name"`
	Report
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
