package model

// Coordinates — широта/долгота (в Mongo хранится GeoJSON Point: [lon, lat]).
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Place struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
	Tags        []string    `json:"tags"`
	Category    string      `json:"category,omitempty"`
	Rating      *float64    `json:"rating,omitempty"`
	Source      string      `json:"source,omitempty"`
}

// ScoredPlace — место с итоговым баллом рекомендации и оценкой стоимости.
type ScoredPlace struct {
	Place
	RecommendationScore float64 `json:"recommendation_score"`
	EstimatedCost       int     `json:"estimated_cost"`
}
