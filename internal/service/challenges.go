package service

import (
	"context"
	"time"

	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
)

// Статические челленджи: критерий по тегу или эмоции визитов.
type challengeDef struct {
	ID          string
	Title       string
	Description string
	BadgeIcon   string
	Tag         string
	Emotion     string
	Goal        int
}

var challengeDefinitions = []challengeDef{
	{
		ID:          "night_explorer",
		Title:       "밤의 탐험가",
		Description: "야경 태그 장소 3곳 방문",
		BadgeIcon:   "🌃",
		Tag:         "야경",
		Goal:        3,
	},
	{
		ID:          "coffee_holic",
		Title:       "카페 매니아",
		Description: "카페 태그 장소 5곳 방문",
		BadgeIcon:   "☕",
		Tag:         "카페",
		Goal:        5,
	},
	{
		ID:          "healing_master",
		Title:       "힐링 마스터",
		Description: "감정 '힐링' 리뷰 4회 이상",
		BadgeIcon:   "🌿",
		Emotion:     "힐링",
		Goal:        4,
	},
}

// ChallengeService считает прогресс челленджей по всем визитам пары.
type ChallengeService struct {
	visits *repository.VisitRepository
}

func NewChallengeService(visits *repository.VisitRepository) *ChallengeService {
	return &ChallengeService{visits: visits}
}

func (s *ChallengeService) Progress(ctx context.Context, coupleID string) ([]model.ChallengeProgress, error) {
	visits, err := s.visits.ListByCouple(ctx, coupleID, "", 0)
	if err != nil {
		return nil, err
	}
	tagCount := map[string]int{}
	emotionCount := map[string]int{}
	for _, v := range visits {
		for _, tag := range v.Tags {
			tagCount[tag]++
		}
		if v.Emotion != "" {
			emotionCount[v.Emotion]++
		}
	}

	out := make([]model.ChallengeProgress, 0, len(challengeDefinitions))
	for _, def := range challengeDefinitions {
		current := 0
		if def.Tag != "" {
			current = tagCount[def.Tag]
		} else {
			current = emotionCount[def.Emotion]
		}
		done := current >= def.Goal
		p := model.ChallengeProgress{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			BadgeIcon:   def.BadgeIcon,
			Current:     current,
			Goal:        def.Goal,
			Completed:   done,
		}
		if done {
			p.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		}
		out = append(out, p)
	}
	return out, nil
}
