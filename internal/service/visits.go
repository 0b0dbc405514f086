package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
)

// ErrChallengeNeedsLocation — чекин челлендж-места без подтверждённой геолокации.
var ErrChallengeNeedsLocation = errors.New("challenge place requires location verification")

type VisitInput struct {
	PlanID           string   `json:"plan_id,omitempty"`
	PlaceID          string   `json:"place_id"`
	PlaceName        string   `json:"place_name,omitempty"`
	VisitedAt        string   `json:"visited_at,omitempty"`
	Emotion          string   `json:"emotion,omitempty"`
	Tags             []string `json:"tags"`
	Memo             string   `json:"memo,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	ChallengePlaceID string   `json:"challenge_place_id,omitempty"`
	LocationVerified bool     `json:"location_verified"`
}

// RewardResult — что пара получила за чекин челлендж-места.
type RewardResult struct {
	PointsGranted int    `json:"points_granted"`
	BadgeGranted  string `json:"badge_granted,omitempty"`
}

// VisitService — чекины и выдача наград за челлендж-места.
type VisitService struct {
	visits     *repository.VisitRepository
	couples    *repository.CoupleRepository
	challenges *repository.ChallengeRepository
}

func NewVisitService(visits *repository.VisitRepository, couples *repository.CoupleRepository, challenges *repository.ChallengeRepository) *VisitService {
	return &VisitService{visits: visits, couples: couples, challenges: challenges}
}

// reviewCompleted: ревью засчитано только при подтверждённой локации,
// выставленной оценке и непустом тексте.
func reviewCompleted(locationVerified bool, rating *float64, memo string) bool {
	return locationVerified && rating != nil && strings.TrimSpace(memo) != ""
}

// Add создаёт визит; если это завершённое ревью челлендж-места, сразу
// начисляет награду.
func (s *VisitService) Add(ctx context.Context, coupleID, userID string, in VisitInput) (*model.Visit, *RewardResult, error) {
	if in.ChallengePlaceID != "" && !in.LocationVerified {
		return nil, nil, ErrChallengeNeedsLocation
	}
	now := time.Now().UTC()
	visitedAt := in.VisitedAt
	if visitedAt == "" {
		visitedAt = now.Format(time.RFC3339)
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	v := &model.Visit{
		CoupleID:         coupleID,
		UserID:           userID,
		PlanID:           in.PlanID,
		PlaceID:          in.PlaceID,
		PlaceName:        in.PlaceName,
		VisitedAt:        visitedAt,
		Emotion:          in.Emotion,
		Tags:             tags,
		Memo:             in.Memo,
		Rating:           in.Rating,
		ChallengePlaceID: in.ChallengePlaceID,
		LocationVerified: in.LocationVerified,
		ReviewCompleted:  reviewCompleted(in.LocationVerified, in.Rating, in.Memo),
		CreatedAt:        now,
	}
	if err := s.visits.Create(ctx, v); err != nil {
		return nil, nil, err
	}

	var reward *RewardResult
	if v.ReviewCompleted && v.ChallengePlaceID != "" {
		reward = s.grantReward(ctx, coupleID, v.ChallengePlaceID)
	}
	return v, reward, nil
}

// grantReward начисляет очки и бейдж за челлендж-место. Идемпотентность
// обеспечивает GrantBadge: бейдж и очки выдаются паре один раз.
// Сбой награды не валит чекин, визит уже записан.
func (s *VisitService) grantReward(ctx context.Context, coupleID, challengePlaceID string) *RewardResult {
	place, err := s.challenges.GetPlace(ctx, challengePlaceID)
	if err != nil {
		logger.Errorf("reward: challenge place %s: %v", challengePlaceID, err)
		return nil
	}
	if !place.Active || place.BadgeReward == "" {
		return nil
	}
	granted, err := s.couples.GrantBadge(ctx, coupleID, place.BadgeReward, place.PointsReward)
	if err != nil {
		logger.Errorf("reward: grant badge to couple %s: %v", coupleID, err)
		return nil
	}
	if !granted {
		return nil
	}
	logger.Infof("reward granted: couple=%s badge=%s points=%d", coupleID, place.BadgeReward, place.PointsReward)
	return &RewardResult{PointsGranted: place.PointsReward, BadgeGranted: place.BadgeReward}
}

func (s *VisitService) List(ctx context.Context, coupleID string, limit int) ([]model.Visit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.visits.ListByCouple(ctx, coupleID, "", limit)
}

// Update дополняет визит (оценка, ревью, эмоция) и пересчитывает
// review_completed; досданное ревью челлендж-места добирает награду.
func (s *VisitService) Update(ctx context.Context, coupleID, visitID string, in VisitInput) (*model.Visit, *RewardResult, error) {
	v, err := s.visits.GetByID(ctx, coupleID, visitID)
	if err != nil {
		return nil, nil, err
	}
	if in.Emotion != "" {
		v.Emotion = in.Emotion
	}
	if in.Tags != nil {
		v.Tags = in.Tags
	}
	if in.Memo != "" {
		v.Memo = in.Memo
	}
	if in.Rating != nil {
		v.Rating = in.Rating
	}
	if in.LocationVerified {
		v.LocationVerified = true
	}
	if in.VisitedAt != "" {
		v.VisitedAt = in.VisitedAt
	}
	wasCompleted := v.ReviewCompleted
	v.ReviewCompleted = reviewCompleted(v.LocationVerified, v.Rating, v.Memo)
	if err := s.visits.Update(ctx, v); err != nil {
		return nil, nil, err
	}
	var reward *RewardResult
	if !wasCompleted && v.ReviewCompleted && v.ChallengePlaceID != "" {
		reward = s.grantReward(ctx, coupleID, v.ChallengePlaceID)
	}
	return v, reward, nil
}

func (s *VisitService) Delete(ctx context.Context, coupleID, visitID string) error {
	return s.visits.Delete(ctx, coupleID, visitID)
}
