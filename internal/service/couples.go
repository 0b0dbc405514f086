package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
)

// ErrInviteNotFound — инвайт-код не существует.
var ErrInviteNotFound = errors.New("invite code not found")

const inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const inviteCodeLen = 6

// Тиры пары по числу бейджей.
type tierInfo struct {
	tier int
	name string
}

func tierFor(badgeCount int) tierInfo {
	switch {
	case badgeCount >= 5:
		return tierInfo{4, "전설의 커플"}
	case badgeCount >= 3:
		return tierInfo{3, "불꽃 커플"}
	case badgeCount >= 1:
		return tierInfo{2, "단짝 커플"}
	default:
		return tierInfo{1, "새싹 커플"}
	}
}

func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLen)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		buf[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// CoupleService — пары: создание, инвайты, предпочтения.
type CoupleService struct {
	couples *repository.CoupleRepository
	users   *repository.UserRepository
}

func NewCoupleService(couples *repository.CoupleRepository, users *repository.UserRepository) *CoupleService {
	return &CoupleService{couples: couples, users: users}
}

// GetOrCreate возвращает пару пользователя; если пары нет, создаёт новую
// с этим пользователем и свежим инвайт-кодом.
func (s *CoupleService) GetOrCreate(ctx context.Context, userID string) (*model.Couple, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.CoupleID != "" {
		c, err := s.couples.GetByID(ctx, u.CoupleID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// Висячая ссылка на удалённую пару: пересоздаём.
	}
	code, err := generateInviteCode()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &model.Couple{
		InviteCode: code,
		MemberIDs:  []string{userID},
		Preferences: model.CouplePreferences{
			Tags:         []string{},
			EmotionGoals: []string{},
			Budget:       "medium",
		},
		Badges:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.couples.Create(ctx, c); err != nil {
		return nil, err
	}
	if err := s.users.SetCouple(ctx, userID, c.ID); err != nil {
		return nil, err
	}
	logger.Infof("couple created: %s for user %s", c.ID, userID)
	return c, nil
}

// RegenerateInvite выпускает новый инвайт-код для пары пользователя.
func (s *CoupleService) RegenerateInvite(ctx context.Context, userID string) (string, error) {
	c, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return "", err
	}
	code, err := generateInviteCode()
	if err != nil {
		return "", err
	}
	if err := s.couples.UpdateInviteCode(ctx, c.ID, code); err != nil {
		return "", err
	}
	return code, nil
}

// JoinByCode присоединяет пользователя к паре по инвайт-коду.
// Повторный join своей же пары идемпотентен.
func (s *CoupleService) JoinByCode(ctx context.Context, userID, code string) (*model.Couple, error) {
	c, err := s.couples.GetByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	for _, m := range c.MemberIDs {
		if m == userID {
			return c, nil
		}
	}
	if err := s.couples.AddMember(ctx, c.ID, userID); err != nil {
		return nil, err
	}
	if err := s.users.SetCouple(ctx, userID, c.ID); err != nil {
		return nil, err
	}
	logger.Infof("user %s joined couple %s", userID, c.ID)
	return s.couples.GetByID(ctx, c.ID)
}

func (s *CoupleService) UpdatePreferences(ctx context.Context, userID string, prefs model.CouplePreferences) (*model.Couple, error) {
	c, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs.Tags == nil {
		prefs.Tags = []string{}
	}
	if prefs.EmotionGoals == nil {
		prefs.EmotionGoals = []string{}
	}
	if prefs.Budget == "" {
		prefs.Budget = c.Preferences.Budget
	}
	if err := s.couples.UpdatePreferences(ctx, c.ID, prefs); err != nil {
		return nil, err
	}
	return s.couples.GetByID(ctx, c.ID)
}

// Summarize собирает CoupleSummary: участники, тир по числу бейджей.
func (s *CoupleService) Summarize(ctx context.Context, c *model.Couple) (*model.CoupleSummary, error) {
	users, err := s.users.GetByIDs(ctx, c.MemberIDs)
	if err != nil {
		return nil, err
	}
	members := make([]model.UserPublic, 0, len(users))
	for i := range users {
		members = append(members, users[i].ToPublic())
	}
	t := tierFor(len(c.Badges))
	return &model.CoupleSummary{
		ID:          c.ID,
		InviteCode:  c.InviteCode,
		Members:     members,
		Preferences: c.Preferences,
		Points:      c.Points,
		Badges:      c.Badges,
		Tier:        t.tier,
		TierName:    t.name,
		BadgeCount:  len(c.Badges),
	}, nil
}
