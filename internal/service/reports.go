package service

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lovenav/internal/llm"
	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
)

// ErrBadMonth — месяц не в формате YYYY-MM.
var ErrBadMonth = errors.New("month must be YYYY-MM")

var monthRegexp = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ReportSummarizer — генерация текста отчёта (в тестах подменяется стабом).
type ReportSummarizer interface {
	GenerateReportSummary(ctx context.Context, p llm.ReportPayload) (string, error)
}

// ReportService — месячные отчёты: агрегация визитов + LLM-резюме + сохранение.
type ReportService struct {
	visits     *repository.VisitRepository
	plans      *repository.PlanRepository
	saved      *repository.ReportRepository
	couples    *CoupleService
	challenges *ChallengeService
	summarizer ReportSummarizer
}

func NewReportService(
	visits *repository.VisitRepository,
	plans *repository.PlanRepository,
	saved *repository.ReportRepository,
	couples *CoupleService,
	challenges *ChallengeService,
	summarizer ReportSummarizer,
) *ReportService {
	return &ReportService{
		visits:     visits,
		plans:      plans,
		saved:      saved,
		couples:    couples,
		challenges: challenges,
		summarizer: summarizer,
	}
}

// BuildMonthly агрегирует визиты месяца. withSummary=false пропускает
// LLM (быстрый путь для превью).
func (s *ReportService) BuildMonthly(ctx context.Context, couple *model.Couple, month string, withSummary bool) (*model.Report, error) {
	if !monthRegexp.MatchString(month) {
		return nil, ErrBadMonth
	}
	visits, err := s.visits.ListByCouple(ctx, couple.ID, month, 0)
	if err != nil {
		return nil, err
	}

	tagCount := map[string]int{}
	emotionStats := map[string]int{}
	var notes []string
	for _, v := range visits {
		for _, tag := range v.Tags {
			tagCount[tag]++
		}
		if v.Emotion != "" {
			emotionStats[v.Emotion]++
		}
		if v.Memo != "" && len(notes) < 5 {
			notes = append(notes, v.Memo)
		}
	}

	topTags := topN(tagCount, 3)
	progress, err := s.challenges.Progress(ctx, couple.ID)
	if err != nil {
		return nil, err
	}

	planGoals := s.planEmotionGoals(ctx, couple.ID)

	rep := &model.Report{
		Month:             month,
		VisitCount:        len(visits),
		TopTags:           topTags,
		EmotionStats:      emotionStats,
		ChallengeProgress: progress,
		PreferredTags:     couple.Preferences.Tags,
		PreferredEmotions: couple.Preferences.EmotionGoals,
		PlanEmotionGoals:  planGoals,
	}
	if withSummary {
		summary, err := s.summarizer.GenerateReportSummary(ctx, llm.ReportPayload{
			Month:             month,
			VisitCount:        rep.VisitCount,
			TopTags:           topTags,
			EmotionStats:      emotionStats,
			ChallengeProgress: progress,
			PreferenceTags:    couple.Preferences.Tags,
			EmotionGoals:      couple.Preferences.EmotionGoals,
			PlanEmotionGoals:  planGoals,
			Notes:             strings.Join(notes, "; "),
		})
		if err != nil {
			// Отказ внешнего API не отменяет отчёт; summary остаётся пустым.
			logger.Errorf("report summary for couple %s: %v", couple.ID, err)
		} else {
			rep.Summary = summary
		}
	}
	return rep, nil
}

func (s *ReportService) planEmotionGoals(ctx context.Context, coupleID string) []string {
	plans, err := s.plans.ListByCouple(ctx, coupleID)
	if err != nil {
		logger.Errorf("report: list plans: %v", err)
		return nil
	}
	seen := map[string]bool{}
	var goals []string
	for _, p := range plans {
		if p.EmotionGoal != "" && !seen[p.EmotionGoal] {
			seen[p.EmotionGoal] = true
			goals = append(goals, p.EmotionGoal)
		}
	}
	return goals
}

// topN — n самых частых ключей, при равенстве частот порядок детерминирован.
func topN(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Save сохраняет построенный отчёт под именем.
func (s *ReportService) Save(ctx context.Context, coupleID, name string, rep *model.Report) (*model.SavedReport, error) {
	if name == "" {
		name = rep.Month + " 리포트"
	}
	now := time.Now().UTC()
	sr := &model.SavedReport{
		CoupleID:  coupleID,
		Name:      name,
		Report:    *rep,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.saved.Create(ctx, sr); err != nil {
		return nil, err
	}
	return sr, nil
}

func (s *ReportService) ListSaved(ctx context.Context, coupleID string) ([]model.SavedReport, error) {
	return s.saved.ListByCouple(ctx, coupleID)
}

func (s *ReportService) GetSaved(ctx context.Context, coupleID, reportID string) (*model.SavedReport, error) {
	return s.saved.GetByID(ctx, coupleID, reportID)
}

func (s *ReportService) DeleteSaved(ctx context.Context, coupleID, reportID string) error {
	return s.saved.Delete(ctx, coupleID, reportID)
}
