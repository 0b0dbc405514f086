// Package llm — клиент Gemini generateContent для генерации маршрутов
// и текстов месячных отчётов.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/model"
)

var (
	// ErrNotConfigured — API-ключ не задан; вызывающий код подставляет фолбэк.
	ErrNotConfigured = errors.New("llm: api key not configured")
	// ErrBadResponse — модель вернула невалидный или пустой ответ.
	ErrBadResponse = errors.New("llm: bad model response")
)

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// CourseSuggestion — одно предложение курса свидания от модели.
type CourseSuggestion struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	SuggestedPlaces    []string `json:"suggested_places"`
	Tips               []string `json:"tips"`
	EstimatedTotalCost int      `json:"estimated_total_cost"`
}

// ItineraryRequest — контекст для генерации курса.
type ItineraryRequest struct {
	Emotion           string
	Preferences       string
	Location          string
	Weather           string
	Budget            string
	AdditionalContext string
}

// ReportPayload — агрегаты месяца для текстового отчёта.
type ReportPayload struct {
	Month             string
	VisitCount        int
	TopTags           []string
	EmotionStats      map[string]int
	ChallengeProgress []model.ChallengeProgress
	PreferenceTags    []string
	EmotionGoals      []string
	PlanEmotionGoals  []string
	Notes             string
}

type Client struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
}

func New(apiKey, modelName string) *Client {
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &Client{
		apiKey:   apiKey,
		model:    modelName,
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// REST-формат generateContent.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Errorf("llm: gemini status %d: %.200s", resp.StatusCode, raw)
		return "", fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}
	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	var sb strings.Builder
	for _, cand := range parsed.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrBadResponse
	}
	return sb.String(), nil
}

// stripCodeFence убирает markdown-обёртку вокруг JSON-ответа модели.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func itineraryPrompt(req ItineraryRequest) string {
	return fmt.Sprintf(`당신은 연인을 위한 프리미엄 데이트 플래너입니다. 아래 정보를 참고하여 한국어로 세 가지 제안을 만듭니다.
- 감정 상태: %s
- 선호 태그: %s
- 지역 설명: %s
- 날씨: %s
- 예산: %s
- 추가 정보: %s

각 제안은 JSON 객체로 작성하세요. 형식은 아래와 같습니다.
[
  {
    "title": "20자 이내 제목",
    "description": "두 문장 요약",
    "suggested_places": ["장소명 - 추천 이유", "...", "..."],
    "tips": ["팁1", "팁2"]
  }
]
반드시 JSON 배열만 출력하세요.`,
		req.Emotion, req.Preferences, req.Location, req.Weather, req.Budget, req.AdditionalContext)
}

// GenerateItinerary запрашивает у модели три варианта курса свидания.
func (c *Client) GenerateItinerary(ctx context.Context, req ItineraryRequest) ([]CourseSuggestion, error) {
	raw, err := c.generate(ctx, itineraryPrompt(req))
	if err != nil {
		return nil, err
	}
	var items []CourseSuggestion
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &items); err != nil {
		return nil, fmt.Errorf("%w: parse itinerary: %v", ErrBadResponse, err)
	}
	for i := range items {
		if len(items[i].Title) > 120 {
			items[i].Title = items[i].Title[:120]
		}
		if items[i].SuggestedPlaces == nil {
			items[i].SuggestedPlaces = []string{}
		}
		if items[i].Tips == nil {
			items[i].Tips = []string{}
		}
	}
	return items, nil
}

func reportPrompt(p ReportPayload) string {
	challengeLines := make([]string, 0, len(p.ChallengeProgress))
	for _, ch := range p.ChallengeProgress {
		status := fmt.Sprintf("진행 중 (%d/%d)", ch.Current, ch.Goal)
		if ch.Completed {
			status = "완료"
		}
		challengeLines = append(challengeLines, ch.Title+": "+status)
	}
	challengeText := "챌린지 없음"
	if len(challengeLines) > 0 {
		challengeText = strings.Join(challengeLines, "; ")
	}

	var prefSection strings.Builder
	if len(p.PreferenceTags) > 0 || len(p.EmotionGoals) > 0 || len(p.PlanEmotionGoals) > 0 {
		prefSection.WriteString("\n\n[커플 사전 정보 - 이 정보는 커플이 등록한 선호 설정으로, 리포트 작성 시 반드시 참고해야 합니다]\n")
		if len(p.PreferenceTags) > 0 {
			prefSection.WriteString("- 커플이 좋아하는 태그: " + strings.Join(p.PreferenceTags, ", ") + "\n")
		}
		if len(p.EmotionGoals) > 0 {
			prefSection.WriteString("- 커플이 원하는 감정 목표: " + strings.Join(p.EmotionGoals, ", ") + "\n")
		}
		if len(p.PlanEmotionGoals) > 0 {
			prefSection.WriteString("- 플래너에서 설정한 감정 목표: " + strings.Join(p.PlanEmotionGoals, ", ") + "\n")
		}
	}

	emotionStats, _ := json.Marshal(p.EmotionStats)
	return fmt.Sprintf(`당신은 귀여운 어린이 커플 매니저입니다. 아래 데이터를 보고 4~5문장으로 한국어 리포트를 작성하세요.

[이번 달 통계 데이터]
- 월: %s
- 방문 횟수: %d
- 즐겨 찾은 태그 Top3: %s
- 감정 분포: %s
- 챌린지 진행도: %s
- 추가 메모: %s%s

지켜야 할 규칙:
1. 유치원생이 들려주는 듯한 상냥하고 해맑은 톤을 유지하고, 이모지나 의성어를 1~2개 섞어도 좋습니다.
2. [커플 사전 정보] 섹션의 모든 정보(선호 태그, 감정 목표)를 선택적으로 언급하고, 실제 통계 데이터와 비교하여 자연스럽게 녹여 주세요.
3. 커플 사전 정보가 없더라도 통계 데이터를 바탕으로 리포트를 작성하세요.
4. 어려운 전문 용어는 쓰지 말고, 마지막 문장은 두 사람이 다음 데이트를 응원하는 짧은 감탄사로 마무리하세요.
5. 중요한 단어나 구절은 **텍스트** 형식으로 강조해주세요 (예: **카페**, **식당**).`,
		p.Month, p.VisitCount, strings.Join(p.TopTags, ", "), emotionStats, challengeText, p.Notes, prefSection.String())
}

// GenerateReportSummary генерирует текст месячного отчёта.
func (c *Client) GenerateReportSummary(ctx context.Context, p ReportPayload) (string, error) {
	raw, err := c.generate(ctx, reportPrompt(p))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}
