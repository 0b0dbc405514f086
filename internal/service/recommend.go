package service

import (
	"context"
	"math/rand"
	"sort"
	"strings"

	"github.com/lovenav/internal/geocode"
	"github.com/lovenav/internal/llm"
	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
	"github.com/lovenav/internal/weather"
)

// BudgetRange — диапазон бюджета на человека (воны).
type BudgetRange struct {
	Key   string `json:"key"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Label string `json:"label"`
}

var budgetRanges = []BudgetRange{
	{Key: "free", Min: 0, Max: 0, Label: "무료"},
	{Key: "low", Min: 0, Max: 30000, Label: "3만원 이하"},
	{Key: "medium", Min: 30000, Max: 80000, Label: "3~8만원"},
	{Key: "high", Min: 80000, Max: 150000, Label: "8~15만원"},
	{Key: "premium", Min: 150000, Max: 999999, Label: "15만원 이상"},
}

func budgetRangeByKey(key string) (BudgetRange, bool) {
	for _, b := range budgetRanges {
		if b.Key == key {
			return b, true
		}
	}
	return BudgetRange{}, false
}

// BudgetLabel — корейская подпись диапазона.
func BudgetLabel(key string) string {
	if b, ok := budgetRangeByKey(key); ok {
		return b.Label
	}
	return "알 수 없음"
}

// BudgetRanges — список диапазонов для фронта.
func BudgetRanges() []BudgetRange {
	return budgetRanges
}

// preferenceTags: ключ предпочтения -> корейские ключевые слова для матчинга.
var preferenceTags = map[string][]string{
	"romantic":    {"낭만적인", "로맨틱", "감성", "분위기"},
	"energetic":   {"활동적인", "액티비티", "스포츠", "체험"},
	"relaxing":    {"편안한", "힐링", "조용한", "여유"},
	"adventurous": {"모험적인", "새로운", "특별한", "독특한"},
	"cultural":    {"문화적인", "예술", "전시", "공연"},
	"food":        {"맛집", "카페", "디저트", "레스토랑", "음식"},
	"nature":      {"자연", "공원", "산", "바다", "숲"},
	"indoor":      {"실내", "쇼핑", "전시", "영화"},
	"outdoor":     {"야외", "산책", "피크닉", "캠핑"},
	"creative":    {"체험", "공방", "만들기", "창작"},
	"quiet":       {"조용한", "한적한", "프라이빗"},
	"lively":      {"활기찬", "북적이는", "번화가"},
	"trendy":      {"트렌디", "핫플", "인스타", "유명한"},
	"classic":     {"전통적인", "클래식", "고급스러운"},
}

// PreferenceTagKeys — ключи предпочтений для фронта.
func PreferenceTagKeys() []string {
	keys := make([]string, 0, len(preferenceTags))
	for k := range preferenceTags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Оценка среднего чека по категории места.
var categoryBudgets = map[string]int{
	"cafe":        15000,
	"restaurant":  40000,
	"fine_dining": 120000,
	"park":        0,
	"museum":      10000,
	"movie":       30000,
	"spa":         50000,
	"activity":    60000,
	"shopping":    80000,
	"bar":         50000,
	"rooftop":     70000,
	"exhibition":  20000,
	"performance": 80000,
}

// estimateCost оценивает стоимость места по категории; неизвестная
// категория считается средней.
func estimateCost(p model.Place) int {
	if cost, ok := categoryBudgets[strings.ToLower(p.Category)]; ok {
		return cost
	}
	return 30000
}

// matchPreferenceScore — совпадение места с предпочтениями, 0..1.
// Тег весит больше имени, имя больше категории.
func matchPreferenceScore(p model.Place, prefs []string) float64 {
	if len(prefs) == 0 {
		return 0.5
	}
	lowerTags := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		lowerTags[i] = strings.ToLower(t)
	}
	name := strings.ToLower(p.Name)
	category := strings.ToLower(p.Category)

	score := 0.0
	for _, pref := range prefs {
		keywords, ok := preferenceTags[pref]
		if !ok {
			keywords = []string{pref}
		}
		for _, kw := range keywords {
			kw = strings.ToLower(kw)
			matched := false
			for _, tag := range lowerTags {
				if tag == kw {
					score += 1.0
					matched = true
					break
				}
			}
			if matched {
				break
			}
			if strings.Contains(name, kw) {
				score += 0.8
				break
			}
			if category != "" && strings.Contains(category, kw) {
				score += 0.6
				break
			}
		}
	}
	s := score / float64(len(prefs))
	if s > 1.0 {
		return 1.0
	}
	return s
}

// filterByBudget отбирает места, укладывающиеся в диапазон.
// Неизвестный ключ диапазона пропускает всё.
func filterByBudget(places []model.Place, budgetKey string) []model.Place {
	b, ok := budgetRangeByKey(budgetKey)
	if !ok {
		return places
	}
	out := make([]model.Place, 0, len(places))
	for _, p := range places {
		cost := estimateCost(p)
		if b.Min <= cost && cost <= b.Max {
			out = append(out, p)
		} else if budgetKey == "premium" {
			// premium не отсекает дешёвые места.
			out = append(out, p)
		}
	}
	return out
}

// weatherScore — пригодность места под погоду: 1.0 рекомендован,
// 0.1 в списке avoid, 0.5 нейтрально.
func weatherScore(p model.Place, sugg weather.Suggestions) float64 {
	category := strings.ToLower(p.Category)
	joined := category + " " + strings.ToLower(strings.Join(p.Tags, " "))
	for _, avoid := range sugg.Avoid {
		if strings.Contains(joined, strings.ToLower(avoid)) {
			return 0.1
		}
	}
	for _, wt := range sugg.PlaceTypes {
		if strings.Contains(joined, strings.ToLower(wt)) {
			return 1.0
		}
	}
	return 0.5
}

// rankPlaces ранжирует места взвешенной суммой: 0.4 предпочтения,
// 0.35 погода, 0.25 бюджет, плюс джиттер до 0.05 для разнообразия выдачи.
func rankPlaces(places []model.Place, prefs []string, condition, budgetKey string) []model.ScoredPlace {
	sugg := weather.SuggestionsFor(condition)
	b, ok := budgetRangeByKey(budgetKey)
	if !ok {
		b, _ = budgetRangeByKey("medium")
	}

	scored := make([]model.ScoredPlace, 0, len(places))
	for _, p := range places {
		cost := estimateCost(p)
		budgetScore := 1.0
		if cost > b.Max && b.Max > 0 {
			budgetScore = 1.0 - float64(cost-b.Max)/float64(b.Max)
			if budgetScore < 0.3 {
				budgetScore = 0.3
			}
		}
		final := matchPreferenceScore(p, prefs)*0.4 +
			weatherScore(p, sugg)*0.35 +
			budgetScore*0.25 +
			rand.Float64()*0.05
		scored = append(scored, model.ScoredPlace{
			Place:               p,
			RecommendationScore: float64(int(final*1000)) / 1000,
			EstimatedCost:       cost,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RecommendationScore > scored[j].RecommendationScore
	})
	return scored
}

// fallbackPlaces — образцы на случай пустого пула.
func fallbackPlaces() []model.Place {
	r1, r2 := 4.6, 4.8
	return []model.Place{
		{
			ID:          "sample-1",
			Name:        "한강 공원 야경 피크닉",
			Description: "야경이 아름다운 한강 공원에서 돗자리 데이트",
			Coordinates: model.Coordinates{Latitude: 37.528, Longitude: 126.932},
			Tags:        []string{"야경", "피크닉", "야외"},
			Rating:      &r1,
			Source:      "sample",
		},
		{
			ID:          "sample-2",
			Name:        "조용한 북카페 힐링",
			Description: "내향 커플을 위한 아늑한 북카페",
			Coordinates: model.Coordinates{Latitude: 37.560, Longitude: 126.975},
			Tags:        []string{"카페", "실내", "힐링"},
			Rating:      &r2,
			Source:      "sample",
		},
	}
}

// WeatherProvider и ItineraryGenerator абстрагируют внешние API для тестов.
type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) *weather.Info
}

type ItineraryGenerator interface {
	GenerateItinerary(ctx context.Context, req llm.ItineraryRequest) ([]llm.CourseSuggestion, error)
}

type GeoResolver interface {
	Resolve(ctx context.Context, locationDesc string, fallbackLat, fallbackLon float64) (float64, float64)
}

type RecommendRequest struct {
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	Preferences  []string `json:"preferences"`
	BudgetRange  string   `json:"budget_range"`
	Emotion      string   `json:"emotion"`
	LocationDesc string   `json:"location_desc"`
}

type RecommendResponse struct {
	Weather            *weather.Info          `json:"weather"`
	WeatherSuggestions weather.Suggestions    `json:"weather_suggestions"`
	BudgetInfo         BudgetInfo             `json:"budget_info"`
	RecommendedPlaces  []model.ScoredPlace    `json:"recommended_places"`
	AICourseSuggestion []llm.CourseSuggestion `json:"ai_course_suggestions"`
	Summary            RecommendSummary       `json:"summary"`
}

type BudgetInfo struct {
	Range       string `json:"range"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type RecommendSummary struct {
	TotalPlacesFound   int `json:"total_places_found"`
	AfterFiltering     int `json:"after_filtering"`
	TopRecommendations int `json:"top_recommendations"`
}

// RecommendService — подбор мест под предпочтения, бюджет и погоду
// с AI-курсами поверх.
type RecommendService struct {
	places  *repository.PlaceRepository
	weather WeatherProvider
	geo     GeoResolver
	llm     ItineraryGenerator
}

func NewRecommendService(places *repository.PlaceRepository, w WeatherProvider, geo GeoResolver, gen ItineraryGenerator) *RecommendService {
	return &RecommendService{places: places, weather: w, geo: geo, llm: gen}
}

const (
	nearbyRadiusM = 5000
	nearbyLimit   = 50
	topCount      = 10
)

func (s *RecommendService) Recommend(ctx context.Context, req RecommendRequest) (*RecommendResponse, error) {
	lat, lon := req.Lat, req.Lon
	if lat == 0 && lon == 0 {
		lat, lon = geocode.DefaultLat, geocode.DefaultLon
	}
	if req.LocationDesc != "" {
		lat, lon = s.geo.Resolve(ctx, req.LocationDesc, lat, lon)
	}
	if req.BudgetRange == "" {
		req.BudgetRange = "medium"
	}

	info := s.weather.Current(ctx, lat, lon)
	sugg := weather.SuggestionsFor(info.Condition)

	nearby, err := s.places.Nearby(ctx, lat, lon, nearbyRadiusM, nearbyLimit, nil)
	if err != nil {
		logger.Errorf("recommend: nearby places: %v", err)
	}
	if len(nearby) == 0 {
		nearby = fallbackPlaces()
	}

	filtered := filterByBudget(nearby, req.BudgetRange)
	ranked := rankPlaces(filtered, req.Preferences, info.Condition, req.BudgetRange)
	if len(ranked) > topCount {
		ranked = ranked[:topCount]
	}

	suggestions := s.courseSuggestions(ctx, req, info, sugg, ranked)

	return &RecommendResponse{
		Weather:            info,
		WeatherSuggestions: sugg,
		BudgetInfo: BudgetInfo{
			Range:       req.BudgetRange,
			Label:       BudgetLabel(req.BudgetRange),
			Description: "1인 기준 " + BudgetLabel(req.BudgetRange) + " 내 장소를 추천합니다",
		},
		RecommendedPlaces:  ranked,
		AICourseSuggestion: suggestions,
		Summary: RecommendSummary{
			TotalPlacesFound:   len(nearby),
			AfterFiltering:     len(filtered),
			TopRecommendations: len(ranked),
		},
	}, nil
}

func (s *RecommendService) courseSuggestions(ctx context.Context, req RecommendRequest, info *weather.Info, sugg weather.Suggestions, top []model.ScoredPlace) []llm.CourseSuggestion {
	names := make([]string, 0, 5)
	for i, p := range top {
		if i == 5 {
			break
		}
		names = append(names, p.Name)
	}
	emotion := req.Emotion
	if emotion == "" {
		emotion = "평온한"
	}
	prefs := strings.Join(req.Preferences, ", ")
	if prefs == "" {
		prefs = "다양한 경험"
	}
	location := req.LocationDesc
	if location == "" {
		location = "현재 위치"
	}

	items, err := s.llm.GenerateItinerary(ctx, llm.ItineraryRequest{
		Emotion:           emotion,
		Preferences:       prefs,
		Location:          location,
		Weather:           info.Description,
		Budget:            BudgetLabel(req.BudgetRange),
		AdditionalContext: "추천 장소: " + strings.Join(names, ", "),
	})
	if err != nil {
		logger.Errorf("recommend: llm suggestions: %v", err)
		n := len(names)
		if n > 3 {
			n = 3
		}
		return []llm.CourseSuggestion{{
			Title:           "주변 추천 코스",
			Description:     "선택하신 조건에 맞는 장소들을 찾았습니다.",
			SuggestedPlaces: names[:n],
			Tips:            sugg.Tips,
		}}
	}
	return items
}

type MapSuggestionRequest struct {
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	Emotion           string   `json:"emotion"`
	Preferences       []string `json:"preferences"`
	LocationText      string   `json:"location_text"`
	AdditionalContext string   `json:"additional_context,omitempty"`
	Budget            string   `json:"budget,omitempty"`
}

type MapSuggestionResponse struct {
	Summary        string                 `json:"summary"`
	Places         []model.Place          `json:"places"`
	LLMSuggestions []llm.CourseSuggestion `json:"llm_suggestions"`
}

// MapSuggestions — подборка мест по тегам вокруг точки + AI-курс для карты.
func (s *RecommendService) MapSuggestions(ctx context.Context, req MapSuggestionRequest) (*MapSuggestionResponse, error) {
	places, err := s.places.Nearby(ctx, req.Latitude, req.Longitude, nearbyRadiusM, 6, req.Preferences)
	if err != nil {
		logger.Errorf("map suggestions: nearby: %v", err)
	}
	if len(places) == 0 {
		places = fallbackPlaces()
	}

	prefs := strings.Join(req.Preferences, ", ")
	if prefs == "" {
		prefs = "없음"
	}
	budget := req.Budget
	if budget == "" {
		budget = "정보 없음"
	}
	suggestions, err := s.llm.GenerateItinerary(ctx, llm.ItineraryRequest{
		Emotion:           req.Emotion,
		Preferences:       prefs,
		Location:          req.LocationText,
		Budget:            budget,
		AdditionalContext: req.AdditionalContext,
	})
	if err != nil {
		logger.Errorf("map suggestions: llm: %v", err)
		suggestions = []llm.CourseSuggestion{}
	}

	return &MapSuggestionResponse{
		Summary:        req.Emotion + " 상태에 맞춘 맞춤 추천을 구성했습니다.",
		Places:         places,
		LLMSuggestions: suggestions,
	}, nil
}

// CurrentWeather — погода + подсказки для GET /recommendations/weather.
func (s *RecommendService) CurrentWeather(ctx context.Context, lat, lon float64) (*weather.Info, weather.Suggestions) {
	info := s.weather.Current(ctx, lat, lon)
	return info, weather.SuggestionsFor(info.Condition)
}
