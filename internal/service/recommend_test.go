package service

import (
	"testing"

	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/weather"
)

func TestMatchPreferenceScore(t *testing.T) {
	place := model.Place{
		Name:     "조용한 북카페 힐링",
		Tags:     []string{"카페", "실내", "힐링"},
		Category: "cafe",
	}

	// Пустые предпочтения нейтральны.
	if got := matchPreferenceScore(place, nil); got != 0.5 {
		t.Errorf("no prefs: score = %v, want 0.5", got)
	}

	// Тег "카페" входит в ключевые слова food: полный матч по тегу.
	if got := matchPreferenceScore(place, []string{"food"}); got != 1.0 {
		t.Errorf("food pref: score = %v, want 1.0", got)
	}

	// relaxing матчится по тегу 힐링.
	if got := matchPreferenceScore(place, []string{"relaxing"}); got != 1.0 {
		t.Errorf("relaxing pref: score = %v, want 1.0", got)
	}

	// Ни одно ключевое слово не совпадает.
	outdoorPlace := model.Place{Name: "어딘가", Tags: []string{"없는태그"}}
	if got := matchPreferenceScore(outdoorPlace, []string{"nature"}); got != 0.0 {
		t.Errorf("no match: score = %v, want 0.0", got)
	}
}

func TestEstimateCost(t *testing.T) {
	if got := estimateCost(model.Place{Category: "cafe"}); got != 15000 {
		t.Errorf("cafe cost = %d, want 15000", got)
	}
	if got := estimateCost(model.Place{Category: "park"}); got != 0 {
		t.Errorf("park cost = %d, want 0", got)
	}
	// Неизвестная категория считается средней.
	if got := estimateCost(model.Place{Category: "unknown"}); got != 30000 {
		t.Errorf("unknown cost = %d, want 30000", got)
	}
}

func TestFilterByBudget(t *testing.T) {
	places := []model.Place{
		{Name: "공원", Category: "park"},         // 0
		{Name: "카페", Category: "cafe"},         // 15000
		{Name: "파인다이닝", Category: "fine_dining"}, // 120000
	}

	free := filterByBudget(places, "free")
	if len(free) != 1 || free[0].Name != "공원" {
		t.Errorf("free filter = %v", names(free))
	}

	low := filterByBudget(places, "low")
	if len(low) != 2 {
		t.Errorf("low filter = %v", names(low))
	}

	// premium не отсекает дешёвые места.
	premium := filterByBudget(places, "premium")
	if len(premium) != 3 {
		t.Errorf("premium filter = %v", names(premium))
	}

	// Неизвестный ключ пропускает всё.
	if got := filterByBudget(places, "whatever"); len(got) != 3 {
		t.Errorf("unknown budget filter = %v", names(got))
	}
}

func names(places []model.Place) []string {
	out := make([]string, len(places))
	for i, p := range places {
		out[i] = p.Name
	}
	return out
}

func TestWeatherScore(t *testing.T) {
	rainy := weather.SuggestionsFor(weather.ConditionRainy)

	indoor := model.Place{Category: "movie", Tags: []string{"실내"}}
	if got := weatherScore(indoor, rainy); got != 1.0 {
		t.Errorf("indoor in rain = %v, want 1.0", got)
	}

	park := model.Place{Category: "park", Tags: []string{"산책"}}
	if got := weatherScore(park, rainy); got != 0.1 {
		t.Errorf("park in rain = %v, want 0.1", got)
	}

	neutral := model.Place{Category: "bar"}
	if got := weatherScore(neutral, rainy); got != 0.5 {
		t.Errorf("neutral in rain = %v, want 0.5", got)
	}
}

func TestRankPlacesOrdering(t *testing.T) {
	places := []model.Place{
		{Name: "공원 산책", Category: "park", Tags: []string{"야외", "산책"}},
		{Name: "실내 영화관", Category: "movie", Tags: []string{"실내", "영화"}},
	}

	// В дождь крытое место должно обойти парк: разрыв по погодному весу
	// (0.35 против 0.035) больше максимального джиттера 0.05.
	ranked := rankPlaces(places, []string{"indoor"}, weather.ConditionRainy, "medium")
	if len(ranked) != 2 {
		t.Fatalf("ranked %d places", len(ranked))
	}
	if ranked[0].Name != "실내 영화관" {
		t.Errorf("top place in rain = %s", ranked[0].Name)
	}
	for _, p := range ranked {
		if p.RecommendationScore < 0 || p.RecommendationScore > 1.05 {
			t.Errorf("score out of range: %v", p.RecommendationScore)
		}
		if p.EstimatedCost < 0 {
			t.Errorf("negative cost: %d", p.EstimatedCost)
		}
	}
}

func TestBudgetLabel(t *testing.T) {
	if got := BudgetLabel("medium"); got != "3~8만원" {
		t.Errorf("medium label = %q", got)
	}
	if got := BudgetLabel("nope"); got != "알 수 없음" {
		t.Errorf("unknown label = %q", got)
	}
}

func TestTierFor(t *testing.T) {
	cases := []struct {
		badges int
		tier   int
	}{
		{0, 1}, {1, 2}, {2, 2}, {3, 3}, {4, 3}, {5, 4}, {10, 4},
	}
	for _, c := range cases {
		if got := tierFor(c.badges); got.tier != c.tier {
			t.Errorf("tierFor(%d) = %d, want %d", c.badges, got.tier, c.tier)
		}
	}
}

func TestGenerateInviteCode(t *testing.T) {
	code, err := generateInviteCode()
	if err != nil {
		t.Fatalf("generateInviteCode: %v", err)
	}
	if len(code) != inviteCodeLen {
		t.Fatalf("code %q length %d, want %d", code, len(code), inviteCodeLen)
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			t.Errorf("unexpected rune %q in code %q", r, code)
		}
	}
	other, _ := generateInviteCode()
	if code == other {
		t.Error("two codes in a row are identical")
	}
}
