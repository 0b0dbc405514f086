// Package weather — текущая погода через OpenWeatherMap с 30-минутным
// кешем в Redis. Любой сбой API деградирует в дефолтную погоду, а не в ошибку.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/storage"
)

// Категории погоды для скоринга рекомендаций.
const (
	ConditionSunny  = "sunny"
	ConditionCloudy = "cloudy"
	ConditionRainy  = "rainy"
	ConditionSnowy  = "snowy"
	ConditionStormy = "stormy"
)

const (
	apiURL   = "https://api.openweathermap.org/data/2.5/weather"
	cacheTTL = 30 * time.Minute
)

// Info — нормализованный ответ о погоде.
type Info struct {
	Condition   string  `json:"condition"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	WindSpeed   float64 `json:"wind_speed"`
}

// Suggestions — активности и предостережения под погоду.
type Suggestions struct {
	RecommendedActivities []string `json:"recommended_activities"`
	PlaceTypes            []string `json:"place_types"`
	Tips                  []string `json:"tips"`
	Avoid                 []string `json:"avoid"`
}

type Client struct {
	apiKey string
	cache  storage.CacheStore
	http   *http.Client
}

func New(apiKey string, cache storage.CacheStore) *Client {
	return &Client{
		apiKey: apiKey,
		cache:  cache,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// owmResponse — нужная часть ответа OpenWeatherMap.
type owmResponse struct {
	Weather []struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Current возвращает погоду в точке: кеш -> API -> дефолт.
func (c *Client) Current(ctx context.Context, lat, lon float64) *Info {
	if c.apiKey == "" {
		logger.Info("weather: api key not configured, using default")
		return defaultInfo()
	}

	cacheKey := fmt.Sprintf("weather:%.2f:%.2f", lat, lon)
	if c.cache != nil {
		if cached, err := c.cache.CacheGet(ctx, cacheKey); err == nil && cached != "" {
			var info Info
			if json.Unmarshal([]byte(cached), &info) == nil {
				logger.Debugf("weather: cache hit %s", cacheKey)
				return &info
			}
		}
	}

	info, err := c.fetch(ctx, lat, lon)
	if err != nil {
		logger.Errorf("weather: fetch failed: %v", err)
		return defaultInfo()
	}

	if c.cache != nil {
		if raw, err := json.Marshal(info); err == nil {
			if err := c.cache.CacheSet(ctx, cacheKey, string(raw), cacheTTL); err != nil {
				logger.Errorf("weather: cache set: %v", err)
			}
		}
	}
	return info
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (*Info, error) {
	url := fmt.Sprintf("%s?lat=%f&lon=%f&appid=%s&units=metric&lang=kr", apiURL, lat, lon, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather api status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var data owmResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	info := &Info{
		Condition:   ConditionCloudy,
		Temperature: round1(data.Main.Temp),
		FeelsLike:   round1(data.Main.FeelsLike),
		Humidity:    data.Main.Humidity,
		Description: "알 수 없음",
		Icon:        "01d",
		WindSpeed:   data.Wind.Speed,
	}
	if len(data.Weather) > 0 {
		info.Condition = ClassifyCondition(data.Weather[0].ID)
		info.Description = data.Weather[0].Description
		info.Icon = data.Weather[0].Icon
	}
	return info, nil
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// ClassifyCondition переводит код погоды OWM в категорию.
func ClassifyCondition(weatherID int) string {
	switch {
	case weatherID == 800:
		return ConditionSunny
	case weatherID >= 200 && weatherID < 300:
		return ConditionStormy
	case weatherID >= 300 && weatherID < 600:
		return ConditionRainy
	case weatherID >= 600 && weatherID < 700:
		return ConditionSnowy
	default:
		return ConditionCloudy
	}
}

func defaultInfo() *Info {
	return &Info{
		Condition:   ConditionSunny,
		Temperature: 20.0,
		FeelsLike:   20.0,
		Humidity:    60,
		Description: "날씨 정보를 가져올 수 없습니다",
		Icon:        "01d",
	}
}

// SuggestionsFor возвращает подсказки активностей под категорию погоды.
func SuggestionsFor(condition string) Suggestions {
	switch condition {
	case ConditionSunny:
		return Suggestions{
			RecommendedActivities: []string{"야외 산책", "공원 피크닉", "한강 자전거", "루프탑 카페", "전망대"},
			PlaceTypes:            []string{"park", "cafe_outdoor", "river", "mountain", "rooftop"},
			Tips:                  []string{"자외선 차단제 필수", "시원한 음료 준비", "모자나 선글라스 착용"},
			Avoid:                 []string{},
		}
	case ConditionRainy:
		return Suggestions{
			RecommendedActivities: []string{"실내 카페", "영화관", "찜질방", "실내 데이트", "맛집 투어"},
			PlaceTypes:            []string{"cafe_indoor", "movie", "spa", "restaurant", "indoor"},
			Tips:                  []string{"우산과 여벌 옷 준비", "따뜻한 음료 추천", "감성적인 분위기 즐기기"},
			Avoid:                 []string{"야외 활동", "산책", "공원"},
		}
	case ConditionSnowy:
		return Suggestions{
			RecommendedActivities: []string{"눈 구경 산책", "따뜻한 실내 카페", "온천/찜질방", "겨울 축제"},
			PlaceTypes:            []string{"cafe_warm", "spa", "indoor", "winter_festival"},
			Tips:                  []string{"따뜻한 옷 챙기기", "미끄럼 주의", "핫초코 추천"},
			Avoid:                 []string{"먼 거리 이동", "야외 장시간 활동"},
		}
	case ConditionStormy:
		return Suggestions{
			RecommendedActivities: []string{"실내 데이트", "홈 데이트", "근처 카페", "영화 감상"},
			PlaceTypes:            []string{"cafe_indoor", "movie", "indoor", "home"},
			Tips:                  []string{"외출 자제 권장", "안전한 실내 활동 추천"},
			Avoid:                 []string{"모든 야외 활동", "먼 거리 이동"},
		}
	default:
		return Suggestions{
			RecommendedActivities: []string{"미술관", "박물관", "실내외 겸용 카페", "쇼핑", "드라이브"},
			PlaceTypes:            []string{"museum", "gallery", "cafe", "shopping", "drive"},
			Tips:                  []string{"언제든 비가 올 수 있으니 우산 챙기기"},
			Avoid:                 []string{},
		}
	}
}
