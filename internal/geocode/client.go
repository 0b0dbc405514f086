// Package geocode — перевод названия места в координаты через
// Kakao Local keyword search.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lovenav/internal/logger"
)

const searchURL = "https://dapi.kakao.com/v2/local/search/keyword.json"

// Дефолтная точка: центр Сеула (시청).
const (
	DefaultLat = 37.5665
	DefaultLon = 126.9780
)

// Location — результат геокодирования.
type Location struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
}

type Client struct {
	apiKey string
	http   *http.Client
}

func New(apiKey string) *Client {
	return &Client{apiKey: apiKey, http: &http.Client{Timeout: 10 * time.Second}}
}

type kakaoResponse struct {
	Documents []struct {
		X               string `json:"x"` // долгота
		Y               string `json:"y"` // широта
		PlaceName       string `json:"place_name"`
		AddressName     string `json:"address_name"`
		RoadAddressName string `json:"road_address_name"`
	} `json:"documents"`
}

// Lookup ищет место по названию. nil без ошибки, если не нашлось или
// ключ не настроен: вызывающий код подставляет фолбэк-координаты.
func (c *Client) Lookup(ctx context.Context, query string) (*Location, error) {
	if query == "" || c.apiKey == "" {
		return nil, nil
	}
	u := searchURL + "?" + url.Values{"query": {query}, "size": {"1"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: kakao status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var data kakaoResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("geocode: parse: %w", err)
	}
	if len(data.Documents) == 0 {
		return nil, nil
	}
	doc := data.Documents[0]
	lat, err := strconv.ParseFloat(doc.Y, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode: bad latitude %q", doc.Y)
	}
	lon, err := strconv.ParseFloat(doc.X, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode: bad longitude %q", doc.X)
	}
	addr := doc.RoadAddressName
	if addr == "" {
		addr = doc.AddressName
	}
	name := doc.PlaceName
	if name == "" {
		name = query
	}
	return &Location{Lat: lat, Lon: lon, Name: name, Address: addr}, nil
}

// Resolve возвращает координаты для описания места, либо фолбэк.
func (c *Client) Resolve(ctx context.Context, locationDesc string, fallbackLat, fallbackLon float64) (float64, float64) {
	loc, err := c.Lookup(ctx, locationDesc)
	if err != nil {
		logger.Errorf("geocode: %q: %v", locationDesc, err)
		return fallbackLat, fallbackLon
	}
	if loc == nil {
		return fallbackLat, fallbackLon
	}
	return loc.Lat, loc.Lon
}
