package startup

import (
	"context"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
)

func ratingOf(v float64) *float64 { return &v }

// SeedPlaces наполняет пустую коллекцию мест стартовым набором (центр Сеула),
// чтобы рекомендации работали до первой загрузки реальных данных.
func SeedPlaces(ctx context.Context, places *repository.PlaceRepository) {
	n, err := places.Count(ctx)
	if err != nil {
		logger.Errorf("seed places: count: %v", err)
		return
	}
	if n > 0 {
		return
	}
	seed := []model.Place{
		{
			Name:        "남산서울타워",
			Description: "서울 야경을 한눈에 내려다보는 전망대",
			Coordinates: model.Coordinates{Latitude: 37.5512, Longitude: 126.9882},
			Tags:        []string{"야경", "전망", "데이트"},
			Category:    "attraction",
			Rating:      ratingOf(4.5),
			Source:      "seed",
		},
		{
			Name:        "북촌 한옥마을",
			Description: "전통 한옥 골목 산책 코스",
			Coordinates: model.Coordinates{Latitude: 37.5826, Longitude: 126.9850},
			Tags:        []string{"산책", "전통", "사진"},
			Category:    "attraction",
			Rating:      ratingOf(4.3),
			Source:      "seed",
		},
		{
			Name:        "한강공원 반포지구",
			Description: "한강 피크닉과 야경 분수",
			Coordinates: model.Coordinates{Latitude: 37.5101, Longitude: 126.9969},
			Tags:        []string{"피크닉", "야경", "힐링"},
			Category:    "park",
			Rating:      ratingOf(4.6),
			Source:      "seed",
		},
		{
			Name:        "성수동 카페거리",
			Description: "감성 카페와 편집숍이 모인 거리",
			Coordinates: model.Coordinates{Latitude: 37.5446, Longitude: 127.0559},
			Tags:        []string{"카페", "감성", "디저트"},
			Category:    "cafe",
			Rating:      ratingOf(4.4),
			Source:      "seed",
		},
		{
			Name:        "광장시장",
			Description: "빈대떡과 마약김밥으로 유명한 전통시장",
			Coordinates: model.Coordinates{Latitude: 37.5700, Longitude: 126.9996},
			Tags:        []string{"맛집", "전통", "시장"},
			Category:    "restaurant",
			Rating:      ratingOf(4.2),
			Source:      "seed",
		},
		{
			Name:        "국립현대미술관 서울",
			Description: "비 오는 날에도 좋은 실내 전시",
			Coordinates: model.Coordinates{Latitude: 37.5796, Longitude: 126.9803},
			Tags:        []string{"전시", "문화", "실내"},
			Category:    "museum",
			Rating:      ratingOf(4.4),
			Source:      "seed",
		},
	}
	for i := range seed {
		if err := places.Create(ctx, &seed[i]); err != nil {
			logger.Errorf("seed places: create %q: %v", seed[i].Name, err)
			return
		}
	}
	logger.Infof("seeded %d places", len(seed))
}
